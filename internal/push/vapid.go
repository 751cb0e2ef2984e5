package push

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// vapidTokenTTL stays well under the 24h ceiling push services enforce.
const vapidTokenTTL = 12 * time.Hour

// VAPIDKeys is an application server key pair. PublicKey is the 65-byte
// uncompressed P-256 point, PrivateKey the 32-byte scalar, both base64url.
type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
}

// GenerateVAPIDKeys creates a fresh key pair.
func GenerateVAPIDKeys() (VAPIDKeys, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return VAPIDKeys{}, fmt.Errorf("push: generate key: %w", err)
	}
	return VAPIDKeys{
		PublicKey:  base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
		PrivateKey: base64.RawURLEncoding.EncodeToString(priv.Bytes()),
	}, nil
}

type vapid struct {
	key       *ecdsa.PrivateKey
	publicB64 string
	subject   string
}

func parseVAPID(publicKey, privateKey, subject string) (*vapid, error) {
	rawPriv, err := decodeKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("push: VAPID private key: %w", err)
	}
	rawPub, err := decodeKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("push: VAPID public key: %w", err)
	}

	priv, err := ecdh.P256().NewPrivateKey(rawPriv)
	if err != nil {
		return nil, fmt.Errorf("push: VAPID private key: %w", err)
	}
	derived := priv.PublicKey().Bytes()
	if !bytes.Equal(derived, rawPub) {
		return nil, fmt.Errorf("push: VAPID public key does not match private key")
	}

	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(derived[1:33]),
			Y:     new(big.Int).SetBytes(derived[33:65]),
		},
		D: new(big.Int).SetBytes(rawPriv),
	}
	return &vapid{
		key:       key,
		publicB64: base64.RawURLEncoding.EncodeToString(derived),
		subject:   subject,
	}, nil
}

// authorization returns the Authorization header value for a request to
// endpoint: "vapid t=<jwt>, k=<public key>".
func (v *vapid) authorization(endpoint string, now time.Time) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("push: invalid endpoint %q", endpoint)
	}

	claims := jwt.MapClaims{
		"aud": u.Scheme + "://" + u.Host,
		"exp": now.Add(vapidTokenTTL).Unix(),
		"sub": v.subject,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("push: sign VAPID token: %w", err)
	}
	return "vapid t=" + token + ", k=" + v.publicB64, nil
}

// decodeKey accepts base64url or standard base64, padded or not. Browsers
// emit unpadded base64url but older clients send the standard alphabet.
func decodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return base64.RawURLEncoding.DecodeString(s)
}
