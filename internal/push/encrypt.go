package push

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	recordSize = 4096
	saltLen    = 16
	authLen    = 16
	tagLen     = 16
	// maxPlaintext leaves room for the delimiter octet and the GCM tag in a
	// single record.
	maxPlaintext = recordSize - tagLen - 1
)

// encrypt produces an aes128gcm body for one subscriber:
// salt(16) | rs(4) | idlen(1) | sender public key(65) | ciphertext.
func encrypt(plaintext []byte, keys Keys, random io.Reader) ([]byte, error) {
	if len(plaintext) > maxPlaintext {
		return nil, fmt.Errorf("push: payload of %d bytes exceeds %d", len(plaintext), maxPlaintext)
	}

	uaRaw, err := decodeKey(keys.P256dh)
	if err != nil {
		return nil, fmt.Errorf("push: p256dh: %w", err)
	}
	uaPublic, err := ecdh.P256().NewPublicKey(uaRaw)
	if err != nil {
		return nil, fmt.Errorf("push: p256dh: %w", err)
	}
	authSecret, err := decodeKey(keys.Auth)
	if err != nil {
		return nil, fmt.Errorf("push: auth: %w", err)
	}
	if len(authSecret) != authLen {
		return nil, fmt.Errorf("push: auth secret must be %d bytes, got %d", authLen, len(authSecret))
	}

	asPrivate, err := ecdh.P256().GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("push: ephemeral key: %w", err)
	}
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(random, salt); err != nil {
		return nil, fmt.Errorf("push: salt: %w", err)
	}

	cek, nonce, err := deriveContentKeys(asPrivate, uaPublic, asPrivate.PublicKey().Bytes(), uaRaw, authSecret, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("push: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("push: gcm: %w", err)
	}

	record := make([]byte, 0, len(plaintext)+1)
	record = append(record, plaintext...)
	record = append(record, 0x02) // last record

	asPublic := asPrivate.PublicKey().Bytes()
	header := make([]byte, 0, saltLen+4+1+len(asPublic))
	header = append(header, salt...)
	header = binary.BigEndian.AppendUint32(header, recordSize)
	header = append(header, byte(len(asPublic)))
	header = append(header, asPublic...)

	return gcm.Seal(header, nonce, record, nil), nil
}

// deriveContentKeys runs the RFC 8291 key schedule. priv/peer are the local
// private key and the remote public key; the ECDH secret is the same whichever
// side calls it. asPublic and uaPublic always go into the info string in that
// order.
func deriveContentKeys(priv *ecdh.PrivateKey, peer *ecdh.PublicKey, asPublic, uaPublic, authSecret, salt []byte) (cek, nonce []byte, err error) {
	shared, err := priv.ECDH(peer)
	if err != nil {
		return nil, nil, fmt.Errorf("push: ecdh: %w", err)
	}

	keyInfo := make([]byte, 0, 14+len(uaPublic)+len(asPublic))
	keyInfo = append(keyInfo, "WebPush: info\x00"...)
	keyInfo = append(keyInfo, uaPublic...)
	keyInfo = append(keyInfo, asPublic...)

	prkKey := hkdf.Extract(sha256.New, shared, authSecret)
	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prkKey, keyInfo), ikm); err != nil {
		return nil, nil, fmt.Errorf("push: hkdf ikm: %w", err)
	}

	prk := hkdf.Extract(sha256.New, ikm, salt)
	cek = make([]byte, 16)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, []byte("Content-Encoding: aes128gcm\x00")), cek); err != nil {
		return nil, nil, fmt.Errorf("push: hkdf cek: %w", err)
	}
	nonce = make([]byte, 12)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, []byte("Content-Encoding: nonce\x00")), nonce); err != nil {
		return nil, nil, fmt.Errorf("push: hkdf nonce: %w", err)
	}
	return cek, nonce, nil
}

var defaultRandom io.Reader = rand.Reader
