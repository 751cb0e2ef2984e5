// Package subscriber is the pure domain model for subscribers: contact
// validation, phone normalisation and channel selection. It has no external
// dependencies so the rules can be tested in isolation.
package subscriber

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Preference is the subscriber's chosen delivery mode.
type Preference string

const (
	PreferenceEmail    Preference = "email"
	PreferenceWhatsApp Preference = "whatsapp"
	PreferenceBoth     Preference = "both"
)

// Valid reports whether p is one of the known preferences.
func (p Preference) Valid() bool {
	switch p {
	case PreferenceEmail, PreferenceWhatsApp, PreferenceBoth:
		return true
	}
	return false
}

// Channel is a delivery transport a letter can travel over.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// dispatch maps each preference to the channels it is delivered on, in the
// order they are attempted.
var dispatch = map[Preference][]Channel{
	PreferenceEmail:    {ChannelEmail},
	PreferenceWhatsApp: {ChannelWhatsApp},
	PreferenceBoth:     {ChannelEmail, ChannelWhatsApp},
}

// Subscriber is a person who asked to receive letters.
type Subscriber struct {
	ID          uuid.UUID
	Email       string
	PhoneNumber string // normalised, "+<digits>"
	Preference  Preference
	CreatedAt   time.Time
}

// Channels returns the channels s should be delivered on.
func (s Subscriber) Channels() []Channel {
	return dispatch[s.Preference]
}

// EligibleFor reports whether s can and wants to receive letters on c.
func (s Subscriber) EligibleFor(c Channel) bool {
	switch c {
	case ChannelEmail:
		return s.Email != "" && (s.Preference == PreferenceEmail || s.Preference == PreferenceBoth)
	case ChannelWhatsApp:
		return s.PhoneNumber != "" && (s.Preference == PreferenceWhatsApp || s.Preference == PreferenceBoth)
	}
	return false
}

// Validate checks that the contact details agree with the preference. Email
// and phone must already be normalised (see New).
func (s Subscriber) Validate() error {
	if !s.Preference.Valid() {
		return &ValidationError{Field: "delivery_preference", Message: fmt.Sprintf("unknown delivery preference %q", s.Preference)}
	}
	if s.Email == "" && s.PhoneNumber == "" {
		return &ValidationError{Field: "email", Message: "An email address or phone number is required"}
	}
	if s.Email != "" && !ValidEmail(s.Email) {
		return &ValidationError{Field: "email", Message: "Invalid email address"}
	}

	switch s.Preference {
	case PreferenceEmail:
		if s.Email == "" {
			return &ValidationError{Field: "email", Message: "Email is required for email delivery"}
		}
	case PreferenceWhatsApp:
		if s.PhoneNumber == "" {
			return &ValidationError{Field: "phone_number", Message: "Phone number is required for WhatsApp delivery"}
		}
	case PreferenceBoth:
		if s.Email == "" {
			return &ValidationError{Field: "email", Message: "Email is required for email delivery"}
		}
		if s.PhoneNumber == "" {
			return &ValidationError{Field: "phone_number", Message: "Phone number is required for WhatsApp delivery"}
		}
	}
	return nil
}

// New normalises the raw contact fields and validates the result. An empty
// preference means email, which is what the email-only signup form sends.
func New(email, phone string, pref Preference) (Subscriber, error) {
	if pref == "" {
		pref = PreferenceEmail
	}
	s := Subscriber{
		Email:      strings.TrimSpace(email),
		Preference: pref,
	}
	if strings.TrimSpace(phone) != "" {
		normalised, err := NormalizePhone(phone)
		if err != nil {
			return Subscriber{}, err
		}
		s.PhoneNumber = normalised
	}
	if err := s.Validate(); err != nil {
		return Subscriber{}, err
	}
	return s, nil
}

// ─── EMAIL ────────────────────────────────────────────────────────────────────

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether addr looks like an email address.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// ─── PHONE ────────────────────────────────────────────────────────────────────

// E.164 allows at most 15 digits; anything under 7 is not a dialable number.
const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// NormalizePhone converts a free-form phone number into "+<digits>".
// Ten digits without an explicit "+" are treated as a North American number
// and get the "+1" country code.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	explicit := strings.HasPrefix(raw, "+")

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", &ValidationError{Field: "phone_number", Message: "Invalid phone number"}
	}
	if len(digits) == 10 && !explicit {
		return "+1" + digits, nil
	}
	return "+" + digits, nil
}
