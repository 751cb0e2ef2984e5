package api

import (
	"errors"
	"net/http"

	"github.com/nyashahama/love-letters-backend/internal/delivery"
	"github.com/nyashahama/love-letters-backend/internal/subscriber"
)

// ─── POST /api/subscribe ──────────────────────────────────────────────────────

type subscribeRequest struct {
	Email string `json:"email" validate:"max=254"`
}

type subscribeDetails struct {
	ConfirmationSent bool                     `json:"confirmationSent"`
	LoveLetterSent   bool                     `json:"loveLetterSent"`
	Channels         []delivery.ChannelResult `json:"channels,omitempty"`
}

type subscribeResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Details subscribeDetails `json:"details"`
}

// handleSubscribe is the email-only signup form. Anything that isn't an
// email address is rejected before any external call is made.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.delivery.Subscribe(r.Context(), delivery.Request{
		Email:      req.Email,
		Preference: subscriber.PreferenceEmail,
	})
	if err != nil {
		var verr *subscriber.ValidationError
		if errors.As(err, &verr) {
			respondErr(w, http.StatusBadRequest, "Invalid email address")
			return
		}
		s.respondSubscribeErr(w, r, res, err)
		return
	}

	respond(w, http.StatusOK, subscribeResponse{
		Success: true,
		Message: welcomeMessage(subscriber.PreferenceEmail),
		Details: subscribeDetails{
			ConfirmationSent: res.ConfirmationSent(),
			LoveLetterSent:   res.LoveLetterSent(),
		},
	})
}

// ─── POST /api/subscribe/channel ──────────────────────────────────────────────

type subscribeChannelRequest struct {
	Email              string `json:"email" validate:"max=254"`
	PhoneNumber        string `json:"phone_number" validate:"max=32"`
	DeliveryPreference string `json:"delivery_preference" validate:"omitempty,oneof=email whatsapp both"`
}

// handleSubscribeChannel is the multi-channel signup form.
func (s *Server) handleSubscribeChannel(w http.ResponseWriter, r *http.Request) {
	var req subscribeChannelRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.delivery.Subscribe(r.Context(), delivery.Request{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Preference:  subscriber.Preference(req.DeliveryPreference),
	})
	if err != nil {
		var verr *subscriber.ValidationError
		if errors.As(err, &verr) {
			respondErr(w, http.StatusBadRequest, verr.Message)
			return
		}
		s.respondSubscribeErr(w, r, res, err)
		return
	}

	respond(w, http.StatusOK, subscribeResponse{
		Success: true,
		Message: welcomeMessage(res.Subscriber.Preference),
		Details: subscribeDetails{
			ConfirmationSent: res.ConfirmationSent(),
			LoveLetterSent:   res.LoveLetterSent(),
			Channels:         res.Channels,
		},
	})
}

type subscribeErrorResponse struct {
	Error    string                   `json:"error"`
	Channels []delivery.ChannelResult `json:"channels,omitempty"`
}

// respondSubscribeErr reports a failed confirmation with the per-channel
// detail, and hides anything else behind a generic 500.
func (s *Server) respondSubscribeErr(w http.ResponseWriter, r *http.Request, res delivery.SubscribeResult, err error) {
	if !errors.Is(err, delivery.ErrConfirmationFailed) {
		s.respondInternalErr(w, r, err)
		return
	}

	s.logger.Error("subscribe: no confirmation delivered", "error", err, logField(r))
	msg := "Failed to send confirmation"
	for _, c := range res.Channels {
		if c.Error != "" {
			msg = c.Error
			break
		}
	}
	respond(w, http.StatusInternalServerError, subscribeErrorResponse{Error: msg, Channels: res.Channels})
}

func welcomeMessage(p subscriber.Preference) string {
	switch p {
	case subscriber.PreferenceWhatsApp:
		return "Welcome! Check your WhatsApp for your welcome message and your first romantic love letter!"
	case subscriber.PreferenceBoth:
		return "Welcome! Check your inbox and WhatsApp for your welcome messages and your first romantic love letter."
	default:
		return "Welcome! Check your inbox for your welcome email and your first romantic love letter."
	}
}
