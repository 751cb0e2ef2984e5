package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nyashahama/love-letters-backend/internal/push"
)

// ─── POST /api/push/subscriptions ─────────────────────────────────────────────

// handleCreatePushSubscription stores the PushSubscription JSON a browser
// produced. Re-registering an endpoint replaces its keys.
func (s *Server) handleCreatePushSubscription(w http.ResponseWriter, r *http.Request) {
	var sub push.Subscription
	if !s.decode(w, r, &sub) {
		return
	}
	sub.UserAgent = r.UserAgent()

	if err := s.pushSubs.UpsertPushSubscription(r.Context(), sub); err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("store push subscription: %w", err))
		return
	}
	respond(w, http.StatusCreated, map[string]bool{"success": true})
}

// ─── POST /api/push/test ──────────────────────────────────────────────────────

type pushTestResponse struct {
	Success bool          `json:"success"`
	Results []push.Result `json:"results"`
	Message string        `json:"message"`
}

// handlePushTest sends one notification to every stored subscription and
// reports what each push service said.
func (s *Server) handlePushTest(w http.ResponseWriter, r *http.Request) {
	var n push.Notification
	if !s.decodeOptional(w, r, &n) {
		return
	}
	if s.push == nil {
		respondErr(w, http.StatusInternalServerError, push.ErrNotConfigured.Error())
		return
	}

	results, err := s.push.NotifyAll(r.Context(), n)
	if err != nil {
		if !errors.Is(err, push.ErrNotConfigured) {
			s.logger.Error("push test failed", "error", err, logField(r))
		}
		respondErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []push.Result{}
	}

	respond(w, http.StatusOK, pushTestResponse{
		Success: true,
		Results: results,
		Message: fmt.Sprintf("Attempted to send %d notifications", len(results)),
	})
}

// ─── GET /api/push/vapid-public-key ───────────────────────────────────────────

func (s *Server) handleVAPIDPublicKey(w http.ResponseWriter, _ *http.Request) {
	if s.push == nil || s.push.PublicKey() == "" {
		respondErr(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	respond(w, http.StatusOK, map[string]string{"publicKey": s.push.PublicKey()})
}
