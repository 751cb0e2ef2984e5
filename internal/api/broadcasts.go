package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nyashahama/love-letters-backend/internal/delivery"
)

// ─── POST /api/broadcasts/daily ───────────────────────────────────────────────

const broadcastWriteSlack = 30 * time.Second

type broadcastResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Stats   delivery.BroadcastStats `json:"stats"`
}

// handleDailyBroadcast sends today's letter to every subscriber now. It is
// the manual counterpart of the scheduler and does not claim the day.
func (s *Server) handleDailyBroadcast(w http.ResponseWriter, r *http.Request) {
	// The server's WriteTimeout would drop the response of a long run.
	deadline := time.Now().Add(s.cfg.BroadcastTimeout + broadcastWriteSlack)
	if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil {
		s.logger.Warn("broadcast: cannot extend write deadline", "error", err, logField(r))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.BroadcastTimeout)
	defer cancel()

	stats, err := s.delivery.Broadcast(ctx)
	if err != nil {
		s.logger.Error("broadcast failed", "error", err, logField(r))
		respondErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	msg := fmt.Sprintf("Daily love letters sent successfully to %d subscribers. %d errors.", stats.SuccessCount, stats.ErrorCount)
	if stats.TotalSubscribers == 0 {
		msg = "No subscribers to send to"
	}
	respond(w, http.StatusOK, broadcastResponse{Success: true, Message: msg, Stats: stats})
}
