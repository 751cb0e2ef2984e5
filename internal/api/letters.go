package api

import (
	"net/http"

	"github.com/nyashahama/love-letters-backend/internal/letter"
)

// ─── GET|POST /api/letters/today ──────────────────────────────────────────────

type todaysLetterResponse struct {
	LoveLetter string `json:"loveLetter"`
	Date       string `json:"date"`
	DateString string `json:"dateString"`
}

type letterErrorResponse struct {
	Error          string `json:"error"`
	FallbackLetter string `json:"fallbackLetter"`
}

// handleTodaysLetter writes a fresh letter of the day. When the model could
// not be used the canned letter is still returned, under fallbackLetter with
// a 500, so the page can show it while reporting the failure.
func (s *Server) handleTodaysLetter(w http.ResponseWriter, r *http.Request) {
	l := s.letters.Generate(r.Context(), letter.VariantDaily)

	if l.Fallback {
		msg := "letter generation unavailable"
		if l.Err != nil {
			msg = l.Err.Error()
		}
		s.logger.Warn("today's letter fell back", "error", l.Err, logField(r))
		respond(w, http.StatusInternalServerError, letterErrorResponse{Error: msg, FallbackLetter: l.Text})
		return
	}

	respond(w, http.StatusOK, todaysLetterResponse{
		LoveLetter: l.Text,
		Date:       l.HumanDate(),
		DateString: l.DateString(),
	})
}
