package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pixelsync/internal/core"
	"pixelsync/internal/proto"
	"pixelsync/internal/store"
)

// SessionHandlers serves the read-only discovery endpoints. They exist
// for UI listing only; protocol correctness never depends on them.
type SessionHandlers struct {
	registry *core.Registry
	journal  store.Store
	log      *zerolog.Logger
}

// NewSessionHandlers creates the discovery handlers. journal may be
// nil, in which case the history endpoint reports empty.
func NewSessionHandlers(registry *core.Registry, journal store.Store, logger *zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{
		registry: registry,
		journal:  journal,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListSessions returns every public (passwordless) session.
// GET /api/sessions
func (h *SessionHandlers) ListSessions(c *gin.Context) {
	summaries := h.registry.PublicSessions()

	out := make([]proto.SessionSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, summaryToProto(s))
	}
	c.JSON(http.StatusOK, out)
}

// GetSession returns the summary for one session id, public or not.
// GET /api/sessions/:id
func (h *SessionHandlers) GetSession(c *gin.Context) {
	id := c.Param("id")

	summary, ok := h.registry.SessionSummary(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}
	c.JSON(http.StatusOK, summaryToProto(summary))
}

// SessionHistoryEntry is one journal row in API shape.
type SessionHistoryEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HasPassword bool   `json:"hasPassword"`
	PeakMembers int    `json:"peakMembers"`
	StartedAt   string `json:"startedAt"`
	EndedAt     string `json:"endedAt,omitempty"`
	EndReason   string `json:"endReason,omitempty"`
}

// ListHistory returns recent session journal rows, newest first.
// GET /api/history
func (h *SessionHandlers) ListHistory(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusOK, []SessionHistoryEntry{})
		return
	}

	records, err := h.journal.ListRecentSessions(c.Request.Context(), 50)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list session history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]SessionHistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := SessionHistoryEntry{
			ID:          rec.ID,
			Name:        rec.Name,
			HasPassword: rec.HasPassword,
			PeakMembers: rec.PeakMembers,
			StartedAt:   rec.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			EndReason:   rec.EndReason,
		}
		if rec.EndedAt != nil {
			entry.EndedAt = rec.EndedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, out)
}
