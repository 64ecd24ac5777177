package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirecall-server/internal/core"
	"github.com/vovakirdan/wirecall-server/internal/presence"
)

// maxPresenceQuery caps the number of ids in one batch lookup.
const maxPresenceQuery = 100

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PresenceResponse is the presence snapshot of one user.
type PresenceResponse struct {
	UserID string     `json:"userId"`
	State  string     `json:"state"`
	Since  *time.Time `json:"since,omitempty"`
}

// PresenceHandlers exposes registry lookups over HTTP.
type PresenceHandlers struct {
	registry *presence.Registry
	log      *zerolog.Logger
}

// NewPresenceHandlers creates a new presence handlers instance.
func NewPresenceHandlers(registry *presence.Registry, logger *zerolog.Logger) *PresenceHandlers {
	return &PresenceHandlers{registry: registry, log: logger}
}

// Get reports a single user.
// GET /api/presence/:userId
func (h *PresenceHandlers) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot(c.Param("userId")))
}

// List reports several users in the order given.
// GET /api/presence?users=a,b
func (h *PresenceHandlers) List(c *gin.Context) {
	ids := lo.Compact(lo.Map(strings.Split(c.Query("users"), ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "users query parameter is required"})
		return
	}
	if len(ids) > maxPresenceQuery {
		h.log.Debug().Int("count", len(ids)).Msg("presence query too large")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "too many users requested"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(ids, func(id string, _ int) PresenceResponse {
		return h.snapshot(id)
	}))
}

func (h *PresenceHandlers) snapshot(userID string) PresenceResponse {
	entry, ok := h.registry.Get(userID)
	if !ok {
		return PresenceResponse{UserID: userID, State: string(core.PresenceOffline)}
	}
	since := entry.EstablishedAt.UTC()
	return PresenceResponse{UserID: userID, State: string(core.PresenceOnline), Since: &since}
}
