package http

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viewhub/viewhub/internal/domain/session"
	"github.com/viewhub/viewhub/internal/persist"
	"github.com/viewhub/viewhub/internal/reachability"
	"github.com/viewhub/viewhub/internal/render"
	"github.com/viewhub/viewhub/internal/shared/types"
	"github.com/viewhub/viewhub/internal/shared/urls"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	coordinator *render.Coordinator
	store       *session.Store
	bridge      *render.Bridge
	adapter     *persist.Adapter
	monitor     *reachability.Monitor
}

// NewHandlers creates a new handler set
func NewHandlers(
	coordinator *render.Coordinator,
	store *session.Store,
	bridge *render.Bridge,
	adapter *persist.Adapter,
	monitor *reachability.Monitor,
) *Handlers {
	return &Handlers{
		coordinator: coordinator,
		store:       store,
		bridge:      bridge,
		adapter:     adapter,
		monitor:     monitor,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ViewHub Session Service",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.store.Stats(),
		"network":  gin.H{"online": h.monitor.IsOnline()},
	})
}

// ListSessions lists all live sessions plus store stats
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.store.Sessions()
	views := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.View())
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": views,
		"stats":    h.store.Stats(),
	})
}

// CreateSession opens a session for a user-entered server address. If a
// session for the same normalized URL already exists it is re-activated
// instead of duplicated.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.coordinator.Open(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": sess.View(),
	})
}

// GetSession returns one session
func (h *Handlers) GetSession(c *gin.Context) {
	sess, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

// GetActive returns the active session, or an empty object when none exists
func (h *Handlers) GetActive(c *gin.Context) {
	active := h.store.Active()
	if active == nil {
		c.JSON(http.StatusOK, gin.H{"session": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": active.View()})
}

// ActivateSession switches the active session, saving the outgoing render
// state before the incoming one is restored
func (h *Handlers) ActivateSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.coordinator.Activate(c.Request.Context(), sessionID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
	})
}

// RemoveSession closes a session and discards its render state
func (h *Handlers) RemoveSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.coordinator.Close(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
	})
}

// DisconnectSession closes the connection but keeps the session
func (h *Handlers) DisconnectSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.coordinator.Disconnect(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
	})
}

// RetrySession restarts the connection attempt for a session
func (h *Handlers) RetrySession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.coordinator.Retry(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	sess, _ := h.store.Get(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sess.View(),
	})
}

// ReportFailure records an externally observed connection failure
func (h *Handlers) ReportFailure(c *gin.Context) {
	sessionID := c.Param("id")

	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.coordinator.ReportFailure(sessionID, req.Message); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
	})
}

// ValidateURL normalizes a candidate server address without creating a
// session, so clients can validate as the user types
func (h *Handlers) ValidateURL(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	normalized, err := urls.Validate(req.URL)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":        true,
		"normalized":   normalized,
		"display_name": urls.DisplayName(normalized),
	})
}

// ListHistory returns the recent-server history, most recent first
func (h *Handlers) ListHistory(c *gin.Context) {
	entries := h.adapter.RecentURLs()

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"limit":   types.MaxRecentEntries,
	})
}

// RemoveHistoryEntry removes one URL from the recent history
func (h *Handlers) RemoveHistoryEntry(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.adapter.RemoveRecentURL(req.URL)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClearHistory wipes the recent-server history and persisted records
func (h *Handlers) ClearHistory(c *gin.Context) {
	h.adapter.ClearHistory()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetRenderState returns a session's saved render state, base64-encoded
func (h *Handlers) GetRenderState(c *gin.Context) {
	sessionID := c.Param("id")

	if _, ok := h.store.Get(sessionID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrNotFound.Error()})
		return
	}

	blob := h.bridge.LoadState(sessionID)
	if blob == nil {
		c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "state": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"state":      base64.StdEncoding.EncodeToString(blob),
	})
}

// PutRenderState replaces a session's saved render state wholesale
func (h *Handlers) PutRenderState(c *gin.Context) {
	sessionID := c.Param("id")

	var req struct {
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blob, err := base64.StdEncoding.DecodeString(req.State)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state is not valid base64"})
		return
	}

	if _, ok := h.store.Get(sessionID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrNotFound.Error()})
		return
	}

	h.bridge.SaveState(sessionID, blob)
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sessionID})
}

// NetworkStatus reports current reachability, forcing a probe when the
// force query parameter is set
func (h *Handlers) NetworkStatus(c *gin.Context) {
	online := h.monitor.IsOnline()
	if c.Query("force") == "true" {
		online = h.monitor.CheckNow(c.Request.Context())
	}

	c.JSON(http.StatusOK, gin.H{"online": online})
}
