package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/dispatcher"
	"github.com/qoffice/dispatcher/internal/lookup"
	"github.com/qoffice/dispatcher/internal/middleware"
	"github.com/qoffice/dispatcher/internal/models"
)

// AdminHandlers serves the authenticated admin command set of §4.6 and
// the admin queue projection of §4.9.
type AdminHandlers struct {
	dispatcher *dispatcher.Dispatcher
	lookup     *lookup.Service
}

func NewAdminHandlers(d *dispatcher.Dispatcher, l *lookup.Service) *AdminHandlers {
	return &AdminHandlers{dispatcher: d, lookup: l}
}

// AdminSnapshot implements the admin counterpart of GET /queue/{office}.
func (h *AdminHandlers) AdminSnapshot(c *gin.Context) {
	office := models.Office(c.Param("office"))
	if !office.Valid() {
		fail(c, apperr.NewValidation("invalid office"))
		return
	}
	snap, err := h.lookup.AdminQueueSnapshot(c.Request.Context(), office)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, snap)
}

func (h *AdminHandlers) principalID(c *gin.Context) string {
	p, ok := middleware.Principal(c)
	if !ok {
		return ""
	}
	return p.ID
}

type windowIDBody struct {
	WindowID string `json:"windowId" binding:"required"`
}

// Next implements POST /queue/next.
func (h *AdminHandlers) Next(c *gin.Context) {
	var body windowIDBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.dispatcher.Next(c.Request.Context(), body.WindowID, h.principalID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Recall implements POST /queue/recall.
func (h *AdminHandlers) Recall(c *gin.Context) {
	var body windowIDBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.dispatcher.Recall(c.Request.Context(), body.WindowID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Previous implements POST /queue/previous.
func (h *AdminHandlers) Previous(c *gin.Context) {
	var body windowIDBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.dispatcher.Previous(c.Request.Context(), body.WindowID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Skip implements POST /queue/skip.
func (h *AdminHandlers) Skip(c *gin.Context) {
	var body windowIDBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.dispatcher.Skip(c.Request.Context(), body.WindowID, h.principalID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type transferBody struct {
	FromWindowID string `json:"fromWindowId" binding:"required"`
	ToWindowID   string `json:"toWindowId" binding:"required"`
}

// Transfer implements POST /queue/transfer.
func (h *AdminHandlers) Transfer(c *gin.Context) {
	var body transferBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.dispatcher.Transfer(c.Request.Context(), body.FromWindowID, body.ToWindowID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type pauseResumeBody struct {
	WindowID string `json:"windowId" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

// PauseResume implements POST /queue/stop.
func (h *AdminHandlers) PauseResume(c *gin.Context) {
	var body pauseResumeBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.dispatcher.PauseResume(c.Request.Context(), body.WindowID, body.Action); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequeueAll implements POST /queue/requeue-all.
func (h *AdminHandlers) RequeueAll(c *gin.Context) {
	var body windowIDBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.dispatcher.RequeueAll(c.Request.Context(), body.WindowID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type requeueSelectedBody struct {
	WindowID string `json:"windowId" binding:"required"`
	Numbers  []int  `json:"numbers" binding:"required"`
}

// RequeueSelected implements POST /queue/requeue-selected.
func (h *AdminHandlers) RequeueSelected(c *gin.Context) {
	var body requeueSelectedBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.dispatcher.RequeueSelected(c.Request.Context(), body.WindowID, body.Numbers); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
