package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/config"
	"github.com/qoffice/dispatcher/internal/dispatcher"
	"github.com/qoffice/dispatcher/internal/lookup"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/store"
	"github.com/qoffice/dispatcher/internal/utils"
)

// PublicHandlers serves the no-auth admit, snapshot and lookup surface
// of §6.1.
type PublicHandlers struct {
	dispatcher *dispatcher.Dispatcher
	lookup     *lookup.Service
	store      store.Store
	sanitizer  *utils.HTMLSanitizer
}

func NewPublicHandlers(d *dispatcher.Dispatcher, l *lookup.Service, st store.Store) *PublicHandlers {
	return &PublicHandlers{dispatcher: d, lookup: l, store: st, sanitizer: utils.NewHTMLSanitizer()}
}

// admitRequestBody mirrors dispatcher.AdmitRequest for JSON binding.
type admitRequestBody struct {
	Office        models.Office        `json:"office" binding:"required"`
	ServiceName   string               `json:"serviceName" binding:"required"`
	Role          models.Role          `json:"role" binding:"required"`
	Priority      bool                 `json:"priority"`
	StudentStatus models.StudentStatus `json:"studentStatus"`
	Name          string               `json:"name"`
	Contact       string               `json:"contact"`
	Email         string               `json:"email"`
	Address       string               `json:"address"`
	IDNumber      string               `json:"idNumber"`
	TransactionNo string               `json:"transactionNo"`
	RequestItems  []string             `json:"requestItems"`
}

// Admit implements POST /queue.
func (h *PublicHandlers) Admit(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		fail(c, apperr.NewValidation("could not read request body"))
		return
	}

	var probe struct {
		ServiceName string `json:"serviceName"`
	}
	if jsonErr := bindRaw(raw, &probe); jsonErr != nil {
		fail(c, apperr.NewValidation("malformed request body"))
		return
	}
	if shapeErr := validateAdmitShape(raw, probe.ServiceName); shapeErr != nil {
		fail(c, shapeErr)
		return
	}

	var body admitRequestBody
	if bindErr := bindRaw(raw, &body); bindErr != nil {
		fail(c, apperr.NewValidation(bindErr.Error()))
		return
	}

	result, err := h.dispatcher.Admit(c.Request.Context(), dispatcher.AdmitRequest{
		Office:        body.Office,
		ServiceName:   body.ServiceName,
		Role:          body.Role,
		Priority:      body.Priority,
		StudentStatus: body.StudentStatus,
		Name:          utils.FilterUnicode(h.sanitizer.Sanitize(body.Name)),
		Contact:       utils.FilterUnicode(h.sanitizer.Sanitize(body.Contact)),
		Email:         h.sanitizer.Sanitize(body.Email),
		Address:       utils.FilterUnicode(h.sanitizer.Sanitize(body.Address)),
		IDNumber:      h.sanitizer.Sanitize(body.IDNumber),
		TransactionNo: body.TransactionNo,
		RequestItems:  body.RequestItems,
	})
	if err != nil {
		fail(c, err)
		return
	}

	portalURL := ""
	if result.TicketID != "" {
		portalURL = "/queue/lookup/" + result.TicketID
	}
	ok(c, gin.H{
		"ticketId":      result.TicketID,
		"number":        result.Number,
		"office":        result.Office,
		"serviceName":   result.ServiceName,
		"transactionNo": result.TransactionNo,
		"windowName":    result.WindowName,
		"priority":      result.Priority,
		"portalUrl":     portalURL,
	})
}

// QueueSnapshot implements GET /queue/{office}.
func (h *PublicHandlers) QueueSnapshot(c *gin.Context) {
	office := models.Office(c.Param("office"))
	if !office.Valid() {
		fail(c, apperr.NewValidation("invalid office"))
		return
	}
	snap, err := h.lookup.PublicQueueSnapshot(c.Request.Context(), office)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, snap)
}

// TicketLookup implements GET /queue/lookup/{ticketId}.
func (h *PublicHandlers) TicketLookup(c *gin.Context) {
	proj, err := h.lookup.TicketByID(c.Request.Context(), c.Param("ticketId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, proj)
}

type ratingBody struct {
	Rating int `json:"rating" binding:"required"`
}

// SubmitRating implements POST /queue/{ticketId}/rating.
func (h *PublicHandlers) SubmitRating(c *gin.Context) {
	var body ratingBody
	if !bindJSON(c, &body) {
		return
	}
	if err := h.dispatcher.SubmitRating(c.Request.Context(), c.Param("ticketId"), body.Rating); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Services implements GET /services/{office}.
func (h *PublicHandlers) Services(c *gin.Context) {
	office := models.Office(c.Param("office"))
	if !office.Valid() {
		fail(c, apperr.NewValidation("invalid office"))
		return
	}
	list, err := h.store.Services().List(c.Request.Context(), office)
	if err != nil {
		fail(c, err)
		return
	}
	paginate(c, list)
}

// Windows implements GET /windows/{office}.
func (h *PublicHandlers) Windows(c *gin.Context) {
	office := models.Office(c.Param("office"))
	if !office.Valid() {
		fail(c, apperr.NewValidation("invalid office"))
		return
	}
	list, err := h.store.Windows().List(c.Request.Context(), office)
	if err != nil {
		fail(c, err)
		return
	}
	paginate(c, list)
}

// OfficeStatus implements GET /office-status/{office}.
func (h *PublicHandlers) OfficeStatus(c *gin.Context) {
	office := models.Office(c.Param("office"))
	if !office.Valid() {
		fail(c, apperr.NewValidation("invalid office"))
		return
	}
	cfg := config.Get()
	enabled := false
	for _, o := range cfg.Offices.Enabled() {
		if o == office {
			enabled = true
		}
	}

	windows, err := h.store.Windows().List(c.Request.Context(), office)
	if err != nil {
		fail(c, err)
		return
	}
	open := 0
	for _, w := range windows {
		if w.IsOpen {
			open++
		}
	}
	ok(c, gin.H{"office": office, "enabled": enabled, "windowsOpen": open, "windowsTotal": len(windows)})
}

// Location implements GET /location/{office}.
func (h *PublicHandlers) Location(c *gin.Context) {
	office := models.Office(c.Param("office"))
	if !office.Valid() {
		fail(c, apperr.NewValidation("invalid office"))
		return
	}
	cfg := config.Get()
	ok(c, gin.H{"office": office, "location": cfg.Offices.Locations[string(office)]})
}
