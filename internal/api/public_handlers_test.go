package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qoffice/dispatcher/internal/clock"
	"github.com/qoffice/dispatcher/internal/config"
	"github.com/qoffice/dispatcher/internal/dispatcher"
	"github.com/qoffice/dispatcher/internal/eventbus"
	"github.com/qoffice/dispatcher/internal/lookup"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/numbering"
	"github.com/qoffice/dispatcher/internal/routing"
	"github.com/qoffice/dispatcher/internal/store/memory"
	"github.com/qoffice/dispatcher/internal/windows"
)

type allowAll struct{}

func (allowAll) Enabled(models.Office) bool { return true }

func newPublicHandlers(t *testing.T) (*PublicHandlers, *memory.Store) {
	t.Helper()
	_ = config.Load("../../configs")

	st := memory.New()
	st.SeedServices(&models.Service{ID: "svc-1", Office: models.OfficeRegistrar, Name: "General Inquiry", Active: true})
	st.SeedWindows(&models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true, ServiceIDs: map[string]bool{"svc-1": true}})

	c, err := clock.New("UTC")
	require.NoError(t, err)
	win := windows.New(st.Windows())
	router := routing.New(st.Windows())
	numbers := numbering.New(numbering.NewStoreCounter(st.Tickets(), c), c)
	bus := eventbus.New(nil)
	t.Cleanup(bus.Stop)
	d := dispatcher.New(st, numbers, router, win, bus, c, allowAll{}, nil)
	l := lookup.New(st, nil, nil)

	return NewPublicHandlers(d, l, st), st
}

func doRequest(method, path, body string, params gin.Params, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, strings.NewReader(body))
	c.Params = params
	handler(c)
	return w
}

func TestAdmitRejectsBodyFailingShapeValidation(t *testing.T) {
	h, _ := newPublicHandlers(t)
	w := doRequest(http.MethodPost, "/queue", `{"office":"registrar"}`, nil, h.Admit)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmitCreatesTicketAndReturnsPortalURL(t *testing.T) {
	h, _ := newPublicHandlers(t)
	body := `{"office":"registrar","serviceName":"General Inquiry","role":"Student","name":"Jane","contact":"0900","email":"jane@example.com"}`
	w := doRequest(http.MethodPost, "/queue", body, nil, h.Admit)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"portalUrl":"/queue/lookup/`)
}

func TestQueueSnapshotRejectsInvalidOffice(t *testing.T) {
	h, _ := newPublicHandlers(t)
	w := doRequest(http.MethodGet, "/queue/bogus", "", gin.Params{{Key: "office", Value: "bogus"}}, h.QueueSnapshot)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueSnapshotReturnsOpenWindows(t *testing.T) {
	h, _ := newPublicHandlers(t)
	w := doRequest(http.MethodGet, "/queue/registrar", "", gin.Params{{Key: "office", Value: "registrar"}}, h.QueueSnapshot)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Window 1")
}

func TestTicketLookupNotFoundForUnknownID(t *testing.T) {
	h, _ := newPublicHandlers(t)
	w := doRequest(http.MethodGet, "/queue/lookup/missing", "", gin.Params{{Key: "ticketId", Value: "missing"}}, h.TicketLookup)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitRatingRejectsOutOfRangeValue(t *testing.T) {
	h, st := newPublicHandlers(t)
	require.NoError(t, st.Tickets().Create(context.Background(), &models.Ticket{ID: "t1"}))

	w := doRequest(http.MethodPost, "/queue/t1/rating", `{"rating":9}`, gin.Params{{Key: "ticketId", Value: "t1"}}, h.SubmitRating)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServicesListsOfficeServicesPaginated(t *testing.T) {
	h, _ := newPublicHandlers(t)
	w := doRequest(http.MethodGet, "/services/registrar", "", gin.Params{{Key: "office", Value: "registrar"}}, h.Services)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "General Inquiry")
}

func TestOfficeStatusReportsOpenWindowCount(t *testing.T) {
	h, _ := newPublicHandlers(t)
	w := doRequest(http.MethodGet, "/office-status/registrar", "", gin.Params{{Key: "office", Value: "registrar"}}, h.OfficeStatus)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"windowsOpen":1`)
}

func TestLocationReturnsConfiguredAddress(t *testing.T) {
	h, _ := newPublicHandlers(t)
	w := doRequest(http.MethodGet, "/location/registrar", "", gin.Params{{Key: "office", Value: "registrar"}}, h.Location)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Main Building")
}
