package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/store"
)

func TestBuildTicketWhereDefaultsToMatchAll(t *testing.T) {
	where, args := buildTicketWhere(store.TicketFilter{}, 1)
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestBuildTicketWhereCombinesClausesWithAnd(t *testing.T) {
	priority := true
	where, args := buildTicketWhere(store.TicketFilter{
		Office:   models.OfficeRegistrar,
		WindowID: "w1",
		Priority: &priority,
	}, 1)

	assert.Equal(t, `1=1 AND office = $1 AND window_id = $2 AND (payload->>'priority')::boolean = $3`, where)
	assert.Equal(t, []any{"registrar", "w1", true}, args)
}

func TestBuildTicketWhereStatusInClauseNumbersPlaceholdersSequentially(t *testing.T) {
	where, args := buildTicketWhere(store.TicketFilter{
		Status: []models.TicketStatus{models.StatusWaiting, models.StatusSkipped},
	}, 3)

	assert.Equal(t, "1=1 AND status IN ($3, $4)", where)
	assert.Equal(t, []any{"waiting", "skipped"}, args)
}

func TestBuildTicketWhereEmptyServiceIDsSetMatchesNothing(t *testing.T) {
	where, _ := buildTicketWhere(store.TicketFilter{ServiceIDs: map[string]bool{"svc-1": false}}, 1)
	assert.Contains(t, where, "1=0")
}

func TestBuildTicketWhereNonEmptyServiceIDsRendersInClause(t *testing.T) {
	where, args := buildTicketWhere(store.TicketFilter{ServiceIDs: map[string]bool{"svc-1": true}}, 1)
	assert.Contains(t, where, "(payload->>'serviceId') IN ($1)")
	assert.Equal(t, []any{"svc-1"}, args)
}

func TestJoinCommaAndJoinAnd(t *testing.T) {
	assert.Equal(t, "", joinComma(nil))
	assert.Equal(t, "a, b, c", joinComma([]string{"a", "b", "c"}))
	assert.Equal(t, "", joinAnd(nil))
	assert.Equal(t, "a AND b", joinAnd([]string{"a", "b"}))
}

func TestDecodeTicketRoundTrips(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"t1","office":"registrar","number":3,"queuedAt":"` + now.Format(time.RFC3339) + `"}`)

	tk, err := decodeTicket(payload)
	require.NoError(t, err)
	assert.Equal(t, "t1", tk.ID)
	assert.Equal(t, 3, tk.Number)
}

func TestDecodeTicketRejectsMalformedPayload(t *testing.T) {
	_, err := decodeTicket([]byte(`not json`))
	assert.Error(t, err)
}

func TestIsUniqueViolationMatchesCode23505(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("not a pq error")))
	assert.False(t, isUniqueViolation(nil))
}
