package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/clock"
	"github.com/qoffice/dispatcher/internal/eventbus"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/numbering"
	"github.com/qoffice/dispatcher/internal/routing"
	"github.com/qoffice/dispatcher/internal/store/memory"
	"github.com/qoffice/dispatcher/internal/windows"
)

type allowAll struct{}

func (allowAll) Enabled(models.Office) bool { return true }

type fixture struct {
	disp  *Dispatcher
	store *memory.Store
	clock *clock.Clock
}

func newFixture(t *testing.T, windowsToSeed ...*models.Window) *fixture {
	t.Helper()
	c, err := clock.New("UTC")
	require.NoError(t, err)

	st := memory.New()
	for _, w := range windowsToSeed {
		st.SeedWindows(w)
	}
	win := windows.New(st.Windows())
	router := routing.New(st.Windows())
	numbers := numbering.New(numbering.NewStoreCounter(st.Tickets(), c), c)
	bus := eventbus.New(nil)
	t.Cleanup(bus.Stop)

	d := New(st, numbers, router, win, bus, c, allowAll{}, nil)
	return &fixture{disp: d, store: st, clock: c}
}

func seedService(t *testing.T, st *memory.Store, svc *models.Service) {
	t.Helper()
	st.SeedServices(svc)
}

func TestAdmitRegularRequiresContactFields(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, ServiceIDs: map[string]bool{"svc-1": true}})
	seedService(t, f.store, &models.Service{ID: "svc-1", Office: models.OfficeRegistrar, Name: "General Inquiry", Active: true})

	_, err := f.disp.Admit(context.Background(), AdmitRequest{
		Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent,
	})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestAdmitRegularCreatesTicketAndAssignsWindow(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, ServiceIDs: map[string]bool{"svc-1": true}})
	seedService(t, f.store, &models.Service{ID: "svc-1", Office: models.OfficeRegistrar, Name: "General Inquiry", Active: true})

	res, err := f.disp.Admit(context.Background(), AdmitRequest{
		Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent,
		Name: "Jane", Contact: "0900", Email: "jane@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Window 1", res.WindowName)
	assert.Equal(t, 1, res.Number)

	tk, err := f.store.Tickets().FindByID(context.Background(), res.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, tk.Status)
}

func TestAdmitDocumentRequestRequiresItems(t *testing.T) {
	f := newFixture(t)
	seedService(t, f.store, &models.Service{ID: "svc-dr", Office: models.OfficeRegistrar, Name: models.ServiceDocumentRequest, Active: true})

	_, err := f.disp.Admit(context.Background(), AdmitRequest{
		Office: models.OfficeRegistrar, ServiceName: models.ServiceDocumentRequest, Role: models.RoleStudent,
		Name: "Jane", Contact: "0900", Email: "jane@example.com",
	})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestAdmitDocumentClaimRequiresApprovedRequest(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true})
	seedService(t, f.store, &models.Service{ID: "svc-dc", Office: models.OfficeRegistrar, Name: models.ServiceDocumentClaim, Active: true})

	require.NoError(t, f.store.DocumentRequests().Create(context.Background(), &models.DocumentRequest{
		TransactionNo: "AB123456-001", Status: models.DocRequestPending,
	}))

	_, err := f.disp.Admit(context.Background(), AdmitRequest{
		Office: models.OfficeRegistrar, ServiceName: models.ServiceDocumentClaim, Role: models.RoleStudent,
		TransactionNo: "ab123456-001",
	})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestAdmitDocumentClaimSucceedsWhenApproved(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, ServiceIDs: map[string]bool{"svc-dc": true}})
	seedService(t, f.store, &models.Service{ID: "svc-dc", Office: models.OfficeRegistrar, Name: models.ServiceDocumentClaim, Active: true})

	require.NoError(t, f.store.DocumentRequests().Create(context.Background(), &models.DocumentRequest{
		TransactionNo: "AB123456-001", Status: models.DocRequestApproved, Name: "Jane", Contact: "0900", Email: "jane@example.com",
	}))

	res, err := f.disp.Admit(context.Background(), AdmitRequest{
		Office: models.OfficeRegistrar, ServiceName: models.ServiceDocumentClaim, Role: models.RoleStudent,
		TransactionNo: "ab123456-001",
	})
	require.NoError(t, err)
	assert.Equal(t, "AB123456-001", res.TransactionNo)
}

func TestAdmitEnrollRequiresStudentStatus(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeAdmissions, Name: "Window 1", IsOpen: true})
	seedService(t, f.store, &models.Service{ID: "svc-enroll", Office: models.OfficeAdmissions, Name: models.ServiceEnroll, Active: true})

	_, err := f.disp.Admit(context.Background(), AdmitRequest{
		Office: models.OfficeAdmissions, ServiceName: models.ServiceEnroll, Role: models.RoleStudent,
	})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestAdmitEnrollSucceedsWithoutForm(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeAdmissions, Name: "Window 1", IsOpen: true, ServiceIDs: map[string]bool{"svc-enroll": true}})
	seedService(t, f.store, &models.Service{ID: "svc-enroll", Office: models.OfficeAdmissions, Name: models.ServiceEnroll, Active: true})

	res, err := f.disp.Admit(context.Background(), AdmitRequest{
		Office: models.OfficeAdmissions, ServiceName: models.ServiceEnroll, Role: models.RoleStudent,
		StudentStatus: models.StudentIncomingNew,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.TicketID)
}

func TestNextSelectsOldestWaitingTicket(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true, ServiceIDs: map[string]bool{"svc-1": true}})
	seedService(t, f.store, &models.Service{ID: "svc-1", Office: models.OfficeRegistrar, Name: "General Inquiry", Active: true})

	ctx := context.Background()
	first, err := f.disp.Admit(ctx, AdmitRequest{Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent, Name: "A", Contact: "1", Email: "a@x.com"})
	require.NoError(t, err)
	_, err = f.disp.Admit(ctx, AdmitRequest{Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent, Name: "B", Contact: "2", Email: "b@x.com"})
	require.NoError(t, err)

	require.NoError(t, f.disp.Next(ctx, "w1", "agent-1"))

	tk, err := f.store.Tickets().FindByID(ctx, first.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusServing, tk.Status)
	assert.Equal(t, "agent-1", tk.ProcessedBy)
}

func TestNextFallsBackAcrossServiceWhenWindowHasNoDirectMatch(t *testing.T) {
	// w1 only accepts svc-1, but a ticket transferred in carries svc-2;
	// selectNextCandidate must still surface it via the documented fallback.
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true, ServiceIDs: map[string]bool{"svc-1": true}})
	ctx := context.Background()
	require.NoError(t, f.store.Tickets().Create(ctx, &models.Ticket{
		ID: "t1", Office: models.OfficeRegistrar, WindowID: "w1", ServiceID: "svc-2", Status: models.StatusWaiting,
	}))

	require.NoError(t, f.disp.Next(ctx, "w1", "agent-1"))

	tk, err := f.store.Tickets().FindByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusServing, tk.Status)
}

func TestNextPublishesNoMoreQueuesWhenEmpty(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true})
	assert.NoError(t, f.disp.Next(context.Background(), "w1", "agent-1"))
}

func TestNextRejectsWhenWindowNotServing(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: false})
	err := f.disp.Next(context.Background(), "w1", "agent-1")
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestRecallIsPureObserver(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true, ServiceIDs: map[string]bool{"svc-1": true}})
	seedService(t, f.store, &models.Service{ID: "svc-1", Office: models.OfficeRegistrar, Name: "General Inquiry", Active: true})
	ctx := context.Background()
	res, err := f.disp.Admit(ctx, AdmitRequest{Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent, Name: "A", Contact: "1", Email: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, f.disp.Next(ctx, "w1", "agent-1"))

	require.NoError(t, f.disp.Recall(ctx, "w1"))

	tk, err := f.store.Tickets().FindByID(ctx, res.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusServing, tk.Status, "recall must not mutate ticket state")
}

func TestRecallNotFoundWhenNobodyServing(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true})
	err := f.disp.Recall(context.Background(), "w1")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestPreviousLeavesStaleCompletedAtOnCurrentTicket(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true, ServiceIDs: map[string]bool{"svc-1": true}})
	seedService(t, f.store, &models.Service{ID: "svc-1", Office: models.OfficeRegistrar, Name: "General Inquiry", Active: true})
	ctx := context.Background()

	first, err := f.disp.Admit(ctx, AdmitRequest{Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent, Name: "A", Contact: "1", Email: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, f.disp.Next(ctx, "w1", "agent-1")) // serves `first`

	_, err = f.disp.Admit(ctx, AdmitRequest{Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent, Name: "B", Contact: "2", Email: "b@x.com"})
	require.NoError(t, err)
	require.NoError(t, f.disp.Next(ctx, "w1", "agent-1")) // completes `first`, serves `second`

	completedFirst, err := f.store.Tickets().FindByID(ctx, first.TicketID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, completedFirst.Status)
	require.NotNil(t, completedFirst.CompletedAt)

	require.NoError(t, f.disp.Previous(ctx, "w1"))

	reverted, err := f.store.Tickets().FindByID(ctx, first.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusServing, reverted.Status)
	assert.NotNil(t, reverted.CompletedAt, "previous leaves stale completedAt on the recalled ticket")
}

func TestPreviousNotFoundWhenNothingCompletedToday(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true})
	err := f.disp.Previous(context.Background(), "w1")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestSkipMarksCurrentThenCallsNext(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true, ServiceIDs: map[string]bool{"svc-1": true}})
	seedService(t, f.store, &models.Service{ID: "svc-1", Office: models.OfficeRegistrar, Name: "General Inquiry", Active: true})
	ctx := context.Background()

	first, err := f.disp.Admit(ctx, AdmitRequest{Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent, Name: "A", Contact: "1", Email: "a@x.com"})
	require.NoError(t, err)
	second, err := f.disp.Admit(ctx, AdmitRequest{Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent, Name: "B", Contact: "2", Email: "b@x.com"})
	require.NoError(t, err)
	require.NoError(t, f.disp.Next(ctx, "w1", "agent-1")) // serves `first`

	require.NoError(t, f.disp.Skip(ctx, "w1", "agent-1"))

	skipped, err := f.store.Tickets().FindByID(ctx, first.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, skipped.Status)
	assert.NotNil(t, skipped.SkippedAt)

	serving, err := f.store.Tickets().FindByID(ctx, second.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusServing, serving.Status)
}

func TestSkipWithNobodyServingOnlyAdvances(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true, ServiceIDs: map[string]bool{"svc-1": true}})
	seedService(t, f.store, &models.Service{ID: "svc-1", Office: models.OfficeRegistrar, Name: "General Inquiry", Active: true})
	ctx := context.Background()
	res, err := f.disp.Admit(ctx, AdmitRequest{Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent, Name: "A", Contact: "1", Email: "a@x.com"})
	require.NoError(t, err)

	require.NoError(t, f.disp.Skip(ctx, "w1", "agent-1"))

	tk, err := f.store.Tickets().FindByID(ctx, res.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusServing, tk.Status)
}

func TestTransferRequiresSameOffice(t *testing.T) {
	f := newFixture(t,
		&models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true},
		&models.Window{ID: "w2", Office: models.OfficeAdmissions, Name: "Window 2", IsOpen: true},
	)
	err := f.disp.Transfer(context.Background(), "w1", "w2")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestTransferRequiresDestinationOpen(t *testing.T) {
	f := newFixture(t,
		&models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true},
		&models.Window{ID: "w2", Office: models.OfficeRegistrar, Name: "Window 2", IsOpen: false},
	)
	err := f.disp.Transfer(context.Background(), "w1", "w2")
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestTransferMovesCurrentlyServingTicket(t *testing.T) {
	f := newFixture(t,
		&models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true, ServiceIDs: map[string]bool{"svc-1": true}},
		&models.Window{ID: "w2", Office: models.OfficeRegistrar, Name: "Window 2", IsOpen: true},
	)
	seedService(t, f.store, &models.Service{ID: "svc-1", Office: models.OfficeRegistrar, Name: "General Inquiry", Active: true})
	ctx := context.Background()
	res, err := f.disp.Admit(ctx, AdmitRequest{Office: models.OfficeRegistrar, ServiceName: "General Inquiry", Role: models.RoleStudent, Name: "A", Contact: "1", Email: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, f.disp.Next(ctx, "w1", "agent-1"))

	require.NoError(t, f.disp.Transfer(ctx, "w1", "w2"))

	tk, err := f.store.Tickets().FindByID(ctx, res.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "w2", tk.WindowID)
	assert.Equal(t, models.StatusWaiting, tk.Status)
	assert.Nil(t, tk.CalledAt)
}

func TestPauseResumeRejectsUnknownAction(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true})
	err := f.disp.PauseResume(context.Background(), "w1", "nap")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestPauseResumeTogglesServingFlag(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, IsServing: true})
	ctx := context.Background()

	require.NoError(t, f.disp.PauseResume(ctx, "w1", "pause"))
	w, err := f.store.Windows().FindByID(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, w.IsServing)

	require.NoError(t, f.disp.PauseResume(ctx, "w1", "resume"))
	w, err = f.store.Windows().FindByID(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, w.IsServing)
}

func TestRequeueSelectedSkipsUnlistedTickets(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, ServiceIDs: map[string]bool{"svc-1": true}})
	ctx := context.Background()
	require.NoError(t, f.store.Tickets().Create(ctx, &models.Ticket{
		ID: "t1", Office: models.OfficeRegistrar, WindowID: "w1", ServiceID: "svc-1", Number: 1, Status: models.StatusSkipped,
	}))
	require.NoError(t, f.store.Tickets().Create(ctx, &models.Ticket{
		ID: "t2", Office: models.OfficeRegistrar, WindowID: "w1", ServiceID: "svc-1", Number: 2, Status: models.StatusSkipped,
	}))

	require.NoError(t, f.disp.RequeueSelected(ctx, "w1", []int{2}))

	t1, _ := f.store.Tickets().FindByID(ctx, "t1")
	assert.Equal(t, models.StatusSkipped, t1.Status, "ticket not in the selection stays skipped")
	t2, _ := f.store.Tickets().FindByID(ctx, "t2")
	assert.Equal(t, models.StatusWaiting, t2.Status)
}

func TestRequeueAllResetsEverySkippedTicket(t *testing.T) {
	f := newFixture(t, &models.Window{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, ServiceIDs: map[string]bool{"svc-1": true}})
	ctx := context.Background()
	require.NoError(t, f.store.Tickets().Create(ctx, &models.Ticket{
		ID: "t1", Office: models.OfficeRegistrar, WindowID: "w1", ServiceID: "svc-1", Number: 1, Status: models.StatusSkipped,
	}))

	require.NoError(t, f.disp.RequeueAll(ctx, "w1"))

	t1, err := f.store.Tickets().FindByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, t1.Status)
	assert.Nil(t, t1.SkippedAt)
}

func TestSubmitRatingValidatesRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Tickets().Create(ctx, &models.Ticket{ID: "t1"}))

	assert.Equal(t, apperr.Validation, apperr.KindOf(f.disp.SubmitRating(ctx, "t1", 0)))
	assert.Equal(t, apperr.Validation, apperr.KindOf(f.disp.SubmitRating(ctx, "t1", 6)))

	require.NoError(t, f.disp.SubmitRating(ctx, "t1", 5))
	tk, err := f.store.Tickets().FindByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, tk.Rating)
	assert.Equal(t, 5, *tk.Rating)
}
