package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/models"
)

type fakeLister struct {
	windows []*models.Window
}

func (f *fakeLister) List(ctx context.Context, office models.Office) ([]*models.Window, error) {
	var out []*models.Window
	for _, w := range f.windows {
		if w.Office == office {
			out = append(out, w)
		}
	}
	return out, nil
}

func TestRoutePicksOpenPriorityWindow(t *testing.T) {
	s := New(&fakeLister{windows: []*models.Window{
		{ID: "w1", Office: models.OfficeRegistrar, Name: models.PriorityWindowName, IsOpen: true},
		{ID: "w2", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true},
	}})

	win, err := s.Route(context.Background(), models.OfficeRegistrar, "svc-1", true)
	require.NoError(t, err)
	assert.Equal(t, "w1", win.ID)
}

func TestRouteFailsWhenPriorityWindowClosed(t *testing.T) {
	s := New(&fakeLister{windows: []*models.Window{
		{ID: "w1", Office: models.OfficeRegistrar, Name: models.PriorityWindowName, IsOpen: false},
	}})

	_, err := s.Route(context.Background(), models.OfficeRegistrar, "svc-1", true)
	assert.Equal(t, apperr.Unavailable, apperr.KindOf(err))
}

func TestRoutePicksOpenWindowAcceptingService(t *testing.T) {
	s := New(&fakeLister{windows: []*models.Window{
		{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, ServiceIDs: map[string]bool{"svc-2": true}},
		{ID: "w2", Office: models.OfficeRegistrar, Name: "Window 2", IsOpen: true, ServiceIDs: map[string]bool{"svc-1": true}},
	}})

	win, err := s.Route(context.Background(), models.OfficeRegistrar, "svc-1", false)
	require.NoError(t, err)
	assert.Equal(t, "w2", win.ID)
}

func TestRouteBreaksTiesByWindowName(t *testing.T) {
	s := New(&fakeLister{windows: []*models.Window{
		{ID: "w-b", Office: models.OfficeRegistrar, Name: "Window B", IsOpen: true, ServiceIDs: map[string]bool{"svc-1": true}},
		{ID: "w-a", Office: models.OfficeRegistrar, Name: "Window A", IsOpen: true, ServiceIDs: map[string]bool{"svc-1": true}},
	}})

	win, err := s.Route(context.Background(), models.OfficeRegistrar, "svc-1", false)
	require.NoError(t, err)
	assert.Equal(t, "w-a", win.ID)
}

func TestRouteFailsWhenNoWindowServesService(t *testing.T) {
	s := New(&fakeLister{windows: []*models.Window{
		{ID: "w1", Office: models.OfficeRegistrar, Name: "Window 1", IsOpen: true, ServiceIDs: map[string]bool{"svc-2": true}},
	}})

	_, err := s.Route(context.Background(), models.OfficeRegistrar, "svc-1", false)
	assert.Equal(t, apperr.Unavailable, apperr.KindOf(err))
}

func TestRouteSkipsPriorityWindowForRegularTickets(t *testing.T) {
	s := New(&fakeLister{windows: []*models.Window{
		{ID: "w1", Office: models.OfficeRegistrar, Name: models.PriorityWindowName, IsOpen: true, ServiceIDs: map[string]bool{"svc-1": true}},
	}})

	_, err := s.Route(context.Background(), models.OfficeRegistrar, "svc-1", false)
	assert.Equal(t, apperr.Unavailable, apperr.KindOf(err))
}
