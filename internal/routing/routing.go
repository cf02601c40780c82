// Package routing implements the routing rules (C4): given an office,
// a service, and a priority flag, select the target window.
package routing

import (
	"context"
	"sort"

	"github.com/qoffice/dispatcher/internal/apperr"
	"github.com/qoffice/dispatcher/internal/models"
)

// WindowLister is the subset of the store's Windows gateway routing needs.
type WindowLister interface {
	List(ctx context.Context, office models.Office) ([]*models.Window, error)
}

// Service implements the routing rules of §4.4.
type Service struct {
	windows WindowLister
}

func New(windows WindowLister) *Service {
	return &Service{windows: windows}
}

// Route selects the window a new ticket for (office, serviceID, priority)
// should be assigned to.
func (s *Service) Route(ctx context.Context, office models.Office, serviceID string, priority bool) (*models.Window, error) {
	all, err := s.windows.List(ctx, office)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	if priority {
		for _, w := range all {
			if w.IsPriority() && w.IsOpen {
				return w, nil
			}
		}
		return nil, apperr.NewUnavailable("priority window closed or absent", nil)
	}

	var candidates []*models.Window
	for _, w := range all {
		if w.IsOpen && !w.IsPriority() && w.AcceptsService(serviceID) {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return nil, apperr.NewUnavailable("no open window serves this service", nil)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	return candidates[0], nil
}
