package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"appstore/internal/model"
	"appstore/internal/repository"
)

type DashboardService interface {
	// Get returns the saved layout, or an unsaved empty one.
	Get(ctx context.Context) (*model.DashboardLayout, error)
	// Save replaces the widgets of the singleton layout, creating it on first use.
	Save(ctx context.Context, widgets []model.Widget) (*model.DashboardLayout, error)
}

type dashboardService struct {
	docs    repository.DocumentRepository
	layouts *repository.Layouts
	now     func() time.Time
	logger  zerolog.Logger
}

func NewDashboardService(docs repository.DocumentRepository, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		docs:    docs,
		layouts: repository.NewLayouts(docs),
		now:     time.Now,
		logger:  logger.With().Str("component", "dashboard_service").Logger(),
	}
}

func (s *dashboardService) Get(ctx context.Context) (*model.DashboardLayout, error) {
	doc, err := s.layouts.FindSingleton(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		l := model.EmptyLayout()
		return &l, nil
	}
	if err != nil {
		return nil, err
	}
	l := model.LayoutFromDocument(*doc)
	return &l, nil
}

func (s *dashboardService) Save(ctx context.Context, widgets []model.Widget) (*model.DashboardLayout, error) {
	if widgets == nil {
		widgets = []model.Widget{}
	}
	data, err := marshalData(map[string]any{
		"id":         model.LayoutID,
		"widgets":    widgets,
		"updated_at": model.FormatTime(s.now()),
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.layouts.FindSingleton(ctx)
	var doc *model.Document
	switch {
	case errors.Is(err, repository.ErrNotFound):
		doc, err = s.docs.Create(ctx, model.CollectionDashboardLayouts, data)
	case err != nil:
		return nil, err
	default:
		doc, err = s.docs.Update(ctx, model.CollectionDashboardLayouts, existing.ID, data)
	}
	if err != nil {
		return nil, mapRepoErr(err)
	}

	l := model.LayoutFromDocument(*doc)
	s.logger.Debug().Int("widgets", len(l.Widgets)).Msg("dashboard layout saved")
	return &l, nil
}
