package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"appstore/internal/model"
	"appstore/internal/repository"
)

// DocumentService exposes the collection-agnostic store to HTTP callers.
type DocumentService interface {
	Create(ctx context.Context, collection string, data json.RawMessage) (*model.Document, error)
	Get(ctx context.Context, collection, id string) (*model.Document, error)
	Update(ctx context.Context, collection, id string, data json.RawMessage) (*model.Document, error)
	// Delete returns ErrNotFound when nothing was removed.
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string, limit, offset int) (*ListResult[model.Document], error)
	Collections(ctx context.Context) ([]string, error)
	// Query runs a read-only statement. Anything but SELECT or PRAGMA is ErrQueryRejected.
	Query(ctx context.Context, query string) ([]map[string]any, error)
	// Reset wipes every collection and re-seeds the default apps.
	Reset(ctx context.Context) error
}

type documentService struct {
	repo   repository.DocumentRepository
	seeder *Seeder
	logger zerolog.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(repo repository.DocumentRepository, seeder *Seeder, logger zerolog.Logger) DocumentService {
	return &documentService{
		repo:   repo,
		seeder: seeder,
		logger: logger.With().Str("component", "document_service").Logger(),
	}
}

func payload(data json.RawMessage) (datatypes.JSON, error) {
	if len(data) == 0 || !json.Valid(data) {
		return nil, fmt.Errorf("%w: data must be a JSON value", ErrInvalidInput)
	}
	return datatypes.JSON(data), nil
}

func (s *documentService) Create(ctx context.Context, collection string, data json.RawMessage) (*model.Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrInvalidInput)
	}
	p, err := payload(data)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, collection, p)
}

func (s *documentService) Get(ctx context.Context, collection, id string) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, collection, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return doc, nil
}

func (s *documentService) Update(ctx context.Context, collection, id string, data json.RawMessage) (*model.Document, error) {
	p, err := payload(data)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.Update(ctx, collection, id, p)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return doc, nil
}

func (s *documentService) Delete(ctx context.Context, collection, id string) error {
	deleted, err := s.repo.Delete(ctx, collection, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *documentService) List(ctx context.Context, collection string, limit, offset int) (*ListResult[model.Document], error) {
	pq := repository.PageQuery{Limit: limit, Offset: offset}.Normalize()
	res, err := s.repo.List(ctx, collection, pq)
	if err != nil {
		return nil, err
	}
	return newListResult(res.Items, res.Total, pq), nil
}

func (s *documentService) Collections(ctx context.Context) ([]string, error) {
	return s.repo.ListCollections(ctx)
}

func (s *documentService) Query(ctx context.Context, query string) ([]map[string]any, error) {
	if err := repository.GuardRawQuery(query); err != nil {
		s.logger.Warn().Str("event", "raw_query_rejected").Str("query", query).Msg("rejected raw query")
		return nil, err
	}
	return s.repo.RawQuery(ctx, query)
}

func (s *documentService) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	s.logger.Warn().Str("event", "db_reset").Msg("all collections dropped")
	if s.seeder == nil {
		return nil
	}
	return s.seeder.Seed(ctx)
}
