package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"
	"gorm.io/datatypes"

	"appstore/internal/model"
	"appstore/internal/repository"
	"appstore/internal/storage"
)

// BundleURLExpiry bounds the lifetime of presigned bundle links.
const BundleURLExpiry = 15 * time.Minute

type CreateAppInput struct {
	Prompt      string
	Model       string
	Name        string
	Description string
	Version     string
	Price       float64
	Icon        string
	SourceCode  *string
}

type AppService interface {
	List(ctx context.Context, limit, offset int) (*ListResult[model.App], error)
	Create(ctx context.Context, in CreateAppInput) (*model.App, error)
	UpdateSourceCode(ctx context.Context, appID, sourceCode string) (*model.App, error)
	// ListPublished filters on status before paginating; Total is the filtered count.
	ListPublished(ctx context.Context, limit, offset int) (*ListResult[model.App], error)
	// BundleURL returns a presigned link to a released app's bundle.
	BundleURL(ctx context.Context, appID string) (string, error)
	// Bundle streams a released app's bundle. The caller closes the reader.
	Bundle(ctx context.Context, appID string) (io.ReadCloser, storage.ObjectInfo, error)
}

type appService struct {
	docs   repository.DocumentRepository
	apps   *repository.Apps
	store  storage.Storage
	now    func() time.Time
	logger zerolog.Logger
}

func NewAppService(docs repository.DocumentRepository, store storage.Storage, logger zerolog.Logger) AppService {
	return &appService{
		docs:   docs,
		apps:   repository.NewApps(docs),
		store:  store,
		now:    time.Now,
		logger: logger.With().Str("component", "app_service").Logger(),
	}
}

func appViews(docs []model.Document) []model.App {
	out := make([]model.App, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.AppFromDocument(d))
	}
	return out
}

func (s *appService) List(ctx context.Context, limit, offset int) (*ListResult[model.App], error) {
	pq := repository.PageQuery{Limit: limit, Offset: offset}.Normalize()
	res, err := s.docs.List(ctx, model.CollectionApps, pq)
	if err != nil {
		return nil, err
	}
	return newListResult(appViews(res.Items), res.Total, pq), nil
}

func (s *appService) Create(ctx context.Context, in CreateAppInput) (*model.App, error) {
	data := map[string]any{
		"id":          uuid.NewString(),
		"name":        in.Name,
		"description": in.Description,
		"version":     in.Version,
		"price":       in.Price,
		"icon":        in.Icon,
		"installed":   1,
		"source_code": in.SourceCode,
		"prompt":      in.Prompt,
		"model":       in.Model,
		"status":      model.StatusDraft,
		"created_at":  model.FormatTime(s.now()),
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Create(ctx, model.CollectionApps, datatypes.JSON(b))
	if err != nil {
		return nil, err
	}
	app := model.AppFromDocument(*doc)
	return &app, nil
}

func (s *appService) UpdateSourceCode(ctx context.Context, appID, sourceCode string) (*model.App, error) {
	doc, err := s.apps.FindByLogicalID(ctx, appID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	patched, err := sjson.SetBytes(doc.Data, "source_code", sourceCode)
	if err != nil {
		return nil, fmt.Errorf("patch source_code: %w", err)
	}
	updated, err := s.docs.Update(ctx, model.CollectionApps, doc.ID, datatypes.JSON(patched))
	if err != nil {
		return nil, mapRepoErr(err)
	}
	app := model.AppFromDocument(*updated)
	return &app, nil
}

func (s *appService) ListPublished(ctx context.Context, limit, offset int) (*ListResult[model.App], error) {
	pq := repository.PageQuery{Limit: limit, Offset: offset}.Normalize()
	docs, err := s.apps.Published(ctx)
	if err != nil {
		return nil, err
	}
	page := repository.Paginate(appViews(docs), pq)
	return newListResult(page.Items, page.Total, pq), nil
}

func (s *appService) bundleKey(ctx context.Context, appID string) (string, error) {
	doc, err := s.apps.FindByLogicalID(ctx, appID)
	if err != nil {
		return "", mapRepoErr(err)
	}
	app := model.AppFromDocument(*doc)
	if app.BundleKey == nil || *app.BundleKey == "" {
		return "", ErrNotFound
	}
	return *app.BundleKey, nil
}

func (s *appService) BundleURL(ctx context.Context, appID string) (string, error) {
	key, err := s.bundleKey(ctx, appID)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignGet(ctx, key, BundleURLExpiry)
	if errors.Is(err, storage.ErrDisabled) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("presign bundle: %w", err)
	}
	return url, nil
}

func (s *appService) Bundle(ctx context.Context, appID string) (io.ReadCloser, storage.ObjectInfo, error) {
	key, err := s.bundleKey(ctx, appID)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	rc, info, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrDisabled) {
		return nil, storage.ObjectInfo{}, ErrNotFound
	}
	if err != nil {
		return nil, storage.ObjectInfo{}, fmt.Errorf("get bundle: %w", err)
	}
	return rc, info, nil
}
