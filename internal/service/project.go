package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"
	"gorm.io/datatypes"

	"appstore/internal/completion"
	"appstore/internal/model"
	"appstore/internal/repository"
	"appstore/internal/storage"
)

// maxIncrementAttempts bounds the compare-and-swap loop on current_version.
const maxIncrementAttempts = 5

// MetadataGenerator names and describes a new project from its prompt.
type MetadataGenerator interface {
	GenerateMetadata(ctx context.Context, prompt, model string) (*completion.AppMetadata, error)
}

type CreateProjectInput struct {
	Prompt string
	Model  *string
}

// UpdateProjectInput carries a partial update; nil fields are left untouched.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Icon        *string
	Status      *string
}

type CreateVersionInput struct {
	Prompt     string
	SourceCode string
	Model      *string
}

// ReleaseInput selects the version to publish. Price defaults to 0.
type ReleaseInput struct {
	Version int
	Price   *float64
}

type ProjectService interface {
	Create(ctx context.Context, in CreateProjectInput) (*model.Project, error)
	List(ctx context.Context, limit, offset int) (*ListResult[model.Project], error)
	// Get returns the project with its versions in ascending version order.
	Get(ctx context.Context, projectID string) (*model.Project, error)
	Update(ctx context.Context, projectID string, in UpdateProjectInput) (*model.Project, error)
	// Delete removes the project, then its versions best-effort.
	Delete(ctx context.Context, projectID string) error
	CreateVersion(ctx context.Context, projectID string, in CreateVersionInput) (*model.ProjectVersion, error)
	ListVersions(ctx context.Context, projectID string) ([]model.ProjectVersion, error)
	// Release publishes one version as a new app.
	Release(ctx context.Context, projectID string, in ReleaseInput) (*model.App, error)
	ListPublished(ctx context.Context, limit, offset int) (*ListResult[model.Project], error)
}

type projectService struct {
	docs     repository.DocumentRepository
	projects *repository.Projects
	versions *repository.Versions
	meta     MetadataGenerator
	store    storage.Storage
	now      func() time.Time
	logger   zerolog.Logger
}

func NewProjectService(docs repository.DocumentRepository, meta MetadataGenerator, store storage.Storage, logger zerolog.Logger) ProjectService {
	return &projectService{
		docs:     docs,
		projects: repository.NewProjects(docs),
		versions: repository.NewVersions(docs),
		meta:     meta,
		store:    store,
		now:      time.Now,
		logger:   logger.With().Str("component", "project_service").Logger(),
	}
}

func marshalData(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (s *projectService) Create(ctx context.Context, in CreateProjectInput) (*model.Project, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	modelName := ""
	if in.Model != nil {
		modelName = *in.Model
	}
	md, err := s.meta.GenerateMetadata(ctx, in.Prompt, modelName)
	if err != nil {
		return nil, err
	}

	now := model.FormatTime(s.now())
	data, err := marshalData(map[string]any{
		"id":              uuid.NewString(),
		"name":            md.Name,
		"description":     md.Description,
		"icon":            md.Icon,
		"status":          model.StatusDraft,
		"current_version": 0,
		"initial_prompt":  in.Prompt,
		"initial_model":   in.Model,
		"created_at":      now,
		"updated_at":      now,
	})
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Create(ctx, model.CollectionProjects, data)
	if err != nil {
		return nil, err
	}
	p := model.ProjectFromDocument(*doc)
	s.logger.Info().Str("event", "project_created").Str("project_id", p.ID).Msg("project created")
	return &p, nil
}

func projectViews(docs []model.Document) []model.Project {
	out := make([]model.Project, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.ProjectFromDocument(d))
	}
	return out
}

func versionViews(docs []model.Document) []model.ProjectVersion {
	out := make([]model.ProjectVersion, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.VersionFromDocument(d))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out
}

func (s *projectService) List(ctx context.Context, limit, offset int) (*ListResult[model.Project], error) {
	pq := repository.PageQuery{Limit: limit, Offset: offset}.Normalize()
	res, err := s.docs.List(ctx, model.CollectionProjects, pq)
	if err != nil {
		return nil, err
	}
	return newListResult(projectViews(res.Items), res.Total, pq), nil
}

func (s *projectService) Get(ctx context.Context, projectID string) (*model.Project, error) {
	doc, err := s.projects.FindByLogicalID(ctx, projectID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	vdocs, err := s.versions.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	p := model.ProjectFromDocument(*doc)
	p.Versions = versionViews(vdocs)
	if p.CurrentVersion == 0 {
		s.logger.Debug().Str("project_id", projectID).Msg("project has no versions yet")
	}
	return &p, nil
}

func (s *projectService) Update(ctx context.Context, projectID string, in UpdateProjectInput) (*model.Project, error) {
	doc, err := s.projects.FindByLogicalID(ctx, projectID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	data := string(doc.Data)
	for path, v := range map[string]*string{
		"name":        in.Name,
		"description": in.Description,
		"icon":        in.Icon,
		"status":      in.Status,
	} {
		if v == nil {
			continue
		}
		if data, err = sjson.Set(data, path, *v); err != nil {
			return nil, fmt.Errorf("patch %s: %w", path, err)
		}
	}
	if data, err = sjson.Set(data, "updated_at", model.FormatTime(s.now())); err != nil {
		return nil, fmt.Errorf("patch updated_at: %w", err)
	}

	updated, err := s.docs.Update(ctx, model.CollectionProjects, doc.ID, datatypes.JSON(data))
	if err != nil {
		return nil, mapRepoErr(err)
	}
	p := model.ProjectFromDocument(*updated)
	return &p, nil
}

func (s *projectService) Delete(ctx context.Context, projectID string) error {
	doc, err := s.projects.FindByLogicalID(ctx, projectID)
	if err != nil {
		return mapRepoErr(err)
	}
	deleted, err := s.docs.Delete(ctx, model.CollectionProjects, doc.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	// The project is gone from here on; version cleanup failures leave orphans.
	vdocs, err := s.versions.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("event", "cascade_failed").
			Str("project_id", projectID).
			Msg("could not list versions of deleted project")
		return nil
	}
	removed := 0
	for _, v := range vdocs {
		ok, err := s.docs.Delete(ctx, model.CollectionProjectVersions, v.ID)
		if err != nil {
			s.logger.Error().Err(err).
				Str("event", "cascade_failed").
				Str("project_id", projectID).
				Str("version_doc_id", v.ID).
				Msg("could not delete project version")
			continue
		}
		if ok {
			removed++
		}
	}
	s.logger.Info().
		Str("event", "project_deleted").
		Str("project_id", projectID).
		Int("versions_removed", removed).
		Int("versions_found", len(vdocs)).
		Msg("project deleted")
	return nil
}

// reserveVersion atomically bumps current_version and returns the reserved number.
func (s *projectService) reserveVersion(ctx context.Context, projectID string) (int, error) {
	for attempt := 1; attempt <= maxIncrementAttempts; attempt++ {
		doc, err := s.projects.FindByLogicalID(ctx, projectID)
		if err != nil {
			return 0, mapRepoErr(err)
		}
		next := model.ProjectFromDocument(*doc).CurrentVersion + 1

		data, err := sjson.SetBytes(doc.Data, "current_version", next)
		if err != nil {
			return 0, fmt.Errorf("patch current_version: %w", err)
		}
		data, err = sjson.SetBytes(data, "updated_at", model.FormatTime(s.now()))
		if err != nil {
			return 0, fmt.Errorf("patch updated_at: %w", err)
		}

		_, err = s.docs.UpdateIf(ctx, model.CollectionProjects, doc.ID, datatypes.JSON(data), doc.UpdatedAt)
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Debug().Str("project_id", projectID).Int("attempt", attempt).Msg("version counter moved, retrying")
			continue
		}
		if err != nil {
			return 0, mapRepoErr(err)
		}
		return next, nil
	}
	return 0, ErrConflict
}

func (s *projectService) CreateVersion(ctx context.Context, projectID string, in CreateVersionInput) (*model.ProjectVersion, error) {
	n, err := s.reserveVersion(ctx, projectID)
	if err != nil {
		return nil, err
	}

	data, err := marshalData(map[string]any{
		"id":             uuid.NewString(),
		"project_id":     projectID,
		"version_number": n,
		"prompt":         in.Prompt,
		"source_code":    in.SourceCode,
		"model":          in.Model,
		"created_at":     model.FormatTime(s.now()),
	})
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Create(ctx, model.CollectionProjectVersions, data)
	if err != nil {
		s.logger.Error().Err(err).
			Str("event", "version_gap").
			Str("project_id", projectID).
			Int("version_number", n).
			Msg("version counter advanced but version was not stored")
		return nil, err
	}
	v := model.VersionFromDocument(*doc)
	return &v, nil
}

func (s *projectService) ListVersions(ctx context.Context, projectID string) ([]model.ProjectVersion, error) {
	vdocs, err := s.versions.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return versionViews(vdocs), nil
}

func (s *projectService) Release(ctx context.Context, projectID string, in ReleaseInput) (*model.App, error) {
	pdoc, err := s.projects.FindByLogicalID(ctx, projectID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	vdoc, err := s.versions.FindVersion(ctx, projectID, in.Version)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	project := model.ProjectFromDocument(*pdoc)
	version := model.VersionFromDocument(*vdoc)

	price := 0.0
	if in.Price != nil {
		price = *in.Price
	}
	appID := uuid.NewString()
	data := map[string]any{
		"id":              appID,
		"name":            project.Name,
		"description":     project.Description,
		"icon":            project.Icon,
		"version":         in.Version,
		"price":           price,
		"installed":       1,
		"source_code":     version.SourceCode,
		"prompt":          version.Prompt,
		"model":           version.Model,
		"status":          model.StatusPublished,
		"project_id":      projectID,
		"project_version": in.Version,
		"created_at":      model.FormatTime(s.now()),
	}

	key := s.uploadBundle(ctx, appID, version.SourceCode)
	if key != "" {
		data["bundle_key"] = key
	}

	b, err := marshalData(data)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Create(ctx, model.CollectionApps, b)
	if err != nil {
		if key != "" {
			if delErr := s.store.Delete(ctx, key); delErr != nil {
				return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
			}
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	app := model.AppFromDocument(*doc)
	s.logger.Info().
		Str("event", "version_released").
		Str("project_id", projectID).
		Int("version_number", in.Version).
		Str("app_id", appID).
		Msg("version released as app")
	return &app, nil
}

// uploadBundle stores the released source and returns its key, or "" when it was not stored.
func (s *projectService) uploadBundle(ctx context.Context, appID, source string) string {
	key := storage.BundleKey(appID)
	_, err := s.store.Put(ctx, key, strings.NewReader(source), storage.PutObjectOptions{
		Size:        int64(len(source)),
		ContentType: "application/javascript",
		Metadata:    map[string]string{"app-id": appID},
	})
	if errors.Is(err, storage.ErrDisabled) {
		return ""
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("event", "bundle_upload_failed").Str("app_id", appID).Msg("release continues without bundle")
		return ""
	}
	return key
}

func (s *projectService) ListPublished(ctx context.Context, limit, offset int) (*ListResult[model.Project], error) {
	pq := repository.PageQuery{Limit: limit, Offset: offset}.Normalize()
	docs, err := s.projects.Published(ctx)
	if err != nil {
		return nil, err
	}
	page := repository.Paginate(projectViews(docs), pq)
	return newListResult(page.Items, page.Total, pq), nil
}
