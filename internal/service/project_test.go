package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"appstore/internal/completion"
	"appstore/internal/model"
	"appstore/internal/repository"
	repoMocks "appstore/internal/repository/mocks"
	"appstore/internal/storage"
	storeMocks "appstore/internal/storage/mocks"
)

type fakeMetadata struct {
	md  *completion.AppMetadata
	err error

	prompt, model string
}

func (f *fakeMetadata) GenerateMetadata(_ context.Context, prompt, model string) (*completion.AppMetadata, error) {
	f.prompt, f.model = prompt, model
	return f.md, f.err
}

func newProjectFixture(t *testing.T, store storage.Storage) (*projectService, *repoMocks.MemoryDocumentRepository) {
	t.Helper()
	repo := repoMocks.NewMemoryDocumentRepository()
	meta := &fakeMetadata{md: &completion.AppMetadata{Name: "Todo", Description: "Tasks", Icon: "✅"}}
	if store == nil {
		store = storage.Noop{}
	}
	svc := NewProjectService(repo, meta, store, zerolog.Nop()).(*projectService)
	return svc, repo
}

func strPtr(s string) *string { return &s }

func TestProjectService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores metadata", func(t *testing.T) {
		svc, repo := newProjectFixture(t, nil)

		p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo app", Model: strPtr("claude-3-haiku-20240307")})
		require.NoError(t, err)

		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "Todo", p.Name)
		assert.Equal(t, "✅", p.Icon)
		assert.Equal(t, model.StatusDraft, p.Status)
		assert.Equal(t, 0, p.CurrentVersion)
		assert.Equal(t, "todo app", p.InitialPrompt)
		require.NotNil(t, p.InitialModel)
		assert.Equal(t, 1, repo.Count(model.CollectionProjects))
		assert.Equal(t, "claude-3-haiku-20240307", svc.meta.(*fakeMetadata).model)
	})

	t.Run("empty prompt", func(t *testing.T) {
		svc, _ := newProjectFixture(t, nil)
		_, err := svc.Create(ctx, CreateProjectInput{Prompt: "  "})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("provider failure stores nothing", func(t *testing.T) {
		svc, repo := newProjectFixture(t, nil)
		svc.meta = &fakeMetadata{err: completion.ErrUpstream}

		_, err := svc.Create(ctx, CreateProjectInput{Prompt: "x"})
		assert.ErrorIs(t, err, completion.ErrUpstream)
		assert.Equal(t, 0, repo.Count(model.CollectionProjects))
	})
}

func TestProjectService_VersionsAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProjectFixture(t, nil)

	p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo"})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		v, err := svc.CreateVersion(ctx, p.ID, CreateVersionInput{Prompt: "p", SourceCode: "code"})
		require.NoError(t, err)
		assert.Equal(t, i, v.VersionNumber)
		assert.Equal(t, p.ID, v.ProjectID)
	}

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentVersion)
	require.Len(t, got.Versions, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got.Versions[0].VersionNumber, got.Versions[1].VersionNumber, got.Versions[2].VersionNumber})

	versions, err := svc.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 3)

	_, err = svc.CreateVersion(ctx, "missing", CreateVersionInput{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectService_CreateVersion_ConcurrentNumbersAreUnique(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProjectFixture(t, nil)
	p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo"})
	require.NoError(t, err)

	const n = 4
	var wg sync.WaitGroup
	numbers := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.CreateVersion(ctx, p.ID, CreateVersionInput{Prompt: "p"})
			if err == nil {
				numbers <- v.VersionNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[int]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "duplicate version number %d", num)
		seen[num] = true
	}
	assert.NotEmpty(t, seen)
}

func TestProjectService_CreateVersion_ConflictExhausted(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	doc := model.Document{ID: "doc-1", Data: datatypes.JSON(`{"id":"p1","current_version":2}`), UpdatedAt: time.Unix(0, 0).UTC()}
	mRepo.On("List", ctx, model.CollectionProjects, mock.Anything).
		Return(&repository.PageResult[model.Document]{Items: []model.Document{doc}, Total: 1}, nil)
	mRepo.On("UpdateIf", ctx, model.CollectionProjects, "doc-1", mock.Anything, doc.UpdatedAt).
		Return(nil, repository.ErrConflict).Times(maxIncrementAttempts)

	svc := NewProjectService(mRepo, &fakeMetadata{}, storage.Noop{}, zerolog.Nop())
	_, err := svc.CreateVersion(ctx, "p1", CreateVersionInput{})

	assert.ErrorIs(t, err, ErrConflict)
	mRepo.AssertExpectations(t)
	mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_CreateVersion_GapWhenVersionWriteFails(t *testing.T) {
	ctx := context.Background()
	svc, repo := newProjectFixture(t, nil)
	p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo"})
	require.NoError(t, err)

	repo.Fail["Create"] = errors.New("disk full")
	_, err = svc.CreateVersion(ctx, p.ID, CreateVersionInput{})
	assert.Error(t, err)
	delete(repo.Fail, "Create")

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentVersion)
	assert.Empty(t, got.Versions)
}

func TestProjectService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProjectFixture(t, nil)
	p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo"})
	require.NoError(t, err)

	svc.now = func() time.Time { return p.UpdatedAt.Add(time.Hour) }
	updated, err := svc.Update(ctx, p.ID, UpdateProjectInput{Name: strPtr("Renamed"), Status: strPtr(model.StatusPublished)})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, model.StatusPublished, updated.Status)
	assert.Equal(t, "Tasks", updated.Description)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))

	_, err = svc.Update(ctx, "missing", UpdateProjectInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectService_Delete_Cascades(t *testing.T) {
	ctx := context.Background()
	svc, repo := newProjectFixture(t, nil)

	keep, err := svc.Create(ctx, CreateProjectInput{Prompt: "keep"})
	require.NoError(t, err)
	_, err = svc.CreateVersion(ctx, keep.ID, CreateVersionInput{})
	require.NoError(t, err)

	p, err := svc.Create(ctx, CreateProjectInput{Prompt: "drop"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := svc.CreateVersion(ctx, p.ID, CreateVersionInput{})
		require.NoError(t, err)
	}
	require.Equal(t, 4, repo.Count(model.CollectionProjectVersions))

	require.NoError(t, svc.Delete(ctx, p.ID))

	left, err := svc.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 1, repo.Count(model.CollectionProjectVersions))
	assert.Equal(t, 1, repo.Count(model.CollectionProjects))

	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrNotFound)
}

func TestProjectService_Delete_CascadesPastScanWindow(t *testing.T) {
	ctx := context.Background()
	svc, repo := newProjectFixture(t, nil)

	old, err := svc.Create(ctx, CreateProjectInput{Prompt: "old"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := svc.CreateVersion(ctx, old.ID, CreateVersionInput{})
		require.NoError(t, err)
	}
	for i := 1; i <= repository.ScanLimit; i++ {
		_, err := repo.Create(ctx, model.CollectionProjectVersions,
			datatypes.JSON(fmt.Sprintf(`{"project_id":"busy","version_number":%d}`, i)))
		require.NoError(t, err)
	}

	v, err := svc.versions.FindVersion(ctx, old.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, old.ID, v.Field("project_id").String())

	require.NoError(t, svc.Delete(ctx, old.ID))
	assert.Equal(t, repository.ScanLimit, repo.Count(model.CollectionProjectVersions))
}

func TestProjectService_Delete_CascadeFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	project := model.Document{ID: "doc-p", Data: datatypes.JSON(`{"id":"p1"}`)}
	version := model.Document{ID: "doc-v", Data: datatypes.JSON(`{"project_id":"p1","version_number":1}`)}

	mRepo.On("List", ctx, model.CollectionProjects, mock.Anything).
		Return(&repository.PageResult[model.Document]{Items: []model.Document{project}, Total: 1}, nil)
	mRepo.On("Delete", ctx, model.CollectionProjects, "doc-p").Return(true, nil)
	mRepo.On("List", ctx, model.CollectionProjectVersions, mock.Anything).
		Return(&repository.PageResult[model.Document]{Items: []model.Document{version}, Total: 1}, nil)
	mRepo.On("Delete", ctx, model.CollectionProjectVersions, "doc-v").Return(false, errors.New("io"))

	svc := NewProjectService(mRepo, &fakeMetadata{}, storage.Noop{}, zerolog.Nop())
	assert.NoError(t, svc.Delete(ctx, "p1"))
	mRepo.AssertExpectations(t)
}

func TestProjectService_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("copies version fields", func(t *testing.T) {
		svc, _ := newProjectFixture(t, nil)
		p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo"})
		require.NoError(t, err)
		_, err = svc.CreateVersion(ctx, p.ID, CreateVersionInput{Prompt: "v1", SourceCode: "one", Model: strPtr("m1")})
		require.NoError(t, err)
		_, err = svc.CreateVersion(ctx, p.ID, CreateVersionInput{Prompt: "v2", SourceCode: "two"})
		require.NoError(t, err)

		app, err := svc.Release(ctx, p.ID, ReleaseInput{Version: 1})
		require.NoError(t, err)

		assert.Equal(t, "Todo", app.Name)
		assert.Equal(t, "✅", app.Icon)
		assert.Equal(t, "1", app.Version)
		assert.Equal(t, 0.0, app.Price)
		assert.Equal(t, model.StatusPublished, app.Status)
		require.NotNil(t, app.SourceCode)
		assert.Equal(t, "one", *app.SourceCode)
		assert.Equal(t, "v1", *app.Prompt)
		assert.Equal(t, "m1", *app.Model)
		require.NotNil(t, app.ProjectVersion)
		assert.Equal(t, 1, *app.ProjectVersion)
		assert.Equal(t, p.ID, *app.ProjectID)
		assert.Nil(t, app.BundleKey)

		price := 4.5
		app2, err := svc.Release(ctx, p.ID, ReleaseInput{Version: 2, Price: &price})
		require.NoError(t, err)
		assert.Equal(t, 4.5, app2.Price)
		assert.Nil(t, app2.Model)
	})

	t.Run("missing version", func(t *testing.T) {
		svc, repo := newProjectFixture(t, nil)
		p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo"})
		require.NoError(t, err)

		_, err = svc.Release(ctx, p.ID, ReleaseInput{Version: 7})
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = svc.Release(ctx, "missing", ReleaseInput{Version: 1})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 0, repo.Count(model.CollectionApps))
	})

	t.Run("uploads bundle", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc, _ := newProjectFixture(t, mStore)
		p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo"})
		require.NoError(t, err)
		_, err = svc.CreateVersion(ctx, p.ID, CreateVersionInput{SourceCode: "bundle-src"})
		require.NoError(t, err)

		mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "apps/") && strings.HasSuffix(key, "/bundle.js")
		}), mock.MatchedBy(func(r io.Reader) bool { return r != nil }), mock.MatchedBy(func(o storage.PutObjectOptions) bool {
			return o.Size == int64(len("bundle-src")) && o.ContentType == "application/javascript"
		})).Return(storage.ObjectInfo{}, nil)

		app, err := svc.Release(ctx, p.ID, ReleaseInput{Version: 1})
		require.NoError(t, err)
		require.NotNil(t, app.BundleKey)
		assert.Equal(t, storage.BundleKey(app.ID), *app.BundleKey)
		mStore.AssertExpectations(t)
	})

	t.Run("upload failure is not fatal", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, errors.New("bucket gone"))
		svc, _ := newProjectFixture(t, mStore)
		p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo"})
		require.NoError(t, err)
		_, err = svc.CreateVersion(ctx, p.ID, CreateVersionInput{})
		require.NoError(t, err)

		app, err := svc.Release(ctx, p.ID, ReleaseInput{Version: 1})
		require.NoError(t, err)
		assert.Nil(t, app.BundleKey)
	})

	t.Run("app write failure rolls back bundle", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
		mStore.On("Delete", ctx, mock.Anything).Return(nil)
		svc, repo := newProjectFixture(t, mStore)
		p, err := svc.Create(ctx, CreateProjectInput{Prompt: "todo"})
		require.NoError(t, err)
		_, err = svc.CreateVersion(ctx, p.ID, CreateVersionInput{})
		require.NoError(t, err)

		repo.Fail["Create"] = errors.New("db fail")
		_, err = svc.Release(ctx, p.ID, ReleaseInput{Version: 1})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "db save failed: db fail")
		mStore.AssertCalled(t, "Delete", ctx, mock.Anything)
	})
}

func TestProjectService_ListPublished(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProjectFixture(t, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := svc.Create(ctx, CreateProjectInput{Prompt: "x"})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	_, err := svc.Update(ctx, ids[0], UpdateProjectInput{Status: strPtr(model.StatusPublished)})
	require.NoError(t, err)

	res, err := svc.ListPublished(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, ids[0], res.Items[0].ID)

	all, err := svc.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
}
