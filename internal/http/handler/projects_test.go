package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"appstore/internal/completion"
	"appstore/internal/model"
	"appstore/internal/service"
	serviceMocks "appstore/internal/service/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newProjectApp(svc service.ProjectService) *fiber.App {
	app := fiber.New()
	app.Post("/api/projects", CreateProject(svc))
	app.Get("/api/projects", ListProjects(svc))
	app.Get("/api/projects/:id", GetProject(svc))
	app.Put("/api/projects/:id", UpdateProject(svc))
	app.Delete("/api/projects/:id", DeleteProject(svc))
	app.Post("/api/projects/:id/versions", CreateVersion(svc))
	app.Get("/api/projects/:id/versions", ListVersions(svc))
	app.Post("/api/projects/:id/release", ReleaseVersion(svc))
	app.Post("/api/projects/:id/convert", ConvertToApp(svc))
	app.Get("/api/published-projects", ListPublishedProjects(svc))
	return app
}

func TestCreateProject(t *testing.T) {
	mockSvc := new(serviceMocks.MockProjectService)
	app := newProjectApp(mockSvc)

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateProjectInput) bool {
			return in.Prompt == "a todo list" && in.Model != nil && *in.Model == "claude-3-haiku-20240307"
		})).Return(&model.Project{ID: "p1", Name: "Todo"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/projects", `{"prompt":"a todo list","model":"claude-3-haiku-20240307"}`))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decodeEnvelope(t, resp)
		assert.Equal(t, "/api/projects/p1", body.Links["self"])
		assert.Equal(t, "/api/projects/p1/versions", body.Links["versions"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("metadata provider down", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).
			Return(nil, &completion.StatusError{Code: http.StatusServiceUnavailable}).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/projects", `{"prompt":"x"}`))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "UPSTREAM_ERROR", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing api key", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, completion.ErrNoAPIKey).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/projects", `{"prompt":"x"}`))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid input", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).
			Return(nil, errors.Join(service.ErrInvalidInput, errors.New("prompt is required"))).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/projects", `{"prompt":""}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetProject(t *testing.T) {
	mockSvc := new(serviceMocks.MockProjectService)
	app := newProjectApp(mockSvc)

	mockSvc.On("Get", mock.Anything, "p1").Return(&model.Project{
		ID:       "p1",
		Versions: []model.ProjectVersion{{VersionNumber: 1}, {VersionNumber: 2}},
	}, nil).Once()
	mockSvc.On("Get", mock.Anything, "nope").Return(nil, service.ErrNotFound).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/projects/p1", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/projects/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	mockSvc.AssertExpectations(t)
}

func TestUpdateProject(t *testing.T) {
	mockSvc := new(serviceMocks.MockProjectService)
	app := newProjectApp(mockSvc)

	mockSvc.On("Update", mock.Anything, "p1", mock.MatchedBy(func(in service.UpdateProjectInput) bool {
		return in.Status != nil && *in.Status == "published" && in.Name == nil
	})).Return(&model.Project{ID: "p1", Status: "published"}, nil).Once()

	resp, _ := app.Test(jsonRequest(http.MethodPut, "/api/projects/p1", `{"status":"published"}`))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}

func TestDeleteProject(t *testing.T) {
	mockSvc := new(serviceMocks.MockProjectService)
	app := newProjectApp(mockSvc)

	mockSvc.On("Delete", mock.Anything, "p1").Return(nil).Once()
	mockSvc.On("Delete", mock.Anything, "gone").Return(service.ErrNotFound).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/projects/p1", nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/api/projects/gone", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	mockSvc.AssertExpectations(t)
}

func TestCreateVersion(t *testing.T) {
	mockSvc := new(serviceMocks.MockProjectService)
	app := newProjectApp(mockSvc)

	t.Run("success", func(t *testing.T) {
		mockSvc.On("CreateVersion", mock.Anything, "p1", service.CreateVersionInput{Prompt: "add dark mode", SourceCode: "code"}).
			Return(&model.ProjectVersion{ID: "v3", ProjectID: "p1", VersionNumber: 3}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/projects/p1/versions", `{"prompt":"add dark mode","source_code":"code"}`))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decodeEnvelope(t, resp)
		assert.Equal(t, "/api/projects/p1/versions/3", body.Links["self"])
		assert.Equal(t, "/api/projects/p1", body.Links["project"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("counter contention exhausted", func(t *testing.T) {
		mockSvc.On("CreateVersion", mock.Anything, "busy", mock.Anything).Return(nil, service.ErrConflict).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/projects/busy/versions", `{"prompt":"x","source_code":"y"}`))

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestListVersions(t *testing.T) {
	mockSvc := new(serviceMocks.MockProjectService)
	app := newProjectApp(mockSvc)

	mockSvc.On("ListVersions", mock.Anything, "p1").
		Return([]model.ProjectVersion{{VersionNumber: 1}, {VersionNumber: 2}}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/projects/p1/versions", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeEnvelope(t, resp)
	assert.Equal(t, float64(2), body.Meta["count"])
	assert.Equal(t, "p1", body.Meta["project_id"])
	mockSvc.AssertExpectations(t)
}

func TestReleaseAndConvert(t *testing.T) {
	mockSvc := new(serviceMocks.MockProjectService)
	app := newProjectApp(mockSvc)

	price := 2.5
	mockSvc.On("Release", mock.Anything, "p1", service.ReleaseInput{Version: 2, Price: &price}).
		Return(&model.App{ID: "app-9", Status: "published"}, nil).Twice()

	for _, tc := range []struct {
		path string
		body string
	}{
		{"/api/projects/p1/release", `{"version_number":2,"price":2.5}`},
		{"/api/projects/p1/convert", `{"version":2,"price":2.5}`},
	} {
		resp, _ := app.Test(jsonRequest(http.MethodPost, tc.path, tc.body))

		assert.Equal(t, http.StatusCreated, resp.StatusCode, tc.path)
		body := decodeEnvelope(t, resp)
		assert.Equal(t, "/api/apps/app-9", body.Links["self"])
		assert.Equal(t, "/api/projects/p1", body.Links["project"])
	}
	mockSvc.AssertExpectations(t)

	t.Run("version required", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/projects/p1/release", `{"version":2}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown version", func(t *testing.T) {
		mockSvc.On("Release", mock.Anything, "p1", service.ReleaseInput{Version: 9}).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/projects/p1/convert", `{"version":9}`))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestListProjectsAndPublished(t *testing.T) {
	mockSvc := new(serviceMocks.MockProjectService)
	app := newProjectApp(mockSvc)

	mockSvc.On("List", mock.Anything, 0, 0).
		Return(&service.ListResult[model.Project]{Items: []model.Project{{ID: "p1"}}, Total: 1, Limit: 100}, nil).Once()
	mockSvc.On("ListPublished", mock.Anything, 1, 0).
		Return(&service.ListResult[model.Project]{Items: []model.Project{{ID: "p2"}}, Total: 4, Limit: 1}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeEnvelope(t, resp)
	assert.Equal(t, "/api/projects", body.Links["self"])

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/published-projects?limit=1", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeEnvelope(t, resp)
	assert.Equal(t, float64(4), body.Meta["count"])

	mockSvc.AssertExpectations(t)
}
