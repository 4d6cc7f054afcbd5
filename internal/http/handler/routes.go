package handler

import (
	"github.com/gofiber/fiber/v2"

	"appstore/internal/service"
)

// Deps carries everything the routes need. Nil GenerateLimiter disables rate limiting.
type Deps struct {
	DB              Pinger
	Documents       service.DocumentService
	Apps            service.AppService
	Projects        service.ProjectService
	Dashboard       service.DashboardService
	Generator       CodeGenerator
	Models          ModelLister
	GenerateLimiter fiber.Handler
	FrontendURL     string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.FrontendURL != "" {
		app.Get("/", FrontendRedirect(d.FrontendURL))
	}
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")

	api.Get("/models", ListModels(d.Models))

	// Static segments are registered before the :collection wildcard.
	api.Get("/db", ListCollections(d.Documents))
	api.Post("/db/reset", ResetDatabase(d.Documents))
	api.Post("/reset", ResetDatabase(d.Documents))
	api.Post("/db/:collection", CreateDocument(d.Documents))
	api.Get("/db/:collection", ListDocuments(d.Documents))
	api.Get("/db/:collection/:id", GetDocument(d.Documents))
	api.Put("/db/:collection/:id", UpdateDocument(d.Documents))
	api.Delete("/db/:collection/:id", DeleteDocument(d.Documents))
	api.Post("/query", ExecuteQuery(d.Documents))

	api.Get("/apps", ListApps(d.Apps))
	api.Post("/apps", CreateApp(d.Apps))
	api.Get("/apps/published", ListPublishedApps(d.Apps))
	api.Put("/apps/:app_id/source", UpdateAppSource(d.Apps))
	api.Get("/apps/:app_id/bundle", AppBundleURL(d.Apps))
	api.Get("/apps/:app_id/bundle/content", AppBundleContent(d.Apps))

	api.Post("/projects", CreateProject(d.Projects))
	api.Get("/projects", ListProjects(d.Projects))
	api.Get("/projects/:id", GetProject(d.Projects))
	api.Put("/projects/:id", UpdateProject(d.Projects))
	api.Delete("/projects/:id", DeleteProject(d.Projects))
	api.Post("/projects/:id/versions", CreateVersion(d.Projects))
	api.Get("/projects/:id/versions", ListVersions(d.Projects))
	api.Post("/projects/:id/release", ReleaseVersion(d.Projects))
	api.Post("/projects/:id/convert", ConvertToApp(d.Projects))
	api.Get("/published-projects", ListPublishedProjects(d.Projects))

	api.Get("/dashboard/layout", GetDashboardLayout(d.Dashboard))
	api.Put("/dashboard/layout", SaveDashboardLayout(d.Dashboard))

	gen := app.Group("/generate")
	if d.GenerateLimiter != nil {
		gen.Use(d.GenerateLimiter)
	}
	gen.Post("/", GenerateStream(d.Generator))
	gen.Post("/sync", GenerateSync(d.Generator))
	gen.Post("/modify", ModifyStream(d.Generator))
}
