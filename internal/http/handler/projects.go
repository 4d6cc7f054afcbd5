package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"appstore/internal/service"
)

type createProjectRequest struct {
	Prompt string  `json:"prompt"`
	Model  *string `json:"model"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Status      *string `json:"status"`
}

type createVersionRequest struct {
	Prompt     string  `json:"prompt"`
	SourceCode string  `json:"source_code"`
	Model      *string `json:"model"`
}

type releaseRequest struct {
	VersionNumber *int     `json:"version_number"`
	Price         *float64 `json:"price"`
}

type convertRequest struct {
	Version *int     `json:"version"`
	Price   *float64 `json:"price"`
}

func projectLinks(id string) links {
	return links{
		"self":     "/api/projects/" + id,
		"versions": "/api/projects/" + id + "/versions",
	}
}

// CreateProject godoc
// @Summary Create a project; name, description and icon come from the completion provider
// @Tags projects
// @Accept json
// @Produce json
// @Router /api/projects [post]
func CreateProject(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		p, err := svc.Create(c.UserContext(), service.CreateProjectInput{Prompt: req.Prompt, Model: req.Model})
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusCreated, envelope{Data: p, Links: projectLinks(p.ID)})
	}
}

// ListProjects godoc
// @Summary List projects, newest first
// @Tags projects
// @Produce json
// @Router /api/projects [get]
func ListProjects(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := parsePaging(c)
		if err != nil {
			return handled(err)
		}
		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data:  res.Items,
			Meta:  pageMeta{Count: res.Total, Limit: res.Limit, Offset: res.Offset},
			Links: links{"self": "/api/projects", "collections": "/api/db"},
		})
	}
}

// GetProject godoc
// @Summary Fetch a project with its versions in ascending order
// @Tags projects
// @Produce json
// @Param id path string true "project id"
// @Router /api/projects/{id} [get]
func GetProject(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{Data: p, Links: projectLinks(p.ID)})
	}
}

// UpdateProject godoc
// @Summary Patch name, description, icon or status
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "project id"
// @Router /api/projects/{id} [put]
func UpdateProject(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		p, err := svc.Update(c.UserContext(), c.Params("id"), service.UpdateProjectInput{
			Name:        req.Name,
			Description: req.Description,
			Icon:        req.Icon,
			Status:      req.Status,
		})
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{Data: p, Links: projectLinks(p.ID)})
	}
}

// DeleteProject godoc
// @Summary Delete a project and, best-effort, its versions
// @Tags projects
// @Param id path string true "project id"
// @Success 204
// @Router /api/projects/{id} [delete]
func DeleteProject(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CreateVersion godoc
// @Summary Append a version; the number is allocated from the project's counter
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "project id"
// @Router /api/projects/{id}/versions [post]
func CreateVersion(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createVersionRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		pid := c.Params("id")
		v, err := svc.CreateVersion(c.UserContext(), pid, service.CreateVersionInput{
			Prompt:     req.Prompt,
			SourceCode: req.SourceCode,
			Model:      req.Model,
		})
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusCreated, envelope{
			Data: v,
			Links: links{
				"self":    fmt.Sprintf("/api/projects/%s/versions/%d", pid, v.VersionNumber),
				"project": "/api/projects/" + pid,
			},
		})
	}
}

// ListVersions godoc
// @Summary List a project's versions in ascending order
// @Tags projects
// @Produce json
// @Param id path string true "project id"
// @Router /api/projects/{id}/versions [get]
func ListVersions(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pid := c.Params("id")
		versions, err := svc.ListVersions(c.UserContext(), pid)
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data: versions,
			Meta: fiber.Map{"count": len(versions), "project_id": pid},
			Links: links{
				"self":    "/api/projects/" + pid + "/versions",
				"project": "/api/projects/" + pid,
			},
		})
	}
}

func release(c *fiber.Ctx, svc service.ProjectService, version *int, price *float64) error {
	if version == nil {
		return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "version number is required")
	}
	pid := c.Params("id")
	app, err := svc.Release(c.UserContext(), pid, service.ReleaseInput{Version: *version, Price: price})
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusCreated, envelope{
		Data: app,
		Links: links{
			"self":    "/api/apps/" + app.ID,
			"project": "/api/projects/" + pid,
		},
	})
}

// ReleaseVersion godoc
// @Summary Publish a project version as a new app
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "project id"
// @Router /api/projects/{id}/release [post]
func ReleaseVersion(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req releaseRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		return release(c, svc, req.VersionNumber, req.Price)
	}
}

// ConvertToApp godoc
// @Summary Alias of release taking {version, price}
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "project id"
// @Router /api/projects/{id}/convert [post]
func ConvertToApp(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req convertRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		return release(c, svc, req.Version, req.Price)
	}
}

// ListPublishedProjects godoc
// @Summary List published projects; count is the published total
// @Tags projects
// @Produce json
// @Router /api/published-projects [get]
func ListPublishedProjects(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := parsePaging(c)
		if err != nil {
			return handled(err)
		}
		res, err := svc.ListPublished(c.UserContext(), limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data:  res.Items,
			Meta:  pageMeta{Count: res.Total, Limit: res.Limit, Offset: res.Offset},
			Links: links{"self": pageLinks("/api/published-projects", res.Limit, res.Offset), "projects": "/api/projects"},
		})
	}
}
