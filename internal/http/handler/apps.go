package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"appstore/internal/service"
)

type createAppRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Version     string  `json:"version"`
	Price       float64 `json:"price"`
	Icon        string  `json:"icon"`
	SourceCode  *string `json:"source_code"`
}

type updateSourceRequest struct {
	SourceCode *string `json:"source_code"`
}

// ListApps godoc
// @Summary List every app, newest first
// @Tags apps
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "rows to skip"
// @Router /api/apps [get]
func ListApps(svc service.AppService) fiber.Handler {
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
			Links: links{"self": pageLinks("/api/apps", res.Limit, res.Offset), "collection": "/api/apps"},
		})
	}
}

// CreateApp godoc
// @Summary Create a draft app
// @Tags apps
// @Accept json
// @Produce json
// @Router /api/apps [post]
func CreateApp(svc service.AppService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createAppRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		if req.Name == "" {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "name is required")
		}

		app, err := svc.Create(c.UserContext(), service.CreateAppInput{
			Prompt:      req.Prompt,
			Model:       req.Model,
			Name:        req.Name,
			Description: req.Description,
			Version:     req.Version,
			Price:       req.Price,
			Icon:        req.Icon,
			SourceCode:  req.SourceCode,
		})
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusCreated, envelope{
			Data:  app,
			Links: links{"self": "/api/apps/" + app.ID},
		})
	}
}

// UpdateAppSource godoc
// @Summary Replace an app's source code, addressed by its app id
// @Tags apps
// @Accept json
// @Produce json
// @Param app_id path string true "app id"
// @Router /api/apps/{app_id}/source [put]
func UpdateAppSource(svc service.AppService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateSourceRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		if req.SourceCode == nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "source_code is required")
		}

		app, err := svc.UpdateSourceCode(c.UserContext(), c.Params("app_id"), *req.SourceCode)
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data:  app,
			Links: links{"self": "/api/apps/" + app.ID},
		})
	}
}

// ListPublishedApps godoc
// @Summary List published apps; count is the published total
// @Tags apps
// @Produce json
// @Router /api/apps/published [get]
func ListPublishedApps(svc service.AppService) fiber.Handler {
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
			Links: links{"self": pageLinks("/api/apps/published", res.Limit, res.Offset), "collection": "/api/apps"},
		})
	}
}

// AppBundleURL godoc
// @Summary Presigned download link for a released app's bundle
// @Tags apps
// @Produce json
// @Param app_id path string true "app id"
// @Router /api/apps/{app_id}/bundle [get]
func AppBundleURL(svc service.AppService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		appID := c.Params("app_id")
		url, err := svc.BundleURL(c.UserContext(), appID)
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data: fiber.Map{"url": url, "expires_in": int(service.BundleURLExpiry.Seconds())},
			Links: links{
				"self":    "/api/apps/" + appID + "/bundle",
				"content": "/api/apps/" + appID + "/bundle/content",
			},
		})
	}
}

// AppBundleContent godoc
// @Summary Stream a released app's bundle through the API
// @Tags apps
// @Produce application/javascript
// @Param app_id path string true "app id"
// @Router /api/apps/{app_id}/bundle/content [get]
func AppBundleContent(svc service.AppService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, info, err := svc.Bundle(c.UserContext(), c.Params("app_id"))
		if err != nil {
			return respondError(c, err)
		}
		ct := info.ContentType
		if ct == "" {
			ct = "application/javascript"
		}
		c.Set(fiber.HeaderContentType, ct)
		if info.ETag != "" {
			c.Set(fiber.HeaderETag, strconv.Quote(info.ETag))
		}
		// fasthttp closes rc once the body is written.
		return c.SendStream(rc, int(info.Size))
	}
}
