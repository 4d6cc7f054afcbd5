package handler

import (
	"github.com/gofiber/fiber/v2"

	"appstore/internal/model"
	"appstore/internal/service"
)

type saveLayoutRequest struct {
	Widgets []model.Widget `json:"widgets"`
}

// GetDashboardLayout godoc
// @Summary Fetch the dashboard layout; empty until first saved
// @Tags dashboard
// @Produce json
// @Router /api/dashboard/layout [get]
func GetDashboardLayout(svc service.DashboardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		layout, err := svc.Get(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data:  layout,
			Links: links{"self": "/api/dashboard/layout"},
		})
	}
}

// SaveDashboardLayout godoc
// @Summary Replace the dashboard widgets
// @Tags dashboard
// @Accept json
// @Produce json
// @Router /api/dashboard/layout [put]
func SaveDashboardLayout(svc service.DashboardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req saveLayoutRequest
		if err := decodeBody(c, &req); err != nil {
			return handled(err)
		}
		if req.Widgets == nil {
			req.Widgets = []model.Widget{}
		}
		layout, err := svc.Save(c.UserContext(), req.Widgets)
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, fiber.StatusOK, envelope{
			Data:  layout,
			Links: links{"self": "/api/dashboard/layout"},
		})
	}
}
