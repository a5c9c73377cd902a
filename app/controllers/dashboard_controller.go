package controllers

import (
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/pkg/ctx"
)

type DashboardController struct {
	dashboard *services.DashboardService
}

func NewDashboardController(dashboard *services.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

// GET /api/dashboard
func (dc *DashboardController) Show(c *ctx.Context) {
	stats, err := dc.dashboard.Dashboard(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]any{"stats": stats})
}

// GET /api/stats
func (dc *DashboardController) Stats(c *ctx.Context) {
	stats, err := dc.dashboard.Stats(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(stats)
}
