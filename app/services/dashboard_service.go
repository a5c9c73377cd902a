package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/pkg/cache"
	"github.com/teastall/teastall/pkg/workerpool"
)

const (
	cacheKeyStats = "stats:public"
	statsCacheTTL = 30 * time.Second

	dashboardWorkers = 3
)

// revenueStatuses are the order statuses counted as earned.
var revenueStatuses = []string{models.StatusCompleted, models.StatusPaid}

type DashboardStats struct {
	TotalUsers    int64   `json:"totalUsers"`
	TotalProducts int64   `json:"totalProducts"`
	TotalOrders   int64   `json:"totalOrders"`
	AverageRating float64 `json:"averageRating"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

// PublicStats is what the storefront shows without signing in.
type PublicStats struct {
	TotalCustomers int64   `json:"totalCustomers"`
	TotalProducts  int64   `json:"totalProducts"`
	TotalOrders    int64   `json:"totalOrders"`
	AverageRating  float64 `json:"averageRating"`
}

type DashboardService struct {
	stores *repositories.Stores
}

func NewDashboardService(stores *repositories.Stores) *DashboardService {
	return &DashboardService{stores: stores}
}

// Dashboard runs the five aggregate reads side by side.
func (s *DashboardService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var (
		out DashboardStats
		avg float64
	)
	err := workerpool.Run(ctx, dashboardWorkers,
		func(ctx context.Context) (err error) {
			if out.TotalUsers, err = s.stores.Users.Count(ctx); err != nil {
				err = fmt.Errorf("services: count users: %w", err)
			}
			return err
		},
		func(ctx context.Context) (err error) {
			if out.TotalProducts, err = s.stores.Products.Count(ctx); err != nil {
				err = fmt.Errorf("services: count products: %w", err)
			}
			return err
		},
		func(ctx context.Context) (err error) {
			if out.TotalOrders, err = s.stores.Orders.Count(ctx); err != nil {
				err = fmt.Errorf("services: count orders: %w", err)
			}
			return err
		},
		func(ctx context.Context) (err error) {
			if out.TotalRevenue, err = s.stores.Orders.Revenue(ctx, revenueStatuses); err != nil {
				err = fmt.Errorf("services: revenue: %w", err)
			}
			return err
		},
		func(ctx context.Context) (err error) {
			if avg, _, err = s.stores.Reviews.AverageRating(ctx); err != nil {
				err = fmt.Errorf("services: average rating: %w", err)
			}
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	out.AverageRating = roundTenth(avg)
	return &out, nil
}

func (s *DashboardService) Stats(ctx context.Context) (PublicStats, error) {
	return cache.Remember(ctx, cacheKeyStats, statsCacheTTL, func() (PublicStats, error) {
		d, err := s.Dashboard(ctx)
		if err != nil {
			return PublicStats{}, err
		}
		return PublicStats{
			TotalCustomers: d.TotalUsers,
			TotalProducts:  d.TotalProducts,
			TotalOrders:    d.TotalOrders,
			AverageRating:  d.AverageRating,
		}, nil
	})
}

func roundTenth(v float64) float64 { return math.Round(v*10) / 10 }
