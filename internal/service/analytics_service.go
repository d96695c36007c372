package service

import (
	"context"

	"github.com/storefront-labs/storefront/internal/repository"
)

// AnalyticsService serves the admin dashboard aggregates.
type AnalyticsService struct {
	analyticsRepo     repository.AnalyticsRepository
	lowStockThreshold int
}

func NewAnalyticsService(analyticsRepo repository.AnalyticsRepository, lowStockThreshold int) *AnalyticsService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}
	return &AnalyticsService{analyticsRepo: analyticsRepo, lowStockThreshold: lowStockThreshold}
}

// Summary returns revenue, order counts by status, top sellers and
// low-stock products.
func (s *AnalyticsService) Summary(ctx context.Context) (*repository.SalesSummary, error) {
	return s.analyticsRepo.Summary(ctx, s.lowStockThreshold)
}
