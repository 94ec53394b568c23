package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository"
)

const dashboardCacheKey = "ticketapp:dashboard:summary"

// UnassignedRegion buckets tickets without a region.
const UnassignedRegion = "UNASSIGNED"

// SummaryCache stores the rendered summary between requests.
type SummaryCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// DashboardService produces read-only rollups over live tickets.
type DashboardService struct {
	store    repository.Store
	cache    SummaryCache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      Clock
}

// DashboardDependencies bundles collaborators; Cache is optional.
type DashboardDependencies struct {
	Store    repository.Store
	Cache    SummaryCache
	CacheTTL time.Duration
	Logger   *zap.Logger
	Clock    Clock
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	return &DashboardService{
		store:    deps.Store,
		cache:    deps.Cache,
		cacheTTL: deps.CacheTTL,
		logger:   loggerOrNop(deps.Logger),
		now:      clockOrDefault(deps.Clock),
	}
}

// Summary returns the current rollup, served from cache when fresh.
func (s *DashboardService) Summary(ctx context.Context) (summary *domain.DashboardSummary, err error) {
	ctx, span := startSpan(ctx, "DashboardService.Summary")
	defer func() { endSpan(span, err) }()

	useCache := s.cache != nil && s.cacheTTL > 0
	if useCache {
		var cached domain.DashboardSummary
		found, err := s.cache.GetJSON(ctx, dashboardCacheKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if found {
			return &cached, nil
		}
	}

	repos := s.store.Repos()
	tickets, err := repos.Tickets.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	regions, err := repos.Regions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(regions))
	for _, r := range regions {
		names[r.ID] = r.Name
	}

	summary = Summarize(tickets, names, s.now())
	if useCache {
		if err := s.cache.SetJSON(ctx, dashboardCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Summarize computes the rollup. Regions are keyed by name when known.
// A resolved ticket without a target resolution time counts as within SLA.
func Summarize(tickets []domain.Ticket, regionNames map[string]string, now time.Time) *domain.DashboardSummary {
	summary := &domain.DashboardSummary{
		ByStatus:          map[domain.TicketStatus]int{},
		ByClassification:  map[domain.Classification]int{},
		ByRegion:          map[string]int{},
		AgingDistribution: map[domain.Classification]int{},
		GeneratedAt:       now,
	}
	for _, c := range []domain.Classification{domain.ClassificationA, domain.ClassificationR, domain.ClassificationP} {
		summary.AgingDistribution[c] = 0
	}

	var totalResolutionHours float64
	for i := range tickets {
		t := &tickets[i]
		if t.Deleted {
			continue
		}
		summary.TotalTickets++
		summary.ByStatus[t.Status]++
		summary.ByClassification[t.Classification]++
		if len(t.RegionIDs) == 0 {
			summary.ByRegion[UnassignedRegion]++
		}
		for _, id := range t.RegionIDs {
			name, ok := regionNames[id]
			if !ok {
				name = id
			}
			summary.ByRegion[name]++
		}
		if t.IsOpen() {
			summary.OpenTickets++
			summary.AgingDistribution[t.Classification]++
		}
		if t.ResolvedAt != nil {
			hours := t.ResolvedAt.Sub(t.CreatedAt).Hours()
			if hours < 0 {
				hours = 0
			}
			summary.ResolvedCount++
			totalResolutionHours += hours
			if t.TargetResolutionHours == nil || hours <= float64(*t.TargetResolutionHours) {
				summary.WithinSLACount++
			}
		}
	}

	summary.SLACompliancePercent = 100
	if summary.ResolvedCount > 0 {
		summary.SLACompliancePercent = float64(summary.WithinSLACount) / float64(summary.ResolvedCount) * 100
		summary.AverageResolutionHours = totalResolutionHours / float64(summary.ResolvedCount)
	}
	return summary
}
