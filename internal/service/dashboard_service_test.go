package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

func TestSummarize_NoResolvedTicketsIsFullCompliance(t *testing.T) {
	summary := Summarize(nil, nil, baseTime)
	assert.Equal(t, 100.0, summary.SLACompliancePercent)
	assert.Zero(t, summary.AverageResolutionHours)
	assert.Zero(t, summary.TotalTickets)
}

func TestSummarize_Rollups(t *testing.T) {
	resolvedAt := func(h int) *time.Time {
		v := baseTime.Add(time.Duration(h) * time.Hour)
		return &v
	}
	tickets := []domain.Ticket{
		{ID: "1", Status: domain.TicketStatusNew, Classification: domain.ClassificationA, RegionIDs: []string{"emea"}, CreatedAt: baseTime},
		{ID: "2", Status: domain.TicketStatusInProgress, Classification: domain.ClassificationP, CreatedAt: baseTime},
		{ID: "3", Status: domain.TicketStatusResolved, Classification: domain.ClassificationR, RegionIDs: []string{"emea", "apac"},
			CreatedAt: baseTime, ResolvedAt: resolvedAt(10), TargetResolutionHours: intPtr(24)},
		{ID: "4", Status: domain.TicketStatusClosed, Classification: domain.ClassificationA,
			CreatedAt: baseTime, ResolvedAt: resolvedAt(30), TargetResolutionHours: intPtr(24)},
		{ID: "5", Status: domain.TicketStatusResolved, Classification: domain.ClassificationA,
			CreatedAt: baseTime, ResolvedAt: resolvedAt(20)},
		{ID: "6", Status: domain.TicketStatusNew, Deleted: true},
	}

	s := Summarize(tickets, map[string]string{"emea": "EMEA"}, baseTime)
	assert.Equal(t, 5, s.TotalTickets)
	assert.Equal(t, 2, s.OpenTickets)
	assert.Equal(t, 2, s.ByStatus[domain.TicketStatusResolved])
	assert.Equal(t, 3, s.ByClassification[domain.ClassificationA])
	assert.Equal(t, map[string]int{"EMEA": 2, "apac": 1, UnassignedRegion: 3}, s.ByRegion)
	assert.Equal(t, map[domain.Classification]int{
		domain.ClassificationA: 1,
		domain.ClassificationR: 0,
		domain.ClassificationP: 1,
	}, s.AgingDistribution)
	assert.Equal(t, 3, s.ResolvedCount)
	assert.Equal(t, 2, s.WithinSLACount)
	assert.InDelta(t, 66.666, s.SLACompliancePercent, 0.01)
	assert.InDelta(t, 20.0, s.AverageResolutionHours, 1e-9)
}

type mapCache struct {
	data map[string][]byte
	sets int
}

func (m *mapCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *mapCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.data[key] = raw
	return nil
}

func TestDashboardSummary_ServesFromCache(t *testing.T) {
	f := newFixture(t)
	cache := &mapCache{data: map[string][]byte{}}
	svc := NewDashboardService(DashboardDependencies{Store: f.store, Cache: cache, CacheTTL: time.Minute, Clock: f.clock.Now})

	f.createTicket(t, "one")
	first, err := svc.Summary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalTickets)

	f.createTicket(t, "two")
	cached, err := svc.Summary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.TotalTickets)
	assert.Equal(t, 1, cache.sets)

	fresh, err := f.dashboard.Summary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalTickets)
}
