package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/poller"
)

type stubFetcher struct {
	orgs   []models.Organization
	alerts []models.RawAlert
}

func (s *stubFetcher) Organizations(ctx context.Context) ([]models.Organization, error) {
	if s.orgs != nil {
		return s.orgs, nil
	}
	return []models.Organization{{ID: 1, Name: "Convention Center"}}, nil
}

func (s *stubFetcher) Zones(ctx context.Context, orgID int) ([]models.Zone, error) {
	return []models.Zone{{ID: 1, Name: "Main Hall", Capacity: 50}}, nil
}

func (s *stubFetcher) Alerts(ctx context.Context, status string, orgID int) ([]models.RawAlert, error) {
	return s.alerts, nil
}

func (s *stubFetcher) CarbonStats(ctx context.Context) (*models.CarbonStats, error) {
	return &models.CarbonStats{}, nil
}

type fakeResolver struct {
	resolved []string
	err      error
}

func (f *fakeResolver) ResolveAlert(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.resolved = append(f.resolved, id)
	return nil
}

// startedPoller returns a poller that has committed one snapshot built from
// the given raw alerts.
func startedPoller(t *testing.T, alerts []models.RawAlert) *poller.Poller {
	t.Helper()

	p := poller.New(&stubFetcher{alerts: alerts}, nil, poller.Config{
		Interval:     time.Hour,
		FetchTimeout: time.Second,
	}, logger.Discard())
	p.Start()
	t.Cleanup(p.Stop)

	require.Eventually(t, func() bool {
		return p.Snapshot() != nil
	}, time.Second, 10*time.Millisecond)

	return p
}

func testAlerts() []models.RawAlert {
	return []models.RawAlert{
		{ID: 1, Heading: "Overcrowding in Main Hall", SubHeading: "45/50 people", Status: "OPEN", CreatedAt: "2026-03-14T10:00:00Z"},
		{ID: 2, Heading: "Capacity normal in Lobby", Status: "CLOSED", CreatedAt: "2026-03-14T09:00:00Z"},
	}
}

func TestListAppliesFilters(t *testing.T) {
	p := startedPoller(t, testAlerts())
	svc := NewAlertService(&fakeResolver{}, p, nil, nil, logger.Discard())

	all := svc.List("", "")
	require.Len(t, all, 2)

	critical := svc.List(models.LevelCritical, "")
	require.Len(t, critical, 1)
	assert.Equal(t, "1", critical[0].ID)
	assert.Equal(t, models.AlertActive, critical[0].Status)

	resolved := svc.List("", models.AlertResolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, "2", resolved[0].ID)
}

func TestListEmptyBeforeFirstSnapshot(t *testing.T) {
	p := poller.New(&stubFetcher{}, nil, poller.Config{
		Interval:     time.Hour,
		FetchTimeout: time.Second,
	}, logger.Discard())
	svc := NewAlertService(&fakeResolver{}, p, nil, nil, logger.Discard())

	assert.Empty(t, svc.List("", ""))
}

func TestAcknowledgeOverlaysStatus(t *testing.T) {
	p := startedPoller(t, testAlerts())
	svc := NewAlertService(&fakeResolver{}, p, nil, nil, logger.Discard())

	require.NoError(t, svc.Acknowledge("1"))

	acked := svc.List("", models.AlertAcknowledged)
	require.Len(t, acked, 1)
	assert.Equal(t, "1", acked[0].ID)

	// The overlay never touches already-resolved alerts.
	resolved := svc.List("", models.AlertResolved)
	require.Len(t, resolved, 1)

	active := svc.List("", models.AlertActive)
	assert.Empty(t, active)
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	p := startedPoller(t, testAlerts())
	svc := NewAlertService(&fakeResolver{}, p, nil, nil, logger.Discard())

	assert.Error(t, svc.Acknowledge("999"))
}

func TestResolveForwardsUpstreamAndDropsAck(t *testing.T) {
	p := startedPoller(t, testAlerts())
	resolver := &fakeResolver{}
	svc := NewAlertService(resolver, p, nil, nil, logger.Discard())

	require.NoError(t, svc.Acknowledge("1"))
	require.NoError(t, svc.Resolve(context.Background(), "1"))

	assert.Equal(t, []string{"1"}, resolver.resolved)

	// The local ack is gone; once the backend reports the alert CLOSED the
	// snapshot will carry resolved, not acknowledged.
	assert.Empty(t, svc.List("", models.AlertAcknowledged))
}

func TestResolveUpstreamFailure(t *testing.T) {
	p := startedPoller(t, testAlerts())
	resolver := &fakeResolver{err: errors.New("backend rejected")}
	svc := NewAlertService(resolver, p, nil, nil, logger.Discard())

	err := svc.Resolve(context.Background(), "1")
	assert.Error(t, err)
}
