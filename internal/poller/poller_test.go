package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
)

type fakeFetcher struct {
	mu sync.Mutex

	orgs    []models.Organization
	orgsErr error

	zones    []models.Zone
	zonesErr error

	alerts    []models.RawAlert
	alertsErr error

	carbon    *models.CarbonStats
	carbonErr error

	orgsHook func()
}

func (f *fakeFetcher) Organizations(ctx context.Context) ([]models.Organization, error) {
	if f.orgsHook != nil {
		f.orgsHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orgs, f.orgsErr
}

func (f *fakeFetcher) Zones(ctx context.Context, orgID int) ([]models.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.zones, f.zonesErr
}

func (f *fakeFetcher) Alerts(ctx context.Context, status string, orgID int) ([]models.RawAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts, f.alertsErr
}

func (f *fakeFetcher) CarbonStats(ctx context.Context) (*models.CarbonStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.carbon, f.carbonErr
}

func (f *fakeFetcher) set(mut func(*fakeFetcher)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mut(f)
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	types []string
}

func (b *fakeBroadcaster) Broadcast(msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.types = append(b.types, msgType)
}

func floatPtr(v float64) *float64 { return &v }

func healthyFetcher() *fakeFetcher {
	return &fakeFetcher{
		orgs: []models.Organization{
			{ID: 7, Name: "Convention Center", TotalCapacity: 500},
		},
		zones: []models.Zone{
			{ID: 1, Name: "Main Hall", Capacity: 50},
			{ID: 2, Name: "Lobby", Capacity: 100},
		},
		alerts: []models.RawAlert{
			{ID: 1, Heading: "Overcrowding in Main Hall", SubHeading: "45/50 people", Status: "OPEN", CreatedAt: "2026-03-14T10:00:00Z"},
		},
		carbon: &models.CarbonStats{TotalSavedAllTime: floatPtr(120)},
	}
}

func newTestPoller(f Fetcher, hub Broadcaster) *Poller {
	return New(f, hub, Config{
		Interval:     time.Hour,
		FetchTimeout: time.Second,
	}, logger.Discard())
}

func TestTickCommitsSnapshot(t *testing.T) {
	hub := &fakeBroadcaster{}
	p := newTestPoller(healthyFetcher(), hub)

	p.tick()

	snap := p.Snapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.Organizations, 1)
	assert.Len(t, snap.Zones, 2)
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, "Main Hall", snap.Alerts[0].Location)
	assert.Contains(t, hub.types, "SNAPSHOT")
}

func TestTickAdoptsFirstOrganization(t *testing.T) {
	p := newTestPoller(healthyFetcher(), nil)
	require.Equal(t, 0, p.Organization())

	p.tick()

	assert.Equal(t, 7, p.Organization())

	// Adoption queues an immediate re-poll so the venue filter applies.
	select {
	case <-p.kick:
	default:
		t.Fatal("expected a queued kick after adoption")
	}
}

func TestTickKeepsPreselectedOrganization(t *testing.T) {
	f := healthyFetcher()
	p := New(f, nil, Config{
		Interval:       time.Hour,
		FetchTimeout:   time.Second,
		OrganizationID: 42,
	}, logger.Discard())

	p.tick()

	assert.Equal(t, 42, p.Organization())
}

func TestTickFailureIsolation(t *testing.T) {
	f := healthyFetcher()
	p := newTestPoller(f, nil)

	p.tick()
	first := p.Snapshot()
	require.NotNil(t, first)
	require.Len(t, first.Alerts, 1)

	// Alerts start failing, zones change. The next snapshot keeps the old
	// alert batch but picks up the new zones.
	f.set(func(f *fakeFetcher) {
		f.alertsErr = errors.New("upstream timeout")
		f.zones = append(f.zones, models.Zone{ID: 3, Name: "Terrace", Capacity: 30})
	})

	p.tick()
	second := p.Snapshot()
	require.NotNil(t, second)
	assert.Len(t, second.Alerts, 1)
	assert.Len(t, second.Zones, 3)
	assert.Greater(t, second.Generation, first.Generation)
}

func TestTickAllFailedWithoutSnapshot(t *testing.T) {
	boom := errors.New("connection refused")
	f := &fakeFetcher{
		orgsErr:   boom,
		zonesErr:  boom,
		alertsErr: boom,
		carbonErr: boom,
	}
	p := newTestPoller(f, nil)

	p.tick()

	assert.Nil(t, p.Snapshot())
}

func TestTickAllFailedKeepsLastSnapshot(t *testing.T) {
	f := healthyFetcher()
	p := newTestPoller(f, nil)

	p.tick()
	require.NotNil(t, p.Snapshot())

	boom := errors.New("connection refused")
	f.set(func(f *fakeFetcher) {
		f.orgsErr, f.zonesErr, f.alertsErr, f.carbonErr = boom, boom, boom, boom
		f.orgs, f.zones, f.alerts, f.carbon = nil, nil, nil, nil
	})

	p.tick()

	// All slots fell back to their previous values; the dashboard keeps
	// showing the last good data.
	snap := p.Snapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.Zones, 2)
	assert.Len(t, snap.Alerts, 1)
}

func TestStaleTickDiscarded(t *testing.T) {
	f := healthyFetcher()

	release := make(chan struct{})
	started := make(chan struct{})
	var first atomic.Bool
	f.orgsHook = func() {
		// Only the first fetch blocks; sync.Once would stall concurrent
		// callers until the blocked function returns.
		if first.CompareAndSwap(false, true) {
			close(started)
			<-release
		}
	}

	p := newTestPoller(f, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.tick() // generation 1, blocked in the orgs fetch
	}()
	<-started

	p.tick() // generation 2, commits
	second := p.Snapshot()
	require.NotNil(t, second)
	require.Equal(t, uint64(2), second.Generation)

	close(release)
	<-done

	// The slow first tick resolved after the newer one and must not have
	// overwritten it.
	assert.Equal(t, uint64(2), p.Snapshot().Generation)
}

func TestSetOrganizationQueuesKick(t *testing.T) {
	p := newTestPoller(healthyFetcher(), nil)

	p.SetOrganization(9)
	assert.Equal(t, 9, p.Organization())

	select {
	case <-p.kick:
	default:
		t.Fatal("expected a queued kick after organization change")
	}

	// Same value again is a no-op.
	p.SetOrganization(9)
	select {
	case <-p.kick:
		t.Fatal("unchanged organization must not kick")
	default:
	}
}

func TestStartStop(t *testing.T) {
	p := newTestPoller(healthyFetcher(), nil)

	p.Start()
	assert.True(t, p.Running())

	require.Eventually(t, func() bool {
		return p.Snapshot() != nil
	}, time.Second, 10*time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())

	// Stop again is a no-op.
	p.Stop()
}
