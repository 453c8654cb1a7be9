// Package poller drives the fetch-and-rederive cycle: on a fixed interval
// (and on venue change) it pulls organizations, zones, open alerts, and
// carbon stats from the backend, runs the derivation pipeline, and commits
// the result as one immutable snapshot.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"EcoFlowOps/internal/derive"
	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/metrics"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/websocket"
)

// Fetcher is the slice of the upstream client one tick needs.
type Fetcher interface {
	Organizations(ctx context.Context) ([]models.Organization, error)
	Zones(ctx context.Context, orgID int) ([]models.Zone, error)
	Alerts(ctx context.Context, status string, orgID int) ([]models.RawAlert, error)
	CarbonStats(ctx context.Context) (*models.CarbonStats, error)
}

// Broadcaster pushes committed snapshots to connected dashboards.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{})
}

type Config struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	// OrganizationID preselects the polled venue; 0 adopts the first
	// organization the backend returns.
	OrganizationID int
}

type Poller struct {
	fetcher Fetcher
	hub     Broadcaster
	log     *logger.Logger
	cfg     Config
	now     func() time.Time

	// issued is bumped once per tick; a tick may commit only while its
	// generation is still the latest, so a slow tick resolving after a
	// newer one is discarded instead of overwriting fresher data.
	issued uint64

	mu       sync.RWMutex
	orgID    int
	snapshot *models.Snapshot
	// Last successfully fetched value per slot. A failed fetch inside a
	// batch leaves its slot at the previous value; siblings are unaffected.
	lastOrgs   []models.Organization
	lastZones  []models.Zone
	lastAlerts []models.RawAlert
	lastCarbon *models.CarbonStats

	kick    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

func New(fetcher Fetcher, hub Broadcaster, cfg Config, log *logger.Logger) *Poller {
	return &Poller{
		fetcher: fetcher,
		hub:     hub,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
		orgID:   cfg.OrganizationID,
		kick:    make(chan struct{}, 1),
	}
}

// Start launches the poll loop. The first tick runs immediately.
func (p *Poller) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.wg.Add(1)
	go p.loop()

	p.log.Info("Poller started (interval: %s)", p.cfg.Interval)
}

// Stop cancels the loop and waits for it. In-flight fetches are abandoned;
// their ticks fail the generation check and never touch committed state.
func (p *Poller) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.cancel()
	p.wg.Wait()
	p.log.Info("Poller stopped")
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	return p.running.Load()
}

// Organization returns the currently polled venue ID, 0 before adoption.
func (p *Poller) Organization() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orgID
}

// SetOrganization switches the polled venue and triggers an immediate tick.
func (p *Poller) SetOrganization(orgID int) {
	p.mu.Lock()
	changed := p.orgID != orgID
	p.orgID = orgID
	p.mu.Unlock()

	if changed {
		p.log.Info("Selected organization changed to %d", orgID)
		p.Kick()
	}
}

// Kick requests an out-of-band tick. Coalesces if one is already pending.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Snapshot returns the last committed snapshot, or nil before the first
// successful tick.
func (p *Poller) Snapshot() *models.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

func (p *Poller) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.tick()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		case <-p.kick:
			p.tick()
		}
	}
}

// tick runs one fetch-and-derive cycle. The four fetches race independently
// and are joined all-settled: any one failing leaves its slot at the
// previous value and never aborts the siblings.
func (p *Poller) tick() {
	start := p.now()
	gen := atomic.AddUint64(&p.issued, 1)

	base := p.ctx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, p.cfg.FetchTimeout)
	defer cancel()

	p.mu.RLock()
	orgID := p.orgID
	p.mu.RUnlock()

	var (
		wg sync.WaitGroup

		orgs    []models.Organization
		orgsErr error

		zones    []models.Zone
		zonesErr error

		alerts    []models.RawAlert
		alertsErr error

		carbon    *models.CarbonStats
		carbonErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		orgs, orgsErr = p.fetcher.Organizations(ctx)
	}()
	go func() {
		defer wg.Done()
		zones, zonesErr = p.fetcher.Zones(ctx, orgID)
	}()
	go func() {
		defer wg.Done()
		alerts, alertsErr = p.fetcher.Alerts(ctx, models.RawStatusOpen, orgID)
	}()
	go func() {
		defer wg.Done()
		carbon, carbonErr = p.fetcher.CarbonStats(ctx)
	}()
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Only the most recently issued tick may commit. A stale completion is
	// discarded wholesale rather than partially merged.
	if gen != atomic.LoadUint64(&p.issued) {
		metrics.PollTicks.WithLabelValues("stale").Inc()
		p.log.Debug("Discarding stale tick (generation %d)", gen)
		return
	}

	failures := 0
	if orgsErr != nil {
		failures++
		metrics.UpstreamFailures.WithLabelValues("organizations").Inc()
		p.log.Warn("Organizations fetch failed: %v", orgsErr)
		orgs = p.lastOrgs
	}
	if zonesErr != nil {
		failures++
		metrics.UpstreamFailures.WithLabelValues("zones").Inc()
		p.log.Warn("Zones fetch failed: %v", zonesErr)
		zones = p.lastZones
	}
	if alertsErr != nil {
		failures++
		metrics.UpstreamFailures.WithLabelValues("alerts").Inc()
		p.log.Warn("Alerts fetch failed: %v", alertsErr)
		alerts = p.lastAlerts
	}
	if carbonErr != nil {
		failures++
		metrics.UpstreamFailures.WithLabelValues("carbon").Inc()
		p.log.Warn("Carbon stats fetch failed: %v", carbonErr)
		carbon = p.lastCarbon
	}

	if failures == 4 && p.snapshot == nil {
		// Nothing has ever succeeded; there is no snapshot to build.
		metrics.PollTicks.WithLabelValues("failed").Inc()
		return
	}

	p.lastOrgs = orgs
	p.lastZones = zones
	p.lastAlerts = alerts
	p.lastCarbon = carbon

	// Adopt the first organization when none was preselected, and re-run
	// immediately so zone/alert slots pick up the venue filter.
	if p.orgID == 0 && len(orgs) > 0 {
		p.orgID = orgs[0].ID
		p.log.Info("Adopted organization %d (%s)", orgs[0].ID, orgs[0].Name)
		p.Kick()
	}

	now := p.now()
	org := findOrg(orgs, p.orgID)
	derivedZones := derive.ResolveZoneDensity(zones, alerts, org)
	displayAlerts := derive.NormalizeAlerts(alerts, now)

	snap := &models.Snapshot{
		Generation:    gen,
		FetchedAt:     now,
		Organizations: orgs,
		Zones:         derivedZones,
		Alerts:        displayAlerts,
		Carbon:        carbon,
		Metrics:       derive.Aggregate(derivedZones, displayAlerts, carbon, now),
	}
	p.snapshot = snap

	metrics.PollTicks.WithLabelValues("committed").Inc()
	metrics.PollDuration.Observe(p.now().Sub(start).Seconds())
	metrics.ActiveAlerts.Set(float64(countActive(displayAlerts)))
	metrics.CriticalZones.Set(float64(countCritical(derivedZones)))

	if p.hub != nil {
		p.hub.Broadcast(websocket.TypeSnapshot, snap)
	}
}

func findOrg(orgs []models.Organization, id int) *models.Organization {
	for i := range orgs {
		if orgs[i].ID == id {
			return &orgs[i]
		}
	}
	return nil
}

func countActive(alerts []models.DisplayAlert) int {
	n := 0
	for _, a := range alerts {
		if a.Status == models.AlertActive {
			n++
		}
	}
	return n
}

func countCritical(zones []models.DerivedZone) int {
	n := 0
	for _, z := range zones {
		if z.Tier == models.DensityCritical {
			n++
		}
	}
	return n
}
