package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/poller"
)

func TestBuildOperationsPDFRequiresSnapshot(t *testing.T) {
	p := poller.New(&stubFetcher{}, nil, poller.Config{
		Interval:     time.Hour,
		FetchTimeout: time.Second,
	}, logger.Discard())
	svc := NewReportService(p, logger.Discard())

	_, err := svc.BuildOperationsPDF()
	assert.Error(t, err)
}

func TestBuildOperationsPDFRendersSnapshot(t *testing.T) {
	p := startedPoller(t, testAlerts())
	svc := NewReportService(p, logger.Discard())

	pdf, err := svc.BuildOperationsPDF()
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestOrgByIDFollowsPolledVenue(t *testing.T) {
	snap := &models.Snapshot{
		Organizations: []models.Organization{
			{ID: 1, Name: "Convention Center"},
			{ID: 2, Name: "West Pavilion"},
		},
	}

	org := orgByID(snap, 2)
	require.NotNil(t, org)
	assert.Equal(t, "West Pavilion", org.Name)

	// A venue missing from the snapshot yields no header line, never a
	// fallback to whatever happens to be listed first.
	assert.Nil(t, orgByID(snap, 99))
}

func TestReportNamesSelectedVenueAfterSwitch(t *testing.T) {
	fetcher := &stubFetcher{
		orgs: []models.Organization{
			{ID: 1, Name: "Convention Center"},
			{ID: 2, Name: "West Pavilion"},
		},
	}
	p := poller.New(fetcher, nil, poller.Config{
		Interval:     time.Hour,
		FetchTimeout: time.Second,
	}, logger.Discard())
	p.Start()
	t.Cleanup(p.Stop)

	require.Eventually(t, func() bool {
		return p.Snapshot() != nil
	}, time.Second, 10*time.Millisecond)

	p.SetOrganization(2)
	require.Eventually(t, func() bool {
		return p.Organization() == 2
	}, time.Second, 10*time.Millisecond)

	snap := p.Snapshot()
	require.NotNil(t, snap)

	org := orgByID(snap, p.Organization())
	require.NotNil(t, org)
	assert.Equal(t, "West Pavilion", org.Name)

	svc := NewReportService(p, logger.Discard())
	pdf, err := svc.BuildOperationsPDF()
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}
