package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/repository"
)

type fakeSetupClient struct {
	nextOrgID  int
	nextZoneID int

	zoneErrFor   map[string]error
	cameraErrFor map[string]error
	orgErr       error

	createdZones   []map[string]interface{}
	createdCameras []models.Camera
	updatedFields  map[string]interface{}
}

func newFakeSetupClient() *fakeSetupClient {
	return &fakeSetupClient{
		nextOrgID:    100,
		nextZoneID:   200,
		zoneErrFor:   map[string]error{},
		cameraErrFor: map[string]error{},
	}
}

func (f *fakeSetupClient) CreateOrganization(ctx context.Context, body map[string]interface{}) (*models.Organization, error) {
	if f.orgErr != nil {
		return nil, f.orgErr
	}
	return &models.Organization{
		ID:   f.nextOrgID,
		Name: body["name"].(string),
	}, nil
}

func (f *fakeSetupClient) CreateZone(ctx context.Context, body map[string]interface{}) (*models.Zone, error) {
	name := body["name"].(string)
	if err := f.zoneErrFor[name]; err != nil {
		return nil, err
	}
	f.createdZones = append(f.createdZones, body)
	f.nextZoneID++
	return &models.Zone{ID: f.nextZoneID, Name: name}, nil
}

func (f *fakeSetupClient) CreateCamera(ctx context.Context, cam models.Camera) (*models.Camera, error) {
	if err := f.cameraErrFor[cam.Name]; err != nil {
		return nil, err
	}
	f.createdCameras = append(f.createdCameras, cam)
	return &cam, nil
}

func (f *fakeSetupClient) UpdateOrganization(ctx context.Context, id int, fields map[string]interface{}) (*models.Organization, error) {
	f.updatedFields = fields
	return &models.Organization{ID: id}, nil
}

func validSetupForm() *models.SetupForm {
	return &models.SetupForm{
		OrganizationName: "Convention Center",
		VenueType:        "event_venue",
		TotalCapacity:    500,
		Latitude:         52.37,
		Longitude:        4.89,
		Zones: []models.SetupZone{
			{
				Name:     "Main Hall",
				ZoneType: "hall",
				Capacity: 300,
				Cameras:  []models.SetupCamera{{Name: "hall-cam-1"}, {Name: "hall-cam-2"}},
			},
			{
				Name:     "Lobby",
				ZoneType: "entrance",
				Capacity: 100,
				Cameras:  []models.SetupCamera{{Name: "lobby-cam"}},
			},
		},
	}
}

func newSetupFixture() (*SetupService, *fakeSetupClient, *repository.MemoryStateRepository) {
	client := newFakeSetupClient()
	repo := repository.NewMemoryStateRepository()
	return NewSetupService(client, repo, logger.Discard()), client, repo
}

func TestSubmitCreatesEverything(t *testing.T) {
	svc, client, repo := newSetupFixture()

	result, err := svc.Submit(context.Background(), validSetupForm())
	require.NoError(t, err)

	assert.Equal(t, 100, result.OrganizationID)
	assert.Equal(t, 2, result.ZonesCreated)
	assert.Equal(t, 3, result.CamerasCreated)
	assert.Empty(t, result.Warning)

	// Zones are attached to the created organization.
	for _, z := range client.createdZones {
		assert.Equal(t, 100, z["organization_id"])
	}

	// The form is cached for restart recovery.
	cached, err := repo.LoadSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Convention Center", cached.OrganizationName)
}

func TestSubmitOrganizationFailureAborts(t *testing.T) {
	svc, client, repo := newSetupFixture()
	client.orgErr = errors.New("backend down")

	_, err := svc.Submit(context.Background(), validSetupForm())
	require.Error(t, err)

	assert.Empty(t, client.createdZones)
	_, err = repo.LoadSettings(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubmitZoneFailureIsWarningNotError(t *testing.T) {
	svc, client, _ := newSetupFixture()
	client.zoneErrFor["Main Hall"] = errors.New("duplicate zone")

	result, err := svc.Submit(context.Background(), validSetupForm())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ZonesCreated)
	// Cameras of the failed zone are skipped entirely.
	assert.Equal(t, 1, result.CamerasCreated)
	assert.Contains(t, result.Warning, "Main Hall")
}

func TestSubmitCameraFailureIsWarningNotError(t *testing.T) {
	svc, client, _ := newSetupFixture()
	client.cameraErrFor["hall-cam-2"] = errors.New("camera offline")

	result, err := svc.Submit(context.Background(), validSetupForm())
	require.NoError(t, err)

	assert.Equal(t, 2, result.ZonesCreated)
	assert.Equal(t, 2, result.CamerasCreated)
	assert.Contains(t, result.Warning, "hall-cam-2")
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newSetupFixture()

	tests := []struct {
		name string
		mut  func(*models.SetupForm)
	}{
		{"missing name", func(f *models.SetupForm) { f.OrganizationName = "  " }},
		{"zero capacity", func(f *models.SetupForm) { f.TotalCapacity = 0 }},
		{"unnamed zone", func(f *models.SetupForm) { f.Zones[0].Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validSetupForm()
			tt.mut(form)
			_, err := svc.Submit(context.Background(), form)
			assert.Error(t, err)
		})
	}

	t.Run("nil form", func(t *testing.T) {
		_, err := svc.Submit(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestSettingsRoundTrip(t *testing.T) {
	svc, _, _ := newSetupFixture()

	// Nothing cached yet.
	form, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Nil(t, form)

	require.NoError(t, svc.SaveSettings(context.Background(), validSetupForm()))

	form, err = svc.Settings(context.Background())
	require.NoError(t, err)
	require.NotNil(t, form)
	assert.Equal(t, "Convention Center", form.OrganizationName)
}

func TestUpdateOrganizationForwardsFields(t *testing.T) {
	svc, client, _ := newSetupFixture()

	org, err := svc.UpdateOrganization(context.Background(), 7, map[string]interface{}{
		"total_capacity": 600,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, org.ID)
	assert.Equal(t, 600, client.updatedFields["total_capacity"])
}
