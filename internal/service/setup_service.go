package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/repository"
)

// SetupClient is the slice of the upstream client the setup flow needs.
type SetupClient interface {
	CreateOrganization(ctx context.Context, body map[string]interface{}) (*models.Organization, error)
	CreateZone(ctx context.Context, body map[string]interface{}) (*models.Zone, error)
	CreateCamera(ctx context.Context, cam models.Camera) (*models.Camera, error)
	UpdateOrganization(ctx context.Context, id int, fields map[string]interface{}) (*models.Organization, error)
}

// SetupService orchestrates the multi-step venue setup: organization first,
// then each zone, then each zone's cameras — the same sequence the setup
// wizard walks through. The submitted form is mirrored into the settings
// cache so a restart restores it.
type SetupService struct {
	client SetupClient
	repo   repository.IStateRepository
	log    *logger.Logger
}

func NewSetupService(client SetupClient, repo repository.IStateRepository, log *logger.Logger) *SetupService {
	return &SetupService{
		client: client,
		repo:   repo,
		log:    log,
	}
}

// Submit creates the venue on the backend. A failed organization create
// aborts; a failed zone or camera create is recorded as a warning and the
// rest of the form still goes through, so a flaky backend costs a retry of
// one entity rather than the whole wizard.
func (s *SetupService) Submit(ctx context.Context, form *models.SetupForm) (*models.SetupResult, error) {
	if err := validateForm(form); err != nil {
		return nil, err
	}

	org, err := s.client.CreateOrganization(ctx, map[string]interface{}{
		"name":           form.OrganizationName,
		"org_type":       form.VenueType,
		"total_capacity": form.TotalCapacity,
		"latitude":       form.Latitude,
		"longitude":      form.Longitude,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	s.log.Info("Created organization %d (%s)", org.ID, org.Name)

	result := &models.SetupResult{OrganizationID: org.ID}
	var warnings []string

	for _, z := range form.Zones {
		zone, err := s.client.CreateZone(ctx, map[string]interface{}{
			"name":            z.Name,
			"zone_type":       z.ZoneType,
			"capacity":        z.Capacity,
			"latitude":        form.Latitude,
			"longitude":       form.Longitude,
			"organization_id": org.ID,
		})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("zone %q: %v", z.Name, err))
			continue
		}
		result.ZonesCreated++

		for _, cam := range z.Cameras {
			_, err := s.client.CreateCamera(ctx, models.Camera{
				Name:     cam.Name,
				IsActive: true,
				ZoneID:   zone.ID,
			})
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("camera %q: %v", cam.Name, err))
				continue
			}
			result.CamerasCreated++
		}
	}

	if len(warnings) > 0 {
		result.Warning = strings.Join(warnings, "; ")
		s.log.Warn("Setup completed with warnings: %s", result.Warning)
	}

	if err := s.repo.SaveSettings(ctx, form); err != nil {
		s.log.Warn("Could not cache setup settings: %v", err)
	}

	return result, nil
}

// Settings returns the cached setup blob, or nil when nothing was saved.
func (s *SetupService) Settings(ctx context.Context) (*models.SetupForm, error) {
	form, err := s.repo.LoadSettings(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		// The cache is best-effort; a corrupt blob degrades to "nothing
		// saved" rather than failing the request.
		s.log.Warn("Could not load cached settings: %v", err)
		return nil, nil
	}
	return form, nil
}

// SaveSettings overwrites the cached blob without touching the backend.
func (s *SetupService) SaveSettings(ctx context.Context, form *models.SetupForm) error {
	if err := validateForm(form); err != nil {
		return err
	}
	if err := s.repo.SaveSettings(ctx, form); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// UpdateOrganization forwards a partial org update upstream.
func (s *SetupService) UpdateOrganization(ctx context.Context, id int, fields map[string]interface{}) (*models.Organization, error) {
	org, err := s.client.UpdateOrganization(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update organization %d: %w", id, err)
	}
	return org, nil
}

func validateForm(form *models.SetupForm) error {
	if form == nil {
		return errors.New("form is required")
	}
	if strings.TrimSpace(form.OrganizationName) == "" {
		return errors.New("organization name is required")
	}
	if form.TotalCapacity <= 0 {
		return errors.New("total capacity must be positive")
	}
	for _, z := range form.Zones {
		if strings.TrimSpace(z.Name) == "" {
			return errors.New("every zone needs a name")
		}
	}
	return nil
}
