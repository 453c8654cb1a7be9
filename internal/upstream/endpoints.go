package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"EcoFlowOps/internal/models"
)

func (c *Client) Organizations(ctx context.Context) ([]models.Organization, error) {
	var out []models.Organization
	if err := c.do(ctx, http.MethodGet, "/organizations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Organization(ctx context.Context, id int) (*models.Organization, error) {
	var out models.Organization
	if err := c.do(ctx, http.MethodGet, "/organizations/"+strconv.Itoa(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrganization posts the org and returns the backend's record with ID.
func (c *Client) CreateOrganization(ctx context.Context, body map[string]interface{}) (*models.Organization, error) {
	var out models.Organization
	if err := c.do(ctx, http.MethodPost, "/organizations", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrganization sends a partial update; only the supplied keys change.
func (c *Client) UpdateOrganization(ctx context.Context, id int, fields map[string]interface{}) (*models.Organization, error) {
	var out models.Organization
	if err := c.do(ctx, http.MethodPut, "/organizations/"+strconv.Itoa(id), nil, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Zones(ctx context.Context, orgID int) ([]models.Zone, error) {
	query := url.Values{}
	if orgID > 0 {
		query.Set("org_id", strconv.Itoa(orgID))
	}
	var out []models.Zone
	if err := c.do(ctx, http.MethodGet, "/zones", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateZone(ctx context.Context, body map[string]interface{}) (*models.Zone, error) {
	var out models.Zone
	if err := c.do(ctx, http.MethodPost, "/zones", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCamera(ctx context.Context, cam models.Camera) (*models.Camera, error) {
	var out models.Camera
	if err := c.do(ctx, http.MethodPost, "/cameras", nil, cam, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Alerts lists alerts, optionally filtered by status (OPEN/CLOSED) and
// organization.
func (c *Client) Alerts(ctx context.Context, status string, orgID int) ([]models.RawAlert, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if orgID > 0 {
		query.Set("org_id", strconv.Itoa(orgID))
	}
	var out []models.RawAlert
	if err := c.do(ctx, http.MethodGet, "/alerts", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveAlert closes an alert on the backend. The backend may fan out a
// push notification to mobile clients when an alert transitions to CLOSED.
func (c *Client) ResolveAlert(ctx context.Context, id string) error {
	body := map[string]string{"status": models.RawStatusClosed}
	return c.do(ctx, http.MethodPut, "/alerts/"+id, nil, body, nil)
}

func (c *Client) CarbonStats(ctx context.Context) (*models.CarbonStats, error) {
	var out models.CarbonStats
	if err := c.do(ctx, http.MethodGet, "/carbon/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateNotification(ctx context.Context, n models.Notification) (*models.Notification, error) {
	var out models.Notification
	if err := c.do(ctx, http.MethodPost, "/notifications", nil, n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the backend's view of the current session, or an error when the
// cached tokens are missing or rejected.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health probes the backend with its cheapest unauthenticated read.
func (c *Client) Health(ctx context.Context) error {
	var out models.CarbonStats
	return c.do(ctx, http.MethodGet, "/carbon/stats", nil, nil, &out)
}
