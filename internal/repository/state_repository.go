package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"EcoFlowOps/internal/models"
)

// Fixed storage keys for the two client-side blobs the gateway mirrors.
// Both are best-effort caches, never a source of truth.
const (
	KeyTokens   = "ecoflow_tokens"
	KeySettings = "ecoflow-admin-settings"
)

// ErrNotFound is returned when a key has never been stored.
var ErrNotFound = errors.New("state key not found")

// IStateRepository persists small JSON blobs under fixed keys: the session
// token pair and the organization setup form.
type IStateRepository interface {
	LoadTokens(ctx context.Context) (*models.TokenPair, error)
	SaveTokens(ctx context.Context, pair *models.TokenPair) error
	ClearTokens(ctx context.Context) error

	LoadSettings(ctx context.Context) (*models.SetupForm, error)
	SaveSettings(ctx context.Context, form *models.SetupForm) error
}

type StateRepository struct {
	db *sql.DB
}

func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// EnsureSchema creates the single key/value table the gateway needs. The
// local database is a cache, so losing it costs nothing but a re-login.
func (r *StateRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ops_state (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure ops_state schema: %w", err)
	}
	return nil
}

func (r *StateRepository) get(ctx context.Context, key string, out interface{}) error {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM ops_state WHERE key = $1`, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load state %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode state %q: %w", key, err)
	}
	return nil
}

func (r *StateRepository) set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode state %q: %w", key, err)
	}

	query := `
		INSERT INTO ops_state (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, raw, time.Now()); err != nil {
		return fmt.Errorf("failed to store state %q: %w", key, err)
	}
	return nil
}

func (r *StateRepository) delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ops_state WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete state %q: %w", key, err)
	}
	return nil
}

func (r *StateRepository) LoadTokens(ctx context.Context) (*models.TokenPair, error) {
	var pair models.TokenPair
	if err := r.get(ctx, KeyTokens, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (r *StateRepository) SaveTokens(ctx context.Context, pair *models.TokenPair) error {
	return r.set(ctx, KeyTokens, pair)
}

func (r *StateRepository) ClearTokens(ctx context.Context) error {
	return r.delete(ctx, KeyTokens)
}

func (r *StateRepository) LoadSettings(ctx context.Context) (*models.SetupForm, error) {
	var form models.SetupForm
	if err := r.get(ctx, KeySettings, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *StateRepository) SaveSettings(ctx context.Context, form *models.SetupForm) error {
	return r.set(ctx, KeySettings, form)
}
