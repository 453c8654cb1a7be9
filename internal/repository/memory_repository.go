package repository

import (
	"context"
	"sync"

	"EcoFlowOps/internal/models"
)

// MemoryStateRepository keeps the cached blobs in process memory. Used when
// no local database is configured and throughout the tests. Nothing survives
// a restart, which is acceptable: both blobs are caches.
type MemoryStateRepository struct {
	mu       sync.RWMutex
	tokens   *models.TokenPair
	settings *models.SetupForm
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{}
}

func (m *MemoryStateRepository) LoadTokens(ctx context.Context) (*models.TokenPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tokens == nil {
		return nil, ErrNotFound
	}
	cp := *m.tokens
	return &cp, nil
}

func (m *MemoryStateRepository) SaveTokens(ctx context.Context, pair *models.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pair
	m.tokens = &cp
	return nil
}

func (m *MemoryStateRepository) ClearTokens(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	return nil
}

func (m *MemoryStateRepository) LoadSettings(ctx context.Context) (*models.SetupForm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return nil, ErrNotFound
	}
	cp := *m.settings
	return &cp, nil
}

func (m *MemoryStateRepository) SaveSettings(ctx context.Context, form *models.SetupForm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *form
	m.settings = &cp
	return nil
}
