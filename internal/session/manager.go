// Package session manages the cached backend token pair. The pair is a
// best-effort mirror of the browser session, persisted through an injected
// state repository so a gateway restart does not force a re-login.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/repository"
)

// expirySkew widens the local expiry check so a token about to lapse is
// treated as already expired.
const expirySkew = 30 * time.Second

type Manager struct {
	repo repository.IStateRepository
	log  *logger.Logger

	mu   sync.RWMutex
	pair *models.TokenPair
}

// NewManager loads any persisted pair into memory. A missing or unreadable
// record is not an error: the gateway simply starts unauthenticated.
func NewManager(repo repository.IStateRepository, log *logger.Logger) *Manager {
	m := &Manager{repo: repo, log: log}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pair, err := repo.LoadTokens(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn("Could not load cached session tokens: %v", err)
		}
		return m
	}

	m.pair = pair
	log.Info("Restored cached session tokens")
	return m
}

// Tokens returns a copy of the current pair, or nil when unauthenticated.
func (m *Manager) Tokens() *models.TokenPair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pair == nil {
		return nil
	}
	cp := *m.pair
	return &cp
}

// SetTokens replaces the whole pair, e.g. after a fresh login handed to the
// gateway. Persistence failures are logged, not surfaced: the cache is never
// authoritative.
func (m *Manager) SetTokens(pair models.TokenPair) {
	m.mu.Lock()
	m.pair = &pair
	m.mu.Unlock()

	m.persist(&pair)
}

// SetAccess swaps in a refreshed access token, keeping the refresh token.
func (m *Manager) SetAccess(access string) {
	m.mu.Lock()
	if m.pair == nil {
		m.pair = &models.TokenPair{}
	}
	m.pair.Access = access
	cp := *m.pair
	m.mu.Unlock()

	m.persist(&cp)
}

// Clear drops the cached pair, locally and from storage.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.pair = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.repo.ClearTokens(ctx); err != nil {
		m.log.Warn("Could not clear persisted tokens: %v", err)
	}
}

// Authenticated reports whether any access token is cached.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair != nil && m.pair.Access != ""
}

// AccessExpired inspects the access token's exp claim without verifying the
// signature (verification is the backend's job; we only want to skip a
// request that is certain to 401). Tokens without a readable exp claim are
// assumed live and left for the backend to judge.
func (m *Manager) AccessExpired(now time.Time) bool {
	m.mu.RLock()
	access := ""
	if m.pair != nil {
		access = m.pair.Access
	}
	m.mu.RUnlock()

	if access == "" {
		return false
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(access, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return now.Add(expirySkew).After(exp.Time)
}

func (m *Manager) persist(pair *models.TokenPair) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.repo.SaveTokens(ctx, pair); err != nil {
		m.log.Warn("Could not persist session tokens: %v", err)
	}
}
