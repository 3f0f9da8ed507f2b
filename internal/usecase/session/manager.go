// Package session manages logged-in visits and the core components each one owns.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/metrics"
	"github.com/kailas-cloud/pawmatch/internal/usecase/favorites"
	locuc "github.com/kailas-cloud/pawmatch/internal/usecase/location"
	"github.com/kailas-cloud/pawmatch/internal/usecase/match"
	"github.com/kailas-cloud/pawmatch/internal/usecase/search"
)

// Defaults for zero Config fields.
const (
	DefaultIdleTimeout = time.Hour
	DefaultBreedsTTL   = 5 * time.Minute
)

// Credentials is the login form.
type Credentials struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Config tunes sessions created by the manager.
type Config struct {
	IdleTimeout   time.Duration
	PageSize      int
	SearchRetries int
	BreedsRetries int
	BreedsTTL     time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithGeocoderCache wraps every session geocoder, e.g. with a shared cache.
func WithGeocoderCache(wrap func(Geocoder) Geocoder) Option {
	return func(m *Manager) { m.wrapGeocoder = wrap }
}

// WithBreedCache wraps every session breed source, e.g. with a shared cache.
func WithBreedCache(wrap func(BreedSource) BreedSource) Option {
	return func(m *Manager) { m.wrapBreeds = wrap }
}

// Manager creates, finds and ends sessions.
type Manager struct {
	newCatalog   CatalogFactory
	wrapGeocoder func(Geocoder) Geocoder
	wrapBreeds   func(BreedSource) BreedSource
	cfg          Config
	validate     *validator.Validate
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(newCatalog CatalogFactory, cfg Config, logger *zap.Logger, opts ...Option) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.BreedsTTL <= 0 {
		cfg.BreedsTTL = DefaultBreedsTTL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = domain.DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		newCatalog: newCatalog,
		cfg:        cfg,
		validate:   validator.New(),
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login validates creds, authenticates against the catalog and starts a session.
// Invalid input fails with domain.ErrInvalidCredentials before any request.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*Session, error) {
	creds.Name = strings.TrimSpace(creds.Name)
	creds.Email = strings.TrimSpace(creds.Email)
	if err := m.validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, describe(err))
	}

	catalog, err := m.newCatalog()
	if err != nil {
		return nil, fmt.Errorf("create catalog client: %w", err)
	}
	if err := catalog.Login(ctx, creds.Name, creds.Email); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s := m.build(uuid.NewString(), creds.Name, catalog)

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	m.logger.Info("Session started", zap.String("session_id", s.id))
	return s, nil
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Logout ends the session locally and then tries to end it upstream.
// The local state is always dropped; an upstream failure is returned for display only.
func (m *Manager) Logout(ctx context.Context, id string) error {
	s, ok := m.remove(id)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := s.catalog.Logout(ctx); err != nil {
		m.logger.Warn("Upstream logout failed", zap.String("session_id", id), zap.Error(err))
		return fmt.Errorf("logout: %w", err)
	}
	m.logger.Info("Session ended", zap.String("session_id", id))
	return nil
}

// Drop ends the session locally without contacting the catalog,
// e.g. after the upstream credential expired.
func (m *Manager) Drop(id string) {
	if _, ok := m.remove(id); ok {
		m.logger.Info("Session dropped", zap.String("session_id", id))
	}
}

// Sweep drops sessions idle for longer than Config.IdleTimeout and returns how many.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	if len(expired) > 0 {
		m.logger.Info("Idle sessions dropped", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) remove(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return s, ok
}

func (m *Manager) build(id, userName string, catalog Catalog) *Session {
	logger := m.logger.With(zap.String("session_id", id))

	var geocoder Geocoder = catalog
	if m.wrapGeocoder != nil {
		geocoder = m.wrapGeocoder(geocoder)
	}
	var breeds BreedSource = catalog
	if m.wrapBreeds != nil {
		breeds = m.wrapBreeds(breeds)
	}

	searchSvc := search.New(catalog, logger).
		WithPageSize(m.cfg.PageSize).
		WithRetries(m.cfg.SearchRetries)

	return &Session{
		id:        id,
		userName:  userName,
		catalog:   catalog,
		breeds:    breeds,
		cfg:       m.cfg,
		logger:    logger,
		search:    searchSvc,
		zips:      locuc.New(geocoder, searchSvc, logger),
		favorites: favorites.New(),
		match:     match.New(catalog, logger),
		lastSeen:  m.now(),
	}
}

// describe turns validator errors into a short field list.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "email":
			parts = append(parts, field+" must be a valid email")
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, ", ")
}
