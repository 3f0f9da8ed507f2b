package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
	"github.com/kailas-cloud/pawmatch/internal/domain/location"
	"github.com/kailas-cloud/pawmatch/internal/usecase/favorites"
	locuc "github.com/kailas-cloud/pawmatch/internal/usecase/location"
	"github.com/kailas-cloud/pawmatch/internal/usecase/match"
	"github.com/kailas-cloud/pawmatch/internal/usecase/search"
)

// Session is one logged-in visit. It owns the filter, favorites, resolved
// locations and match state; nothing is shared with other sessions.
type Session struct {
	id       string
	userName string
	catalog  Catalog
	breeds   BreedSource
	cfg      Config
	logger   *zap.Logger

	search    *search.Service
	zips      *locuc.Service
	favorites *favorites.Service
	match     *match.Service

	mu        sync.Mutex
	lastSeen  time.Time
	breedMemo []string
	breedsAt  time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserName returns the name given at login.
func (s *Session) UserName() string { return s.userName }

// Search returns the search orchestrator.
func (s *Session) Search() *search.Service { return s.search }

// Zips returns the location resolver.
func (s *Session) Zips() *locuc.Service { return s.zips }

// Favorites returns the favorites tracker.
func (s *Session) Favorites() *favorites.Service { return s.favorites }

// Match returns the match workflow.
func (s *Session) Match() *match.Service { return s.match }

// LastSeen returns the time of the last lookup through the manager.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// CheckSession probes the upstream API with the session credential.
// A non-2xx answer means the visitor must log in again.
func (s *Session) CheckSession(ctx context.Context) error {
	if err := s.catalog.Ping(ctx); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	return nil
}

// Breeds returns the breed list, memoized for Config.BreedsTTL.
// Transport failures are retried Config.BreedsRetries times.
func (s *Session) Breeds(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	if s.breedMemo != nil && time.Since(s.breedsAt) < s.cfg.BreedsTTL {
		out := slices.Clone(s.breedMemo)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	var (
		breeds []string
		err    error
	)
	for attempt := 0; attempt <= s.cfg.BreedsRetries; attempt++ {
		breeds, err = s.breeds.Breeds(ctx)
		if err == nil || !errors.Is(err, domain.ErrTransport) || ctx.Err() != nil {
			break
		}
		s.logger.Debug("Retrying breeds after transport error", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	if err != nil {
		return nil, fmt.Errorf("list breeds: %w", err)
	}

	s.mu.Lock()
	s.breedMemo = slices.Clone(breeds)
	s.breedsAt = time.Now()
	s.mu.Unlock()
	return breeds, nil
}

// AddZip resolves zip, adds it to the filter and re-runs the search when it was new.
// added is false when the zip was already present or still being resolved elsewhere.
func (s *Session) AddZip(ctx context.Context, zip string) (loc location.Location, added bool, snap search.Snapshot, err error) {
	loc, added, err = s.zips.AddZip(ctx, zip)
	if err != nil {
		return location.Location{}, false, s.search.Snapshot(), err
	}
	if !added {
		return loc, false, s.search.Snapshot(), nil
	}
	return loc, true, s.search.Refresh(ctx), nil
}

// RemoveZip drops zip and re-runs the search when the filter changed.
func (s *Session) RemoveZip(ctx context.Context, zip string) search.Snapshot {
	if !s.zips.RemoveZip(zip) {
		return s.search.Snapshot()
	}
	return s.search.Refresh(ctx)
}

// ZipLocations returns the locations of the zips currently in the filter.
func (s *Session) ZipLocations() []location.Location {
	return s.zips.Locations(s.search.Filter().ZipCodes())
}

// GenerateMatch requests a match for the current favorites.
func (s *Session) GenerateMatch(ctx context.Context) (dog.Dog, error) {
	return s.match.Generate(ctx, s.favorites.IDs())
}
