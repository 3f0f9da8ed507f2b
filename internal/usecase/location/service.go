package location

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/location"
)

// Service validates, resolves and caches the ZIP codes of one search session.
type Service struct {
	geocoder Geocoder
	filters  Filters
	logger   *zap.Logger

	mu      sync.Mutex
	cache   map[string]location.Location
	pending map[string]struct{}
}

// New creates a location resolver writing accepted zips into filters.
func New(geocoder Geocoder, filters Filters, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		geocoder: geocoder,
		filters:  filters,
		logger:   logger,
		cache:    make(map[string]location.Location),
		pending:  make(map[string]struct{}),
	}
}

// AddZip resolves zip and appends it to the filter.
// added is false when the zip was already present or is being resolved by a
// concurrent call; that case is not an error and issues no request.
func (s *Service) AddZip(ctx context.Context, zip string) (loc location.Location, added bool, err error) {
	if err := location.ValidateZip(zip); err != nil {
		return location.Location{}, false, err
	}

	s.mu.Lock()
	if _, busy := s.pending[zip]; busy || s.filters.HasZip(zip) {
		loc, ok := s.cache[zip]
		if !ok {
			loc = location.Location{ZipCode: zip}
		}
		s.mu.Unlock()
		return loc, false, nil
	}
	s.pending[zip] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, zip)
		s.mu.Unlock()
	}()

	locs, err := s.geocoder.Locations(ctx, []string{zip})
	if err != nil {
		return location.Location{}, false, fmt.Errorf("resolve zip %s: %w", zip, err)
	}
	loc, ok := find(locs, zip)
	if !ok {
		s.logger.Debug("Zip not found", zap.String("zip", zip))
		return location.Location{}, false, fmt.Errorf("resolve zip %s: %w", zip, domain.ErrUnknownZip)
	}

	s.mu.Lock()
	s.cache[zip] = loc
	s.filters.AddZip(zip)
	s.mu.Unlock()

	return loc, true, nil
}

// RemoveZip drops zip from the filter and the cache. Reports whether the filter changed.
func (s *Service) RemoveZip(zip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, zip)
	return s.filters.RemoveZip(zip)
}

// Location returns the cached location of zip.
func (s *Service) Location(zip string) (location.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.cache[zip]
	return loc, ok
}

// Locations returns the cached locations for zips, in order.
// Zips without a cached entry yield a Location carrying only the zip.
func (s *Service) Locations(zips []string) []location.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]location.Location, 0, len(zips))
	for _, z := range zips {
		loc, ok := s.cache[z]
		if !ok {
			loc = location.Location{ZipCode: z}
		}
		out = append(out, loc)
	}
	return out
}

// find picks the entry for zip. The endpoint answers unknown zips with
// an empty list or a null entry.
func find(locs []location.Location, zip string) (location.Location, bool) {
	for _, l := range locs {
		if l.ZipCode == zip {
			return l, true
		}
	}
	return location.Location{}, false
}
