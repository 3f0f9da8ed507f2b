package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
)

// Status is the workflow state.
type Status string

// Workflow states.
const (
	Idle       Status = "idle"
	Generating Status = "generating"
	Matched    Status = "matched"
	Failed     Status = "error"
)

// Snapshot is the current workflow state. Dog is set only when Matched.
type Snapshot struct {
	Status Status
	Dog    dog.Dog
	Err    error
}

// ErrorMessage returns the user-facing message for the Failed state.
func (s Snapshot) ErrorMessage() string {
	if s.Status != Failed {
		return ""
	}
	return domain.UserMessage(s.Err)
}

// Service runs match generation. Each call is an independent request; results are not memoized.
type Service struct {
	catalog Catalog
	logger  *zap.Logger

	mu   sync.Mutex
	snap Snapshot
}

// New creates an idle match workflow.
func New(catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, logger: logger, snap: Snapshot{Status: Idle}}
}

// Snapshot returns the current state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Generate asks the catalog for a match among favoriteIDs and hydrates it.
// Returns domain.ErrMatchInProgress while another generation runs.
func (s *Service) Generate(ctx context.Context, favoriteIDs []string) (dog.Dog, error) {
	s.mu.Lock()
	if s.snap.Status == Generating {
		s.mu.Unlock()
		return dog.Dog{}, domain.ErrMatchInProgress
	}
	if len(favoriteIDs) == 0 {
		s.snap = Snapshot{Status: Failed, Err: domain.ErrNoFavoritesSelected}
		s.mu.Unlock()
		return dog.Dog{}, domain.ErrNoFavoritesSelected
	}
	s.snap = Snapshot{Status: Generating}
	s.mu.Unlock()

	d, err := s.generate(ctx, favoriteIDs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Warn("Match generation failed", zap.Int("favorites", len(favoriteIDs)), zap.Error(err))
		s.snap = Snapshot{Status: Failed, Err: err}
		return dog.Dog{}, err
	}
	s.snap = Snapshot{Status: Matched, Dog: d}
	return d, nil
}

// Dismiss returns the workflow to idle unless a generation is running.
func (s *Service) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Status != Generating {
		s.snap = Snapshot{Status: Idle}
	}
}

func (s *Service) generate(ctx context.Context, ids []string) (dog.Dog, error) {
	matchID, err := s.catalog.Match(ctx, ids)
	if err != nil {
		return dog.Dog{}, fmt.Errorf("generate match: %w", err)
	}
	if matchID == "" {
		return dog.Dog{}, domain.ErrNoMatchFound
	}

	dogs, err := s.catalog.Dogs(ctx, []string{matchID})
	if err != nil {
		return dog.Dog{}, fmt.Errorf("hydrate match %s: %w", matchID, err)
	}
	for _, d := range dogs {
		if d.ID == matchID {
			return d, nil
		}
	}
	return dog.Dog{}, fmt.Errorf("hydrate match %s: %w", matchID, domain.ErrMatchRecordMissing)
}

// IsOutcome reports whether err is a legitimate match outcome rather than a fault.
func IsOutcome(err error) bool {
	return errors.Is(err, domain.ErrNoMatchFound) || errors.Is(err, domain.ErrNoFavoritesSelected)
}
