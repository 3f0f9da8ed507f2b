package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/filter"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/page"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/query"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/sort"
	"github.com/kailas-cloud/pawmatch/internal/metrics"
)

// result is one hydrated page.
type result struct {
	page page.Page
	dogs []dog.Dog
}

// flight is one shared fetch. Searches for the same query key join it.
type flight struct {
	key     string
	cancel  context.CancelFunc
	applied bool
}

// Service owns the filter state of a session and runs catalog searches for it.
//
// Only the flight serving the most recent search may change the snapshot.
// Concurrent searches for the same query key share one in-flight fetch and
// all see the snapshot it produces. A flight superseded by a different key
// is cancelled and its late result discarded.
type Service struct {
	catalog  Catalog
	pageSize int
	retries  int
	logger   *zap.Logger
	flights  singleflight.Group

	mu      sync.Mutex
	filter  filter.State
	snap    Snapshot
	active  *flight // fetch in progress, nil when idle
	latest  *flight // flight of the most recent search
	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates a search service with an empty filter.
func New(catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := filter.New()
	return &Service{
		catalog:  catalog,
		pageSize: domain.DefaultPageSize,
		logger:   logger,
		filter:   f,
		snap:     Snapshot{Status: Idle, Filter: f},
		subs:     make(map[int]func(Snapshot)),
	}
}

// WithPageSize overrides the page size.
func (s *Service) WithPageSize(n int) *Service {
	if n > 0 {
		s.pageSize = n
	}
	return s
}

// WithRetries sets how many times a fetch failing with a transport error is retried.
func (s *Service) WithRetries(n int) *Service {
	if n >= 0 {
		s.retries = n
	}
	return s
}

// Snapshot returns the current state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Filter returns the current filter, including edits not searched yet.
func (s *Service) Filter() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Subscribe registers fn for every snapshot change. The returned func unsubscribes.
// Notifications may arrive concurrently; use Snapshot.Version to drop older ones.
func (s *Service) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Search makes f the current filter and runs it.
// Failures end up in the returned snapshot (Status Failed), never as a separate error.
func (s *Service) Search(ctx context.Context, f filter.State) Snapshot {
	return s.edit(ctx, func(filter.State) filter.State { return f }, true)
}

// Refresh re-runs the current filter (retry affordance).
func (s *Service) Refresh(ctx context.Context) Snapshot {
	return s.edit(ctx, func(cur filter.State) filter.State { return cur }, true)
}

// AddBreed adds a breed filter and searches from the first page. Duplicates are a no-op.
func (s *Service) AddBreed(ctx context.Context, breed string) Snapshot {
	return s.edit(ctx, func(cur filter.State) filter.State { return cur.WithBreed(breed) }, false)
}

// RemoveBreed drops a breed filter and searches from the first page.
func (s *Service) RemoveBreed(ctx context.Context, breed string) Snapshot {
	return s.edit(ctx, func(cur filter.State) filter.State { return cur.WithoutBreed(breed) }, false)
}

// SetBreeds replaces the breed filter and searches from the first page.
func (s *Service) SetBreeds(ctx context.Context, breeds []string) Snapshot {
	return s.edit(ctx, func(cur filter.State) filter.State { return cur.WithBreeds(breeds) }, false)
}

// SetSort changes the sort order and searches from the first page.
func (s *Service) SetSort(ctx context.Context, k sort.Key) Snapshot {
	return s.edit(ctx, func(cur filter.State) filter.State { return cur.WithSort(k) }, false)
}

// SetQuery replaces breeds and sort in one edit, keeps the zip codes and
// always searches from the first page.
func (s *Service) SetQuery(ctx context.Context, breeds []string, k sort.Key) Snapshot {
	return s.edit(ctx, func(cur filter.State) filter.State {
		return cur.WithBreeds(breeds).WithSort(k).WithCursor("")
	}, true)
}

// NextPage searches the page after the current one.
// Returns domain.ErrNoPage when the current page has no next cursor or the
// filter changed since it was loaded.
func (s *Service) NextPage(ctx context.Context) (Snapshot, error) {
	return s.update(ctx, func(cur filter.State) (filter.State, error) {
		if !s.snap.CanNext() || !cur.Equal(s.snap.Filter) {
			return cur, domain.ErrNoPage
		}
		return cur.WithCursor(s.snap.Page.NextCursor), nil
	}, true)
}

// PrevPage searches the page before the current one.
// Returns domain.ErrNoPage when the current page has no previous cursor or the
// filter changed since it was loaded.
func (s *Service) PrevPage(ctx context.Context) (Snapshot, error) {
	return s.update(ctx, func(cur filter.State) (filter.State, error) {
		if !s.snap.CanPrev() || !cur.Equal(s.snap.Filter) {
			return cur, domain.ErrNoPage
		}
		return cur.WithCursor(s.snap.Page.PrevCursor), nil
	}, true)
}

// HasZip reports whether zip is part of the current filter.
func (s *Service) HasZip(zip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.HasZip(zip)
}

// AddZip appends zip to the filter without searching. Reports whether it was added.
func (s *Service) AddZip(zip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.filter.WithZip(zip)
	if next.Equal(s.filter) {
		return false
	}
	s.filter = next
	return true
}

// RemoveZip drops zip from the filter without searching. Reports whether it was present.
func (s *Service) RemoveZip(zip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.filter.WithoutZip(zip)
	if next.Equal(s.filter) {
		return false
	}
	s.filter = next
	return true
}

func (s *Service) edit(ctx context.Context, fn func(filter.State) filter.State, force bool) Snapshot {
	snap, _ := s.update(ctx, func(cur filter.State) (filter.State, error) { return fn(cur), nil }, force)
	return snap
}

// update applies fn to the filter and runs the result. fn runs under s.mu and
// may read s.snap; an error from fn aborts without a request. Unless force is
// set, an unchanged filter returns the current snapshot without a request.
func (s *Service) update(
	ctx context.Context,
	fn func(filter.State) (filter.State, error),
	force bool,
) (Snapshot, error) {
	s.mu.Lock()
	f, err := fn(s.filter)
	if err != nil {
		snap := s.snap
		s.mu.Unlock()
		return snap, err
	}
	if !force && f.Equal(s.filter) {
		snap := s.snap
		s.mu.Unlock()
		return snap, nil
	}
	s.filter = f

	req := query.Build(f, s.pageSize)
	key := req.Key()

	if s.active != nil && s.active.key != key {
		s.active.cancel()
		s.flights.Forget(s.active.key)
		s.active = nil
	}
	fetchCtx := ctx
	if s.active == nil {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithCancel(ctx)
		s.active = &flight{key: key, cancel: cancel}
	}
	fl := s.active
	s.latest = fl

	loading := s.snap
	loading.Version++
	loading.Status = Loading
	loading.Filter = f
	loading.Err = nil
	s.snap = loading
	subs := s.subscribers()
	s.mu.Unlock()

	notify(subs, loading)

	v, err, _ := s.flights.Do(key, func() (any, error) {
		return s.fetch(fetchCtx, req)
	})

	s.mu.Lock()
	fl.cancel()
	if s.active == fl {
		s.active = nil
	}
	if fl != s.latest {
		snap := s.snap
		s.mu.Unlock()
		metrics.StaleResultsTotal.Inc()
		s.logger.Debug("Discarding superseded search result", zap.String("query", key))
		return snap, nil
	}
	if fl.applied {
		snap := s.snap
		s.mu.Unlock()
		return snap, nil
	}
	fl.applied = true

	next := s.snap
	next.Version++
	next.Filter = f
	if err != nil {
		next.Status = Failed
		next.Err = err
		s.logger.Warn("Search failed", zap.String("query", key), zap.Error(err))
	} else {
		res := v.(result)
		next.Status = Success
		next.Page = res.page
		next.Dogs = res.dogs
		next.Err = nil
	}
	s.snap = next
	subs = s.subscribers()
	s.mu.Unlock()

	notify(subs, next)
	return next, nil
}

// fetch requests the id page and hydrates it, retrying transport failures.
func (s *Service) fetch(ctx context.Context, req query.Request) (result, error) {
	var (
		res result
		err error
	)
	for attempt := 0; attempt <= s.retries; attempt++ {
		res, err = s.fetchOnce(ctx, req)
		if err == nil || !errors.Is(err, domain.ErrTransport) || ctx.Err() != nil {
			return res, err
		}
		s.logger.Debug("Retrying search after transport error",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return res, err
}

func (s *Service) fetchOnce(ctx context.Context, req query.Request) (result, error) {
	p, err := s.catalog.SearchDogs(ctx, req)
	if err != nil {
		return result{}, fmt.Errorf("search dogs: %w", err)
	}
	if p.IsEmpty() {
		return result{page: p, dogs: []dog.Dog{}}, nil
	}

	dogs, err := s.catalog.Dogs(ctx, p.DogIDs)
	if err != nil {
		return result{}, fmt.Errorf("hydrate dogs: %w", err)
	}
	return result{page: p, dogs: dog.OrderByIDs(p.DogIDs, dogs)}, nil
}

func (s *Service) subscribers() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
