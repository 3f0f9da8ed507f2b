package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/filter"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/page"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/query"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/sort"
)

// --- Mocks ---

type mockCatalog struct {
	mu sync.Mutex

	page      page.Page
	dogs      []dog.Dog
	searchErr []error // consumed one per call; nil entries succeed
	dogsErr   error

	searchCalls []query.Request
	dogsCalls   [][]string
}

func (m *mockCatalog) SearchDogs(_ context.Context, req query.Request) (page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls = append(m.searchCalls, req)
	if len(m.searchErr) > 0 {
		err := m.searchErr[0]
		m.searchErr = m.searchErr[1:]
		if err != nil {
			return page.Page{}, err
		}
	}
	return m.page, nil
}

func (m *mockCatalog) Dogs(_ context.Context, ids []string) ([]dog.Dog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dogsCalls = append(m.dogsCalls, ids)
	return m.dogs, m.dogsErr
}

func (m *mockCatalog) lastSearch(t *testing.T) query.Request {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.searchCalls) == 0 {
		t.Fatal("expected a search call")
	}
	return m.searchCalls[len(m.searchCalls)-1]
}

// gatedCatalog blocks SearchDogs for a breed until its gate is closed.
// It ignores context cancellation so late responses really arrive late.
type gatedCatalog struct {
	gates   map[string]chan struct{}
	started map[string]chan struct{}
	pages   map[string]page.Page
	dogs    map[string]dog.Dog
}

func (g *gatedCatalog) SearchDogs(_ context.Context, req query.Request) (page.Page, error) {
	breed := ""
	if b := req.Breeds(); len(b) > 0 {
		breed = b[0]
	}
	if ch, ok := g.started[breed]; ok {
		close(ch)
	}
	if gate, ok := g.gates[breed]; ok {
		<-gate
	}
	return g.pages[breed], nil
}

func (g *gatedCatalog) Dogs(_ context.Context, ids []string) ([]dog.Dog, error) {
	out := make([]dog.Dog, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.dogs[id])
	}
	return out, nil
}

// blockingCatalog holds every SearchDogs call until release is closed and counts the calls.
type blockingCatalog struct {
	release chan struct{}
	calls   atomic.Int32
	page    page.Page
}

func (b *blockingCatalog) SearchDogs(_ context.Context, _ query.Request) (page.Page, error) {
	b.calls.Add(1)
	<-b.release
	return b.page, nil
}

func (b *blockingCatalog) Dogs(_ context.Context, ids []string) ([]dog.Dog, error) {
	out := make([]dog.Dog, 0, len(ids))
	for _, id := range ids {
		out = append(out, dog.Dog{ID: id})
	}
	return out, nil
}

func transportErr() error {
	return domain.NewAPIError("Network error while accessing /dogs/search: connection refused", 0, "/dogs/search")
}

// --- Tests ---

func TestSearch_EmptyPageSkipsHydration(t *testing.T) {
	cat := &mockCatalog{page: page.Page{Total: 0}}
	svc := New(cat, nil)

	snap := svc.Search(context.Background(), filter.New())

	if snap.Status != Success {
		t.Fatalf("expected %q, got %q (err=%v)", Success, snap.Status, snap.Err)
	}
	if len(cat.dogsCalls) != 0 {
		t.Errorf("expected no hydration call, got %d", len(cat.dogsCalls))
	}
	if !snap.NoResults() {
		t.Error("expected NoResults for empty success")
	}
	if snap.Dogs == nil {
		t.Error("expected empty, non-nil dogs")
	}
}

func TestSearch_PreservesIDOrder(t *testing.T) {
	cat := &mockCatalog{
		page: page.Page{DogIDs: []string{"b", "a", "c"}, Total: 3},
		dogs: []dog.Dog{{ID: "a"}, {ID: "c"}, {ID: "b"}},
	}
	svc := New(cat, nil)

	snap := svc.Search(context.Background(), filter.New())

	if len(snap.Dogs) != 3 {
		t.Fatalf("expected 3 dogs, got %d", len(snap.Dogs))
	}
	for i, want := range []string{"b", "a", "c"} {
		if snap.Dogs[i].ID != want {
			t.Errorf("dogs[%d]: expected %q, got %q", i, want, snap.Dogs[i].ID)
		}
	}
	if got := cat.dogsCalls[0]; len(got) != 3 || got[0] != "b" {
		t.Errorf("expected hydration with page ids, got %v", got)
	}
}

func TestSearch_StaleResultDiscarded(t *testing.T) {
	cat := &gatedCatalog{
		gates:   map[string]chan struct{}{"Akita": make(chan struct{})},
		started: map[string]chan struct{}{"Akita": make(chan struct{})},
		pages: map[string]page.Page{
			"Akita":  {DogIDs: []string{"akita-1"}, Total: 1},
			"Beagle": {DogIDs: []string{"beagle-1"}, Total: 1},
		},
		dogs: map[string]dog.Dog{
			"akita-1":  {ID: "akita-1", Breed: "Akita"},
			"beagle-1": {ID: "beagle-1", Breed: "Beagle"},
		},
	}
	svc := New(cat, nil)
	ctx := context.Background()

	done := make(chan Snapshot, 1)
	go func() {
		done <- svc.Search(ctx, filter.New().WithBreed("Akita"))
	}()
	<-cat.started["Akita"]

	latest := svc.Search(ctx, filter.New().WithBreed("Beagle"))
	if latest.Status != Success || latest.Dogs[0].ID != "beagle-1" {
		t.Fatalf("expected beagle result, got %+v", latest)
	}

	close(cat.gates["Akita"])
	stale := <-done

	snap := svc.Snapshot()
	if snap.Dogs[0].ID != "beagle-1" {
		t.Errorf("stale result overwrote state: got %q", snap.Dogs[0].ID)
	}
	if !snap.Filter.HasBreed("Beagle") {
		t.Errorf("expected filter for Beagle, got %v", snap.Filter.Breeds())
	}
	if stale.Version != snap.Version {
		t.Errorf("superseded caller should see current snapshot, got version %d want %d", stale.Version, snap.Version)
	}
}

func TestSearch_FailureKeepsLastResults(t *testing.T) {
	cat := &mockCatalog{
		page: page.Page{DogIDs: []string{"a"}, Total: 1},
		dogs: []dog.Dog{{ID: "a"}},
	}
	svc := New(cat, nil)
	ctx := context.Background()
	svc.Search(ctx, filter.New())

	cat.searchErr = []error{domain.NewAPIError("API Error: Internal Server Error", 500, "/dogs/search")}
	snap := svc.AddBreed(ctx, "Akita")

	if snap.Status != Failed {
		t.Fatalf("expected %q, got %q", Failed, snap.Status)
	}
	if !errors.Is(snap.Err, domain.ErrAPI) {
		t.Errorf("expected ErrAPI, got %v", snap.Err)
	}
	if len(snap.Dogs) != 1 || snap.Dogs[0].ID != "a" {
		t.Errorf("expected last-known-good dogs, got %v", snap.Dogs)
	}
	if snap.ErrorMessage() != "API Error: Internal Server Error" {
		t.Errorf("unexpected message %q", snap.ErrorMessage())
	}
	if snap.CanNext() || snap.CanPrev() {
		t.Error("pagination must be unavailable in error state")
	}
}

func TestSearch_HydrationFailure(t *testing.T) {
	cat := &mockCatalog{
		page:    page.Page{DogIDs: []string{"a"}, Total: 1},
		dogsErr: domain.NewAPIError("API Error: Bad Gateway", 502, "/dogs"),
	}
	svc := New(cat, nil)

	snap := svc.Search(context.Background(), filter.New())

	if snap.Status != Failed {
		t.Fatalf("expected %q, got %q", Failed, snap.Status)
	}
}

func TestSearch_RetriesTransportErrors(t *testing.T) {
	cat := &mockCatalog{
		searchErr: []error{transportErr()},
		page:      page.Page{DogIDs: []string{"a"}, Total: 1},
		dogs:      []dog.Dog{{ID: "a"}},
	}
	svc := New(cat, nil).WithRetries(1)

	snap := svc.Search(context.Background(), filter.New())

	if snap.Status != Success {
		t.Fatalf("expected %q, got %q (err=%v)", Success, snap.Status, snap.Err)
	}
	if len(cat.searchCalls) != 2 {
		t.Errorf("expected 2 search calls, got %d", len(cat.searchCalls))
	}
}

func TestSearch_NoRetryOnAPIError(t *testing.T) {
	cat := &mockCatalog{
		searchErr: []error{domain.NewAPIError("bad sort", 400, "/dogs/search")},
	}
	svc := New(cat, nil).WithRetries(3)

	snap := svc.Search(context.Background(), filter.New())

	if snap.Status != Failed {
		t.Fatalf("expected %q, got %q", Failed, snap.Status)
	}
	if len(cat.searchCalls) != 1 {
		t.Errorf("expected 1 search call, got %d", len(cat.searchCalls))
	}
}

func TestNextPage_UsesCursorAsFrom(t *testing.T) {
	cat := &mockCatalog{
		page: page.Page{DogIDs: []string{"a"}, Total: 40, NextCursor: "abc"},
		dogs: []dog.Dog{{ID: "a"}},
	}
	svc := New(cat, nil)
	ctx := context.Background()
	svc.Search(ctx, filter.New())

	if _, err := svc.NextPage(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cat.lastSearch(t).From(); got != "abc" {
		t.Errorf("expected from=abc, got %q", got)
	}
}

func TestNextPage_NoCursor(t *testing.T) {
	cat := &mockCatalog{page: page.Page{DogIDs: []string{"a"}, Total: 1}, dogs: []dog.Dog{{ID: "a"}}}
	svc := New(cat, nil)
	ctx := context.Background()
	svc.Search(ctx, filter.New())

	_, err := svc.NextPage(ctx)
	if !errors.Is(err, domain.ErrNoPage) {
		t.Errorf("expected ErrNoPage, got %v", err)
	}
	if _, err := svc.PrevPage(ctx); !errors.Is(err, domain.ErrNoPage) {
		t.Errorf("expected ErrNoPage, got %v", err)
	}
	if len(cat.searchCalls) != 1 {
		t.Errorf("expected no extra request, got %d calls", len(cat.searchCalls))
	}
}

func TestNextPage_PendingZipEditKept(t *testing.T) {
	cat := &mockCatalog{
		page: page.Page{DogIDs: []string{"a"}, Total: 40, NextCursor: "abc", PrevCursor: "xyz"},
		dogs: []dog.Dog{{ID: "a"}},
	}
	svc := New(cat, nil)
	ctx := context.Background()
	svc.Search(ctx, filter.New())

	svc.AddZip("78701")

	if _, err := svc.NextPage(ctx); !errors.Is(err, domain.ErrNoPage) {
		t.Errorf("expected ErrNoPage while a zip edit is pending, got %v", err)
	}
	if _, err := svc.PrevPage(ctx); !errors.Is(err, domain.ErrNoPage) {
		t.Errorf("expected ErrNoPage while a zip edit is pending, got %v", err)
	}
	if !svc.HasZip("78701") {
		t.Fatal("zip edit lost")
	}
	if len(cat.searchCalls) != 1 {
		t.Errorf("expected no extra request, got %d calls", len(cat.searchCalls))
	}

	svc.Refresh(ctx)
	req := cat.lastSearch(t)
	if got := req.ZipCodes(); len(got) != 1 || got[0] != "78701" {
		t.Errorf("expected zip in query, got %v", got)
	}
	if req.From() != "" {
		t.Errorf("expected first page, got from=%q", req.From())
	}
}

func TestSetQuery_KeepsZips(t *testing.T) {
	cat := &mockCatalog{}
	svc := New(cat, nil)
	ctx := context.Background()
	svc.AddZip("78701")

	k, _ := sort.New(sort.Name, sort.Desc)
	snap := svc.SetQuery(ctx, []string{"Akita"}, k)

	if snap.Status != Success {
		t.Fatalf("expected %q, got %q", Success, snap.Status)
	}
	want := "breeds=Akita&zipCodes=78701&sort=name%3Adesc&size=20"
	if got := cat.lastSearch(t).Encode(); got != want {
		t.Errorf("expected query %q, got %q", want, got)
	}
}

func TestSearch_ConcurrentIdenticalSearchesShareFetch(t *testing.T) {
	cat := &blockingCatalog{
		release: make(chan struct{}),
		page:    page.Page{DogIDs: []string{"a", "b"}, Total: 2},
	}
	svc := New(cat, nil)
	f := filter.New().WithBreed("Akita")

	const callers = 4
	var loading atomic.Int32
	svc.Subscribe(func(s Snapshot) {
		if s.Status == Loading {
			loading.Add(1)
		}
	})

	var wg sync.WaitGroup
	snaps := make([]Snapshot, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			snaps[i] = svc.Search(context.Background(), f)
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for loading.Load() < callers && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// let the last caller reach the shared flight
	time.Sleep(20 * time.Millisecond)
	close(cat.release)
	wg.Wait()

	if got := cat.calls.Load(); got != 1 {
		t.Errorf("expected 1 SearchDogs call, got %d", got)
	}
	final := svc.Snapshot()
	if final.Status != Success {
		t.Fatalf("expected %q, got %q", Success, final.Status)
	}
	for i, snap := range snaps {
		if snap.Version != final.Version || snap.Status != Success || len(snap.Dogs) != 2 {
			t.Errorf("caller %d: expected final snapshot v%d, got v%d %q", i, final.Version, snap.Version, snap.Status)
		}
	}
}

func TestAddBreed_DuplicateIsNoop(t *testing.T) {
	cat := &mockCatalog{}
	svc := New(cat, nil)
	ctx := context.Background()

	svc.AddBreed(ctx, "Akita")
	svc.AddBreed(ctx, "Akita")

	if len(cat.searchCalls) != 1 {
		t.Errorf("expected 1 search call, got %d", len(cat.searchCalls))
	}
	if got := svc.Filter().Breeds(); len(got) != 1 {
		t.Errorf("expected one breed, got %v", got)
	}
}

func TestFilterEdit_ResetsCursor(t *testing.T) {
	cat := &mockCatalog{
		page: page.Page{DogIDs: []string{"a"}, Total: 40, NextCursor: "abc"},
		dogs: []dog.Dog{{ID: "a"}},
	}
	svc := New(cat, nil)
	ctx := context.Background()
	svc.Search(ctx, filter.New())
	if _, err := svc.NextPage(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	k, _ := sort.New(sort.Age, sort.Desc)
	svc.SetSort(ctx, k)

	if got := cat.lastSearch(t).From(); got != "" {
		t.Errorf("expected cursor reset, got from=%q", got)
	}
	if got := cat.lastSearch(t).Sort(); got != "age:desc" {
		t.Errorf("expected sort age:desc, got %q", got)
	}
}

func TestZipEdits_DoNotSearch(t *testing.T) {
	cat := &mockCatalog{}
	svc := New(cat, nil)

	if !svc.AddZip("78701") {
		t.Fatal("expected zip to be added")
	}
	if svc.AddZip("78701") {
		t.Error("duplicate zip must not be added")
	}
	if !svc.HasZip("78701") {
		t.Error("expected HasZip")
	}
	if len(cat.searchCalls) != 0 {
		t.Errorf("expected no search, got %d", len(cat.searchCalls))
	}

	svc.Refresh(context.Background())
	if got := cat.lastSearch(t).ZipCodes(); len(got) != 1 || got[0] != "78701" {
		t.Errorf("expected zip in query, got %v", got)
	}
	if !svc.RemoveZip("78701") || svc.RemoveZip("78701") {
		t.Error("RemoveZip should report presence")
	}
}

func TestSubscribe_ReceivesTransitions(t *testing.T) {
	cat := &mockCatalog{page: page.Page{DogIDs: []string{"a"}, Total: 1}, dogs: []dog.Dog{{ID: "a"}}}
	svc := New(cat, nil)

	var got []Status
	unsubscribe := svc.Subscribe(func(s Snapshot) { got = append(got, s.Status) })
	svc.Search(context.Background(), filter.New())
	unsubscribe()
	svc.Refresh(context.Background())

	if len(got) != 2 || got[0] != Loading || got[1] != Success {
		t.Errorf("expected [loading success], got %v", got)
	}
}

func TestScenario_FilteredSearch(t *testing.T) {
	cat := &mockCatalog{
		page: page.Page{DogIDs: []string{"d1", "d2"}, Total: 2},
		dogs: []dog.Dog{{ID: "d2", Name: "Rex"}, {ID: "d1", Name: "Ada"}},
	}
	svc := New(cat, nil)
	ctx := context.Background()

	svc.AddBreed(ctx, "Labrador")
	svc.AddZip("78701")
	k, err := sort.Parse("age:asc")
	if err != nil {
		t.Fatalf("sort.Parse: %v", err)
	}
	snap := svc.SetSort(ctx, k)

	if snap.Status != Success {
		t.Fatalf("expected %q, got %q", Success, snap.Status)
	}
	want := "breeds=Labrador&zipCodes=78701&sort=age%3Aasc&size=20"
	if got := cat.lastSearch(t).Encode(); got != want {
		t.Errorf("expected query %q, got %q", want, got)
	}
	if snap.Dogs[0].Name != "Ada" || snap.Dogs[1].Name != "Rex" {
		t.Errorf("unexpected order: %v", snap.Dogs)
	}
}
