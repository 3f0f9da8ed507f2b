package geocache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pawmatch/internal/db"
	"github.com/kailas-cloud/pawmatch/internal/domain/location"
)

type mockGeocoder struct {
	known map[string]location.Location
	err   error
	calls [][]string
}

func (m *mockGeocoder) Locations(_ context.Context, zips []string) ([]location.Location, error) {
	m.calls = append(m.calls, zips)
	if m.err != nil {
		return nil, m.err
	}
	var out []location.Location
	for _, z := range zips {
		if l, ok := m.known[z]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// mockKVStore is an in-memory store recording TTLs.
type mockKVStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestGeocoder(t *testing.T, inner *mockGeocoder) (*CachedGeocoder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
	return New(inner, ms, time.Hour, nil, zap.NewNop()), ms
}
