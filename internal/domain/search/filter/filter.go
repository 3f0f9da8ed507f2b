// Package filter holds the immutable search criteria of a session.
package filter

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/pawmatch/internal/domain/location"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/sort"
)

// State is the search filter. Breeds and zip codes keep insertion order and never
// contain duplicates; every zip code is exactly five digits.
// Methods return modified copies; a State is never mutated in place.
type State struct {
	breeds   []string
	zipCodes []string
	sortKey  sort.Key
	cursor   string
}

// New creates a State on the first page with the default sort.
func New() State {
	return State{sortKey: sort.Default}
}

// Breeds returns a copy of the breed filter in insertion order.
func (s State) Breeds() []string { return slices.Clone(s.breeds) }

// ZipCodes returns a copy of the zip code filter in insertion order.
func (s State) ZipCodes() []string { return slices.Clone(s.zipCodes) }

// Sort returns the sort key.
func (s State) Sort() sort.Key {
	if s.sortKey.IsZero() {
		return sort.Default
	}
	return s.sortKey
}

// Cursor returns the opaque page cursor, empty for the first page.
func (s State) Cursor() string { return s.cursor }

// HasBreed reports whether breed is part of the filter.
func (s State) HasBreed(breed string) bool { return slices.Contains(s.breeds, breed) }

// HasZip reports whether zip is part of the filter.
func (s State) HasZip(zip string) bool { return slices.Contains(s.zipCodes, zip) }

// WithBreed appends breed and resets the cursor. Empty and duplicate breeds are ignored.
func (s State) WithBreed(breed string) State {
	breed = strings.TrimSpace(breed)
	if breed == "" || s.HasBreed(breed) {
		return s
	}
	s.breeds = append(slices.Clone(s.breeds), breed)
	s.cursor = ""
	return s
}

// WithoutBreed removes breed and resets the cursor. Absent breeds are ignored.
func (s State) WithoutBreed(breed string) State {
	if !s.HasBreed(breed) {
		return s
	}
	s.breeds = slices.DeleteFunc(slices.Clone(s.breeds), func(b string) bool { return b == breed })
	s.cursor = ""
	return s
}

// WithBreeds replaces the breed filter, dropping empty entries and duplicates.
func (s State) WithBreeds(breeds []string) State {
	s.breeds = nil
	s.cursor = ""
	for _, b := range breeds {
		s = s.WithBreed(b)
	}
	return s
}

// WithZip appends zip and resets the cursor. Invalid or duplicate zips are ignored;
// callers validate through location.ValidateZip first.
func (s State) WithZip(zip string) State {
	if location.ValidateZip(zip) != nil || s.HasZip(zip) {
		return s
	}
	s.zipCodes = append(slices.Clone(s.zipCodes), zip)
	s.cursor = ""
	return s
}

// WithoutZip removes zip and resets the cursor. Absent zips are ignored.
func (s State) WithoutZip(zip string) State {
	if !s.HasZip(zip) {
		return s
	}
	s.zipCodes = slices.DeleteFunc(slices.Clone(s.zipCodes), func(z string) bool { return z == zip })
	s.cursor = ""
	return s
}

// WithSort changes the sort key and resets the cursor.
func (s State) WithSort(k sort.Key) State {
	if k == s.Sort() {
		return s
	}
	s.sortKey = k
	s.cursor = ""
	return s
}

// WithCursor moves to the page identified by cursor. The cursor is never interpreted.
func (s State) WithCursor(cursor string) State {
	s.cursor = cursor
	return s
}

// Equal reports whether both states describe the same query.
func (s State) Equal(o State) bool {
	return slices.Equal(s.breeds, o.breeds) &&
		slices.Equal(s.zipCodes, o.zipCodes) &&
		s.Sort() == o.Sort() &&
		s.cursor == o.cursor
}
