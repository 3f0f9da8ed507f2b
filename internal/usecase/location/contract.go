package location

import (
	"context"

	"github.com/kailas-cloud/pawmatch/internal/domain/location"
)

// Geocoder resolves ZIP codes into locations.
type Geocoder interface {
	Locations(ctx context.Context, zips []string) ([]location.Location, error)
}

// Filters is the zip part of the search filter.
type Filters interface {
	HasZip(zip string) bool
	AddZip(zip string) bool
	RemoveZip(zip string) bool
}
