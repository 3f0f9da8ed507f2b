package session

import (
	"context"

	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
	"github.com/kailas-cloud/pawmatch/internal/domain/location"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/page"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/query"
)

// Catalog is the upstream API as seen by one session.
// Each instance carries its own credential.
type Catalog interface {
	Login(ctx context.Context, name, email string) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Breeds(ctx context.Context) ([]string, error)
	SearchDogs(ctx context.Context, req query.Request) (page.Page, error)
	Dogs(ctx context.Context, ids []string) ([]dog.Dog, error)
	Match(ctx context.Context, ids []string) (string, error)
	Locations(ctx context.Context, zips []string) ([]location.Location, error)
}

// CatalogFactory creates a catalog client with a fresh credential store.
type CatalogFactory func() (Catalog, error)

// BreedSource lists breed names.
type BreedSource interface {
	Breeds(ctx context.Context) ([]string, error)
}

// Geocoder resolves ZIP codes.
type Geocoder interface {
	Locations(ctx context.Context, zips []string) ([]location.Location, error)
}
