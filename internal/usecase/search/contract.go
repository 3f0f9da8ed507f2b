package search

import (
	"context"

	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/page"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/query"
)

// Catalog fetches id pages and hydrates them into records.
type Catalog interface {
	SearchDogs(ctx context.Context, req query.Request) (page.Page, error)
	Dogs(ctx context.Context, ids []string) ([]dog.Dog, error)
}
