package match

import (
	"context"

	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
)

// Catalog picks a match among favorites and hydrates it.
type Catalog interface {
	Match(ctx context.Context, ids []string) (string, error)
	Dogs(ctx context.Context, ids []string) ([]dog.Dog, error)
}
