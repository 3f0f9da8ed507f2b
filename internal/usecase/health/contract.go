package health

import "context"

// APIChecker checks that the catalog API is reachable.
type APIChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks shared cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
