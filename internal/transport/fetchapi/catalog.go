package fetchapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
	"github.com/kailas-cloud/pawmatch/internal/domain/location"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/page"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/query"
)

type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type matchResponse struct {
	Match string `json:"match"`
}

// Login authenticates and stores the session cookie in the client's jar.
func (c *Client) Login(ctx context.Context, name, email string) error {
	return c.doJSON(ctx, http.MethodPost, EndpointLogin, loginRequest{Name: name, Email: email}, nil)
}

// Logout ends the upstream session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, EndpointLogout, nil, nil)
}

// Ping issues an authenticated GET on the API root.
// A non-2xx answer means the session is not (or no longer) authenticated.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/", nil, nil)
}

// HealthCheck reports whether the catalog API answers at all.
// Any HTTP response counts as reachable; only transport failures are returned.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.Ping(ctx); errors.Is(err, domain.ErrTransport) {
		return err
	}
	return nil
}

// Breeds lists every breed name known to the catalog.
func (c *Client) Breeds(ctx context.Context) ([]string, error) {
	var breeds []string
	if err := c.doJSON(ctx, http.MethodGet, EndpointBreeds, nil, &breeds); err != nil {
		return nil, err
	}
	return breeds, nil
}

// SearchDogs fetches one page of dog ids for the request.
func (c *Client) SearchDogs(ctx context.Context, req query.Request) (page.Page, error) {
	endpoint := EndpointSearch
	if q := req.Encode(); q != "" {
		endpoint += "?" + q
	}
	var p page.Page
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &p); err != nil {
		return page.Page{}, err
	}
	return p, nil
}

// Dogs hydrates ids into full records. An empty id list makes no request.
func (c *Client) Dogs(ctx context.Context, ids []string) ([]dog.Dog, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var dogs []dog.Dog
	if err := c.doJSON(ctx, http.MethodPost, EndpointDogs, ids, &dogs); err != nil {
		return nil, err
	}
	return dogs, nil
}

// Match asks the catalog to pick one dog from favoriteIDs.
// An empty result means the catalog found no match.
func (c *Client) Match(ctx context.Context, favoriteIDs []string) (string, error) {
	if len(favoriteIDs) == 0 {
		return "", fmt.Errorf("match: %w", domain.ErrNoFavoritesSelected)
	}
	var resp matchResponse
	if err := c.doJSON(ctx, http.MethodPost, EndpointMatch, favoriteIDs, &resp); err != nil {
		return "", err
	}
	return resp.Match, nil
}

// Locations resolves zip codes. An empty list makes no request.
func (c *Client) Locations(ctx context.Context, zips []string) ([]location.Location, error) {
	if len(zips) == 0 {
		return nil, nil
	}
	var locs []location.Location
	if err := c.doJSON(ctx, http.MethodPost, EndpointLocations, zips, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}
