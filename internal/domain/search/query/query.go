// Package query converts filter state into the catalog search request.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/filter"
)

// Query parameter names understood by GET /dogs/search.
const (
	ParamBreeds   = "breeds"
	ParamZipCodes = "zipCodes"
	ParamSort     = "sort"
	ParamSize     = "size"
	ParamFrom     = "from"
)

// Request is a canonical, serializable search request.
type Request struct {
	breeds   []string
	zipCodes []string
	sort     string
	size     int
	from     string
}

// Build converts a filter into a request. Pure: equal states give byte-identical Encode output.
// size <= 0 falls back to domain.DefaultPageSize.
func Build(s filter.State, size int) Request {
	if size <= 0 {
		size = domain.DefaultPageSize
	}
	return Request{
		breeds:   s.Breeds(),
		zipCodes: s.ZipCodes(),
		sort:     s.Sort().String(),
		size:     size,
		from:     s.Cursor(),
	}
}

// Breeds returns the breed parameters.
func (r Request) Breeds() []string { return r.breeds }

// ZipCodes returns the zip code parameters.
func (r Request) ZipCodes() []string { return r.zipCodes }

// Sort returns the serialized sort key.
func (r Request) Sort() string { return r.sort }

// Size returns the page size.
func (r Request) Size() int { return r.size }

// From returns the page cursor, empty for the first page.
func (r Request) From() string { return r.from }

// Encode renders the query string with a fixed parameter order:
// breeds, zipCodes, sort, size, from. Empty lists and an empty cursor are omitted.
// Values are form-escaped, so keys carry "sort=age%3Aasc" for sort "age:asc".
func (r Request) Encode() string {
	parts := make([]string, 0, 5)
	if len(r.breeds) > 0 {
		parts = append(parts, style(ParamBreeds, r.breeds))
	}
	if len(r.zipCodes) > 0 {
		parts = append(parts, style(ParamZipCodes, r.zipCodes))
	}
	if r.sort != "" {
		parts = append(parts, style(ParamSort, r.sort))
	}
	if r.size > 0 {
		parts = append(parts, ParamSize+"="+strconv.Itoa(r.size))
	}
	if r.from != "" {
		parts = append(parts, style(ParamFrom, r.from))
	}
	return strings.Join(parts, "&")
}

// Key identifies the logical query; used for caching and request tagging.
func (r Request) Key() string { return r.Encode() }

// Values returns the request as url.Values.
func (r Request) Values() url.Values {
	v := url.Values{}
	for _, b := range r.breeds {
		v.Add(ParamBreeds, b)
	}
	for _, z := range r.zipCodes {
		v.Add(ParamZipCodes, z)
	}
	if r.sort != "" {
		v.Set(ParamSort, r.sort)
	}
	if r.size > 0 {
		v.Set(ParamSize, strconv.Itoa(r.size))
	}
	if r.from != "" {
		v.Set(ParamFrom, r.from)
	}
	return v
}

// style renders a form/explode query fragment ("name=a&name=b").
func style(name string, value any) string {
	frag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		// strings and string slices always serialize; keep a readable fallback anyway
		return fmt.Sprintf("%s=%s", name, url.QueryEscape(fmt.Sprint(value)))
	}
	return frag
}
