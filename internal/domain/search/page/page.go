// Package page holds one page of search results as returned by the catalog.
package page

// Page is the id listing produced by one search query. Immutable once fetched.
type Page struct {
	DogIDs     []string `json:"resultIds"`
	Total      int      `json:"total"`
	NextCursor string   `json:"next,omitempty"`
	PrevCursor string   `json:"prev,omitempty"`
}

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.NextCursor != "" }

// HasPrev reports whether a preceding page exists.
func (p Page) HasPrev() bool { return p.PrevCursor != "" }

// IsEmpty reports whether the page lists no dogs.
func (p Page) IsEmpty() bool { return len(p.DogIDs) == 0 }
