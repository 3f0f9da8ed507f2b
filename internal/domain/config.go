package domain

// KeyPrefix namespaces every key written to the shared cache.
const KeyPrefix = "pawmatch:"

// DefaultPageSize is the number of dogs requested per search page.
const DefaultPageSize = 20
