// Package sort defines the catalog sort key serialized as "field:direction".
package sort

import (
	"fmt"
	"strings"
)

// Field is the attribute results are ordered by.
type Field string

// Sortable fields.
const (
	Breed Field = "breed"
	Age   Field = "age"
	Name  Field = "name"
)

// Direction is the ordering direction.
type Direction string

// Directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Key is a (field, direction) pair.
type Key struct {
	field     Field
	direction Direction
}

// Default is the initial sort of a new search session.
var Default = Key{field: Breed, direction: Asc}

// New validates and creates a sort key.
func New(f Field, d Direction) (Key, error) {
	if !f.IsValid() {
		return Key{}, fmt.Errorf("invalid sort field %q", f)
	}
	if !d.IsValid() {
		return Key{}, fmt.Errorf("invalid sort direction %q", d)
	}
	return Key{field: f, direction: d}, nil
}

// Parse reads a "field:direction" string.
func Parse(s string) (Key, error) {
	f, d, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("sort must be field:direction, got %q", s)
	}
	return New(Field(f), Direction(d))
}

// Field returns the sort field.
func (k Key) Field() Field { return k.field }

// Direction returns the sort direction.
func (k Key) Direction() Direction { return k.direction }

// IsZero reports whether k is the zero value.
func (k Key) IsZero() bool { return k.field == "" && k.direction == "" }

func (k Key) String() string {
	return string(k.field) + ":" + string(k.direction)
}

// IsValid checks if the field is supported.
func (f Field) IsValid() bool {
	return f == Breed || f == Age || f == Name
}

// IsValid checks if the direction is supported.
func (d Direction) IsValid() bool {
	return d == Asc || d == Desc
}

// Options lists every valid key in display order.
func Options() []Key {
	fields := []Field{Breed, Age, Name}
	out := make([]Key, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, Key{field: f, direction: Asc}, Key{field: f, direction: Desc})
	}
	return out
}
