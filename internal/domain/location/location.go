// Package location describes ZIP code metadata returned by the geocoding endpoint.
package location

import (
	"fmt"

	"github.com/kailas-cloud/pawmatch/internal/domain"
)

// ZipLength is the number of digits in a US ZIP code.
const ZipLength = 5

// Location is geocoding metadata keyed by ZipCode.
type Location struct {
	ZipCode   string  `json:"zip_code"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	County    string  `json:"county"`
}

// Label formats the location for display, e.g. "Austin, TX".
func (l Location) Label() string {
	if l.City == "" {
		return l.ZipCode
	}
	return fmt.Sprintf("%s, %s", l.City, l.State)
}

// ValidateZip checks that zip is exactly five ASCII digits.
func ValidateZip(zip string) error {
	if len(zip) != ZipLength {
		return fmt.Errorf("%w: %q must be %d digits", domain.ErrInvalidFormat, zip, ZipLength)
	}
	for i := 0; i < len(zip); i++ {
		if zip[i] < '0' || zip[i] > '9' {
			return fmt.Errorf("%w: %q must be %d digits", domain.ErrInvalidFormat, zip, ZipLength)
		}
	}
	return nil
}
