// Package dog holds the read-only dog record served by the catalog API.
package dog

// Dog is a catalog entry. Identity is ID.
type Dog struct {
	ID       string `json:"id"`
	ImageURL string `json:"img"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	ZipCode  string `json:"zip_code"`
	Breed    string `json:"breed"`
}

// OrderByIDs returns dogs arranged in the order of ids.
// IDs without a matching record are skipped; records not requested are dropped.
func OrderByIDs(ids []string, dogs []Dog) []Dog {
	byID := make(map[string]Dog, len(dogs))
	for _, d := range dogs {
		byID[d.ID] = d
	}
	out := make([]Dog, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out
}
