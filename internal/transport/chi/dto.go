package chi

import (
	"errors"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
	"github.com/kailas-cloud/pawmatch/internal/domain/location"
	"github.com/kailas-cloud/pawmatch/internal/usecase/favorites"
	matchuc "github.com/kailas-cloud/pawmatch/internal/usecase/match"
	searchuc "github.com/kailas-cloud/pawmatch/internal/usecase/search"
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeInvalidZip         = "invalid_zip"
	codeUnknownZip         = "unknown_zip"
	codeNoFavorites        = "no_favorites_selected"
	codeNoMatch            = "no_match_found"
	codeMatchMissing       = "match_record_missing"
	codeMatchInProgress    = "match_in_progress"
	codeNoPage             = "no_page"
	codeUnauthorized       = "unauthorized"
	codeSessionExpired     = "session_expired"
	codeUpstreamDown       = "upstream_unavailable"
	codeUpstreamError      = "upstream_error"
	codeInternalError      = "internal_error"
	codeInvalidCredentials = "invalid_credentials"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionResponse struct {
	Name          string `json:"name"`
	Authenticated bool   `json:"authenticated"`
}

type logoutResponse struct {
	LoggedOut bool   `json:"loggedOut"`
	Warning   string `json:"warning,omitempty"`
}

type breedsResponse struct {
	Breeds []string `json:"breeds"`
}

type breedRequest struct {
	Breed string `json:"breed"`
}

type sortRequest struct {
	Sort string `json:"sort"`
}

type zipRequest struct {
	Zip string `json:"zip"`
}

type dogResponse struct {
	dog.Dog
	Favorite bool `json:"favorite"`
}

type searchResponse struct {
	Status    searchuc.Status `json:"status"`
	Version   uint64          `json:"version"`
	Breeds    []string        `json:"breeds"`
	ZipCodes  []string        `json:"zipCodes"`
	Sort      string          `json:"sort"`
	Cursor    string          `json:"cursor,omitempty"`
	Total     int             `json:"total"`
	Dogs      []dogResponse   `json:"dogs"`
	HasNext   bool            `json:"hasNext"`
	HasPrev   bool            `json:"hasPrev"`
	NoResults bool            `json:"noResults"`
	Error     *errorResponse  `json:"error,omitempty"`
}

type zipResponse struct {
	ZipCode string `json:"zipCode"`
	Label   string `json:"label"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
}

type addZipResponse struct {
	Location zipResponse    `json:"location"`
	Added    bool           `json:"added"`
	Search   searchResponse `json:"search"`
}

type zipsResponse struct {
	Zips []zipResponse `json:"zips"`
}

type favoritesResponse struct {
	IDs      []string `json:"ids"`
	Count    int      `json:"count"`
	CanMatch bool     `json:"canMatch"`
}

type toggleResponse struct {
	favoritesResponse
	ID       string `json:"id"`
	Favorite bool   `json:"favorite"`
}

type matchResponse struct {
	Status matchuc.Status `json:"status"`
	Dog    *dog.Dog       `json:"dog,omitempty"`
	Error  *errorResponse `json:"error,omitempty"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

func searchToResponse(snap searchuc.Snapshot, favs *favorites.Service) searchResponse {
	dogs := make([]dogResponse, len(snap.Dogs))
	for i, d := range snap.Dogs {
		dogs[i] = dogResponse{Dog: d, Favorite: favs.Contains(d.ID)}
	}
	resp := searchResponse{
		Status:    snap.Status,
		Version:   snap.Version,
		Breeds:    snap.Filter.Breeds(),
		ZipCodes:  snap.Filter.ZipCodes(),
		Sort:      snap.Filter.Sort().String(),
		Cursor:    snap.Filter.Cursor(),
		Total:     snap.Page.Total,
		Dogs:      dogs,
		HasNext:   snap.CanNext(),
		HasPrev:   snap.CanPrev(),
		NoResults: snap.NoResults(),
	}
	if resp.Breeds == nil {
		resp.Breeds = []string{}
	}
	if resp.ZipCodes == nil {
		resp.ZipCodes = []string{}
	}
	if snap.Status == searchuc.Failed {
		resp.Error = &errorResponse{Code: errorCode(snap.Err), Message: snap.ErrorMessage()}
	}
	return resp
}

func locationToResponse(loc location.Location) zipResponse {
	return zipResponse{
		ZipCode: loc.ZipCode,
		Label:   loc.Label(),
		City:    loc.City,
		State:   loc.State,
	}
}

func favoritesToResponse(favs *favorites.Service) favoritesResponse {
	ids := favs.IDs()
	if ids == nil {
		ids = []string{}
	}
	return favoritesResponse{IDs: ids, Count: len(ids), CanMatch: len(ids) > 0}
}

func matchToResponse(snap matchuc.Snapshot) matchResponse {
	resp := matchResponse{Status: snap.Status}
	switch snap.Status {
	case matchuc.Matched:
		d := snap.Dog
		resp.Dog = &d
	case matchuc.Failed:
		resp.Error = &errorResponse{Code: errorCode(snap.Err), Message: snap.ErrorMessage()}
	}
	return resp
}

// errorCode maps an error embedded in a snapshot onto its API code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoFavoritesSelected):
		return codeNoFavorites
	case errors.Is(err, domain.ErrNoMatchFound):
		return codeNoMatch
	case errors.Is(err, domain.ErrMatchRecordMissing):
		return codeMatchMissing
	case errors.Is(err, domain.ErrAuthExpired):
		return codeSessionExpired
	case errors.Is(err, domain.ErrTransport):
		return codeUpstreamDown
	case errors.Is(err, domain.ErrAPI):
		return codeUpstreamError
	default:
		return codeInternalError
	}
}
