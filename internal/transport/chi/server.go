// Package chi exposes the search session core as a JSON API for the browser.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/query"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/sort"
	"github.com/kailas-cloud/pawmatch/internal/logger"
	healthuc "github.com/kailas-cloud/pawmatch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/pawmatch/internal/usecase/search"
	sessionuc "github.com/kailas-cloud/pawmatch/internal/usecase/session"
	"github.com/kailas-cloud/pawmatch/internal/version"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the session API.
type Server struct {
	sessions      *sessionuc.Manager
	health        *healthuc.Service
	cookie        CookieConfig
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(
	sessions *sessionuc.Manager,
	health *healthuc.Service,
	cookie CookieConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions: sessions,
		health:   health,
		cookie:   cookie,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidCredentials, http.StatusBadRequest, codeInvalidCredentials),
		sentinelHandler(domain.ErrInvalidFormat, http.StatusBadRequest, codeInvalidZip),
		sentinelHandler(domain.ErrUnknownZip, http.StatusNotFound, codeUnknownZip),
		sentinelHandler(domain.ErrNoFavoritesSelected, http.StatusBadRequest, codeNoFavorites),
		sentinelHandler(domain.ErrNoMatchFound, http.StatusNotFound, codeNoMatch),
		sentinelHandler(domain.ErrMatchRecordMissing, http.StatusBadGateway, codeMatchMissing),
		sentinelHandler(domain.ErrMatchInProgress, http.StatusConflict, codeMatchInProgress),
		sentinelHandler(domain.ErrNoPage, http.StatusConflict, codeNoPage),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrAuthExpired, http.StatusUnauthorized, codeSessionExpired),
		sentinelHandler(domain.ErrTransport, http.StatusBadGateway, codeUpstreamDown),
		sentinelHandler(domain.ErrAPI, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/session", s.Login)

	r.Group(func(r chirouter.Router) {
		r.Use(SessionMiddleware(s.sessions, s.cookie.Name))

		r.Get("/session", s.CheckSession)
		r.Delete("/session", s.Logout)
		r.Get("/breeds", s.ListBreeds)

		r.Get("/search", s.GetSearch)
		r.Get("/search/query", s.QuerySearch)
		r.Post("/search/breeds", s.AddBreed)
		r.Delete("/search/breeds/{breed}", s.RemoveBreed)
		r.Put("/search/sort", s.SetSort)
		r.Post("/search/next", s.NextPage)
		r.Post("/search/prev", s.PrevPage)
		r.Post("/search/refresh", s.RefreshSearch)

		r.Get("/zips", s.ListZips)
		r.Post("/zips", s.AddZip)
		r.Delete("/zips/{zip}", s.RemoveZip)

		r.Get("/favorites", s.ListFavorites)
		r.Post("/favorites/{id}", s.ToggleFavorite)

		r.Post("/match", s.GenerateMatch)
		r.Get("/match", s.GetMatch)
		r.Delete("/match", s.DismissMatch)
	})
}

// Login handles POST /session.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sess, err := s.sessions.Login(r.Context(), sessionuc.Credentials{Name: req.Name, Email: req.Email})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.cookie.issue(w, sess.ID())
	writeJSON(w, http.StatusCreated, sessionResponse{Name: sess.UserName(), Authenticated: true})
}

// CheckSession handles GET /session.
func (s *Server) CheckSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := sess.CheckSession(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Name: sess.UserName(), Authenticated: true})
}

// Logout handles DELETE /session. The cookie is cleared even when the upstream call fails.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	err := s.sessions.Logout(r.Context(), sess.ID())
	s.cookie.clear(w)

	resp := logoutResponse{LoggedOut: true}
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		resp.Warning = domain.UserMessage(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListBreeds handles GET /breeds.
func (s *Server) ListBreeds(w http.ResponseWriter, r *http.Request) {
	breeds, err := sessionFrom(r.Context()).Breeds(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if breeds == nil {
		breeds = []string{}
	}
	writeJSON(w, http.StatusOK, breedsResponse{Breeds: breeds})
}

// GetSearch handles GET /search. It returns the current snapshot without a request.
func (s *Server) GetSearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, searchToResponse(sess.Search().Snapshot(), sess.Favorites()))
}

// QuerySearch handles GET /search/query?breeds=&zipCodes=&sort=.
// Breeds and sort replace the current ones; zip codes are resolved and added.
func (s *Server) QuerySearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	params := r.URL.Query()

	var breeds, zips []string
	if err := runtime.BindQueryParameter("form", true, false, query.ParamBreeds, params, &breeds); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid breeds parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, query.ParamZipCodes, params, &zips); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid zipCodes parameter")
		return
	}

	key := sort.Default
	if raw := params.Get(query.ParamSort); raw != "" {
		parsed, err := sort.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		key = parsed
	}

	for _, z := range zips {
		if _, _, err := sess.Zips().AddZip(r.Context(), z); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
	}

	s.writeSearch(w, r, sess, sess.Search().SetQuery(r.Context(), breeds, key))
}

// AddBreed handles POST /search/breeds.
func (s *Server) AddBreed(w http.ResponseWriter, r *http.Request) {
	var req breedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Breed == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Breed is required")
		return
	}
	sess := sessionFrom(r.Context())
	s.writeSearch(w, r, sess, sess.Search().AddBreed(r.Context(), req.Breed))
}

// RemoveBreed handles DELETE /search/breeds/{breed}.
func (s *Server) RemoveBreed(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	breed := chirouter.URLParam(r, "breed")
	s.writeSearch(w, r, sess, sess.Search().RemoveBreed(r.Context(), breed))
}

// SetSort handles PUT /search/sort.
func (s *Server) SetSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	key, err := sort.Parse(req.Sort)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	sess := sessionFrom(r.Context())
	s.writeSearch(w, r, sess, sess.Search().SetSort(r.Context(), key))
}

// NextPage handles POST /search/next.
func (s *Server) NextPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	snap, err := sess.Search().NextPage(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeSearch(w, r, sess, snap)
}

// PrevPage handles POST /search/prev.
func (s *Server) PrevPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	snap, err := sess.Search().PrevPage(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeSearch(w, r, sess, snap)
}

// RefreshSearch handles POST /search/refresh.
func (s *Server) RefreshSearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.writeSearch(w, r, sess, sess.Search().Refresh(r.Context()))
}

// ListZips handles GET /zips.
func (s *Server) ListZips(w http.ResponseWriter, r *http.Request) {
	locs := sessionFrom(r.Context()).ZipLocations()
	out := make([]zipResponse, len(locs))
	for i, l := range locs {
		out[i] = locationToResponse(l)
	}
	writeJSON(w, http.StatusOK, zipsResponse{Zips: out})
}

// AddZip handles POST /zips.
func (s *Server) AddZip(w http.ResponseWriter, r *http.Request) {
	var req zipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	sess := sessionFrom(r.Context())

	loc, added, snap, err := sess.AddZip(r.Context(), req.Zip)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if s.expired(w, r, sess, snap) {
		return
	}

	writeJSON(w, http.StatusOK, addZipResponse{
		Location: locationToResponse(loc),
		Added:    added,
		Search:   searchToResponse(snap, sess.Favorites()),
	})
}

// RemoveZip handles DELETE /zips/{zip}.
func (s *Server) RemoveZip(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	zip := chirouter.URLParam(r, "zip")
	s.writeSearch(w, r, sess, sess.RemoveZip(r.Context(), zip))
}

// ListFavorites handles GET /favorites.
func (s *Server) ListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, favoritesToResponse(sessionFrom(r.Context()).Favorites()))
}

// ToggleFavorite handles POST /favorites/{id}.
func (s *Server) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	favs := sessionFrom(r.Context()).Favorites()
	id := chirouter.URLParam(r, "id")
	favs.Toggle(id)
	writeJSON(w, http.StatusOK, toggleResponse{
		favoritesResponse: favoritesToResponse(favs),
		ID:                id,
		Favorite:          favs.Contains(id),
	})
}

// GenerateMatch handles POST /match.
func (s *Server) GenerateMatch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if _, err := sess.GenerateMatch(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchToResponse(sess.Match().Snapshot()))
}

// GetMatch handles GET /match.
func (s *Server) GetMatch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, matchToResponse(sessionFrom(r.Context()).Match().Snapshot()))
}

// DismissMatch handles DELETE /match.
func (s *Server) DismissMatch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Match().Dismiss()
	writeJSON(w, http.StatusOK, matchToResponse(sess.Match().Snapshot()))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		s.logger.Warn("Health check failed", zap.String("status", string(report.Status)), zap.Any("checks", checks))
	}
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.String(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// writeSearch renders a snapshot. A failed search keeps status 200 and carries the
// error inside the body, except for an expired upstream session.
func (s *Server) writeSearch(w http.ResponseWriter, r *http.Request, sess *sessionuc.Session, snap searchuc.Snapshot) {
	if s.expired(w, r, sess, snap) {
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(snap, sess.Favorites()))
}

// expired ends the session and answers 401 when the snapshot failed on an expired credential.
func (s *Server) expired(w http.ResponseWriter, r *http.Request, sess *sessionuc.Session, snap searchuc.Snapshot) bool {
	if snap.Status != searchuc.Failed || !domain.IsAuthExpired(snap.Err) {
		return false
	}
	s.handleDomainError(w, r, snap.Err)
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// handleDomainError writes the mapped error. An expired upstream credential also
// ends the local session and clears the cookie so the browser returns to login.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))

	if domain.IsAuthExpired(err) {
		if sess := sessionFrom(r.Context()); sess != nil {
			s.sessions.Drop(sess.ID())
			s.cookie.clear(w)
		}
	}

	msg := domain.UserMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
