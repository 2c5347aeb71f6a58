// Package httpapi implements the REST surface described for operators and
// game clients: map listing, join, player/state queries, movement actions,
// manual ticking and the retirement leaderboard. Routing follows
// wricardo-tesla-road-trip-game/api/server.go's gorilla/mux layout.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/loot-dogs/gameserver/internal/apperr"
	"github.com/loot-dogs/gameserver/internal/persist"
	"github.com/loot-dogs/gameserver/internal/tickdriver"
	"github.com/loot-dogs/gameserver/internal/world"
	"go.uber.org/zap"
)

// Leaderboard is the subset of *persist.LeaderboardRepo the API needs, kept
// as an interface so handlers can be tested without a database.
type Leaderboard interface {
	GetPlayers(ctx context.Context, start, maxItems int) ([]persist.RetiredPlayer, error)
}

// Server wires the World, tick driver and leaderboard into an http.Handler.
type Server struct {
	world       *world.World
	driver      *tickdriver.Driver
	leaderboard Leaderboard
	log         *zap.Logger
	router      *mux.Router
}

// New builds a Server and registers every route.
func New(w *world.World, driver *tickdriver.Driver, leaderboard Leaderboard, log *zap.Logger) *Server {
	s := &Server{
		world:       w,
		driver:      driver,
		leaderboard: leaderboard,
		log:         log,
		router:      mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/maps", s.handleListMaps).Methods(http.MethodGet)
	api.HandleFunc("/maps/{id}", s.handleGetMap).Methods(http.MethodGet)
	api.HandleFunc("/game/join", s.handleJoin).Methods(http.MethodPost)
	api.Handle("/game/players", s.authenticated(s.handleListPlayers)).Methods(http.MethodGet)
	api.Handle("/game/state", s.authenticated(s.handleState)).Methods(http.MethodGet)
	api.Handle("/game/player/action", s.authenticated(s.handlePlayerAction)).Methods(http.MethodPost)
	api.HandleFunc("/game/tick", s.handleTick).Methods(http.MethodPost)
	api.HandleFunc("/game/records", s.handleRecords).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
}

// writeJSON writes a response with the given status and a no-cache header,
// matching the wire contract every game-state endpoint shares.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorBody is the wire shape for every non-2xx response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	status, code, message := classify(err)
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func classify(err error) (status int, code, message string) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, string(apperr.Internal), "internal error"
	}
	switch ae.Kind {
	case apperr.InvalidRequest:
		return http.StatusBadRequest, string(ae.Kind), ae.Message
	case apperr.NotFound:
		return http.StatusNotFound, string(ae.Kind), ae.Message
	case apperr.Unauthorized:
		return http.StatusUnauthorized, string(ae.Kind), ae.Message
	case apperr.MethodNotAllowed:
		return http.StatusMethodNotAllowed, string(ae.Kind), ae.Message
	case apperr.CorruptSnapshot, apperr.Transient:
		return http.StatusServiceUnavailable, string(ae.Kind), ae.Message
	default:
		return http.StatusInternalServerError, string(apperr.Internal), "internal error"
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, apperr.New(apperr.NotFound, "resource not found"))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	var allowed []string
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		methods, err := route.GetMethods()
		if err == nil && len(methods) > 0 {
			probe := r.Clone(r.Context())
			probe.Method = methods[0]
			if route.Match(probe, &mux.RouteMatch{}) {
				allowed = append(allowed, methods...)
			}
		}
		return nil
	})
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, apperr.New(apperr.MethodNotAllowed, "method not allowed"))
}
