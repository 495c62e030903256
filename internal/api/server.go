// Package api wires the HTTP surface: gorilla/mux routing, bearer auth
// middleware, and JSON encode/decode around internal/engine's operations.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"fenrir/internal/domain"
	"fenrir/internal/engine"
	"fenrir/internal/store"
)

// Server holds everything the HTTP handlers need.
type Server struct {
	engine      *engine.Engine
	store       *store.Store
	adminSecret string
	router      *mux.Router
	onReset     func() error
}

// New builds a Server with all routes registered. onReset is invoked by
// /debug/reset after in-memory and durable state are wiped, to let the
// caller restart anything it owns (e.g. the persistence flush loop).
func New(eng *engine.Engine, st *store.Store, adminSecret string, onReset func() error) *Server {
	s := &Server{engine: eng, store: st, adminSecret: adminSecret, onReset: onReset}
	s.router = mux.NewRouter()
	s.routes()
	return s
}

// Router returns the configured http.Handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/register", s.adminOnly(s.handleRegister)).Methods(http.MethodPost)
	s.router.HandleFunc("/debug/reset", s.adminOnly(s.handleReset)).Methods(http.MethodPost)

	s.router.HandleFunc("/balance", s.brokerOnly(s.handleBalance)).Methods(http.MethodGet)
	s.router.HandleFunc("/orders", s.brokerOnly(s.handleSubmit)).Methods(http.MethodPost)
	s.router.HandleFunc("/orders/{id}", s.brokerOnly(s.handleGetOrder)).Methods(http.MethodGet)
	s.router.HandleFunc("/orders/{id}/cancel", s.brokerOnly(s.handleCancel)).Methods(http.MethodPost)
	s.router.HandleFunc("/stocks/{sym}/book", s.brokerOnly(s.handleBook)).Methods(http.MethodGet)
	s.router.HandleFunc("/stocks/{sym}/price", s.brokerOnly(s.handlePrice)).Methods(http.MethodGet)
}

func writeError(w http.ResponseWriter, err *domain.Error) {
	status := http.StatusInternalServerError
	switch err.Kind {
	case domain.KindValidation:
		status = http.StatusUnprocessableEntity
	case domain.KindAuth:
		status = http.StatusUnauthorized
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvariant:
		log.Error().Str("msg", err.Msg).Msg("invariant violation surfaced to HTTP layer")
	}
	writeJSON(w, status, errorResponse{Error: err.Msg})
}
