package api

import (
	"context"
	"net/http"

	"fenrir/internal/auth"
	"fenrir/internal/domain"
)

type contextKey int

const brokerIDKey contextKey = 0

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok || !auth.IsAdmin(token, s.adminSecret) {
			writeError(w, domain.AuthErrorf("missing or invalid admin bearer token"))
			return
		}
		next(w, r)
	}
}

func (s *Server) brokerOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, domain.AuthErrorf("missing bearer token"))
			return
		}
		broker, ok := s.engine.BrokerByAPIKeyHash(auth.HashAPIKey(token))
		if !ok {
			writeError(w, domain.AuthErrorf("unknown API key"))
			return
		}
		ctx := context.WithValue(r.Context(), brokerIDKey, broker.BrokerID)
		next(w, r.WithContext(ctx))
	}
}

func brokerIDFromContext(r *http.Request) string {
	id, _ := r.Context().Value(brokerIDKey).(string)
	return id
}
