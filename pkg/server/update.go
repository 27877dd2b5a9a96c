package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kpoppel/go-eforsyning/pkg/log"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

type updateResponse struct {
	Outcome  string          `json:"outcome"`
	Snapshot *types.Snapshot `json:"snapshot,omitempty"`
}

// updateAuthMiddleware requires a bearer ID token carrying the update email.
// It guards /api/update and /api/snapshots, which exposes every account key.
// Without a configured verifier both are open.
func (s *Server) updateAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Ctx(ctx).WarnContext(ctx, "missing auth header for update")
			writeJSONError(w, "missing auth header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).ErrorContext(ctx, "invalid auth header", slog.String("header", authHeader))
			writeJSONError(w, "invalid auth header", http.StatusBadRequest)
			return
		}
		email, err := s.verifier(ctx, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "update token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(email), []byte(s.updateSpecificEmail)) != 1 {
			log.Ctx(ctx).WarnContext(ctx, "update email mismatch", slog.String("got", email), slog.String("want", s.updateSpecificEmail))
			writeJSONError(w, "unauthorized email", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, outcome, err := s.poller.Poll(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "update failed", slog.Any("error", err))
		writeJSONError(w, "failed to save update", http.StatusInternalServerError)
		return
	}

	resp := updateResponse{Outcome: outcome.String()}
	if !snap.IsZero() {
		resp.Snapshot = &snap
	}

	code := http.StatusOK
	switch outcome {
	case types.OutcomeAuthFailed, types.OutcomeFailed:
		code = http.StatusBadGateway
	}
	log.Ctx(ctx).InfoContext(ctx, "update finished", slog.String("outcome", outcome.String()))
	writeJSON(w, resp, code)
}
