package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kpoppel/go-eforsyning/pkg/log"
	"github.com/kpoppel/go-eforsyning/pkg/storage"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := s.poller.Latest(ctx)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		writeJSONError(w, "no data fetched yet", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest snapshot", slog.Any("error", err))
		writeJSONError(w, "failed to get latest snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap, http.StatusOK)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snaps, err := s.storage.ListSnapshots(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list snapshots", slog.Any("error", err))
		writeJSONError(w, "failed to list snapshots", http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []types.Snapshot{}
	}
	writeJSON(w, snaps, http.StatusOK)
}
