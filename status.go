package librarian

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/storage"
)

// handleHealthz reports whether the storage connection is reachable. A
// liveness probe should treat anything other than 200 as "restart me."
func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := a.db.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unreachable: " + err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleStatusz reports storage reachability, watcher state, and the last
// indexed cursor, per spec.md §4.8's staleness-disclosure contract
// extended to the process level.
func (a *App) handleStatusz(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Version:       a.version,
		WorkspaceRoot: a.workspaceRoot,
	}

	status.StorageOK = a.db.Ping(r.Context()) == nil
	status.WatcherRunning = a.watcher != nil
	if a.watcher != nil {
		status.WatcherError = a.watcher.LastError()
	}

	var state model.WatchState
	if err := a.db.GetState(r.Context(), model.StateKeyWatch, &state); err == nil {
		status.CursorKind = string(state.Cursor.Kind)
		status.LastIndexedAt = state.Cursor.LastIndexedAt
	} else if !errors.Is(err, storage.ErrNotFound) {
		a.logger.Warn("statusz: failed to load watch state", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
