package model

import "time"

// CursorKind selects which reconciliation strategy the watcher used to
// produce a WatchCursor — git-diff based when git is available, mtime-based
// fallback otherwise.
type CursorKind string

const (
	CursorGit   CursorKind = "git"
	CursorMtime CursorKind = "mtime"
)

// WatchCursor is the watcher's bookmark for incremental reconciliation.
type WatchCursor struct {
	Kind                 CursorKind `json:"kind"`
	LastIndexedCommitSHA string     `json:"last_indexed_commit_sha,omitempty"`
	LastIndexedAt        *time.Time `json:"last_indexed_at,omitempty"`
}

// WatchState is persisted under the key named by StateKeyWatch. It is the
// sole record of indexing progress across process restarts.
type WatchState struct {
	SchemaVersion  int         `json:"schema_version"`
	WorkspaceRoot  string      `json:"workspace_root"`
	Cursor         WatchCursor `json:"cursor"`
	NeedsCatchup   bool        `json:"needs_catchup"`
	LastError      string      `json:"last_error,omitempty"`
}

// CurrentWatchStateSchemaVersion is written onto every new WatchState.
const CurrentWatchStateSchemaVersion = 1

// StateKeyWatch is the well-known state_blobs key for WatchState, matching
// the external interface contract in §6.
const StateKeyWatch = "librarian.watch_state.v1"

// WatchEventStormError is the sentinel watch_state.last_error value set when
// a batch window exceeds stormThreshold events.
const WatchEventStormError = "watch_event_storm"
