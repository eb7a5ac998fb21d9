package librarian

import "time"

// Status is served as JSON by /statusz: the minimal "is this usable right
// now" surface for an operator or a supervising agent, per spec.md §4.8's
// staleness-disclosure contract extended to the process level.
type Status struct {
	Version        string     `json:"version"`
	WorkspaceRoot  string     `json:"workspace_root"`
	StorageOK      bool       `json:"storage_ok"`
	WatcherRunning bool       `json:"watcher_running"`
	WatcherError   string     `json:"watcher_error,omitempty"`
	CursorKind     string     `json:"cursor_kind,omitempty"`
	LastIndexedAt  *time.Time `json:"last_indexed_at,omitempty"`
}
