package model

import "time"

// LedgerEntryKind discriminates the payload shape of a LedgerEntry. New
// kinds are added as the pipeline grows new stages; storage never interprets
// Payload beyond this tag.
type LedgerEntryKind string

const (
	LedgerKindSessionOpened   LedgerEntryKind = "session_opened"
	LedgerKindSanitized       LedgerEntryKind = "sanitized"
	LedgerKindTemplateChosen  LedgerEntryKind = "template_chosen"
	LedgerKindCapabilityCheck LedgerEntryKind = "capability_check"
	LedgerKindPackAssembly    LedgerEntryKind = "pack_assembly"
	LedgerKindSynthesis       LedgerEntryKind = "synthesis"
	LedgerKindAdequacy        LedgerEntryKind = "adequacy"
	LedgerKindSessionClosed   LedgerEntryKind = "session_closed"
	LedgerKindOutcomeReported LedgerEntryKind = "outcome_reported"
)

// LedgerEntry is an append-only record of one step of a query's execution.
// Entries referencing other entries (RelatedEntries) let a replay walk the
// causal chain of a single session without relying on insertion order alone.
type LedgerEntry struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Kind           LedgerEntryKind `json:"kind"`
	Payload        map[string]any  `json:"payload"`
	Provenance     string          `json:"provenance"`
	Confidence     *float64        `json:"confidence,omitempty"`
	RelatedEntries []string        `json:"related_entries,omitempty"`
	SessionID      *string         `json:"session_id,omitempty"`
}

// ReplayUnavailableTraceID is the sentinel traceId used when no ledger was
// supplied for a query.
const ReplayUnavailableTraceID = "REPLAY_UNAVAILABLE_TRACE"

// LedgerSession groups the entries produced by one query execution.
type LedgerSession struct {
	ID        string    `json:"id"`
	OpenedAt  time.Time `json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Intent    string    `json:"intent"`
}
