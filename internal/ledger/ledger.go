// Package ledger provides the buffered, session-scoped append path for
// query-execution trace entries. Entries are buffered in memory and flushed
// to storage in batches (by size or by timer), mirroring the teacher's
// buffered-COPY ingestion pipeline; unlike the teacher's cross-process event
// stream this ledger is scoped to a single query session, opened and closed
// around one executeQuery call.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/storage"
)

// Store is the narrow storage surface the ledger writes through.
type Store interface {
	OpenLedgerSession(ctx context.Context, s model.LedgerSession) error
	CloseLedgerSession(ctx context.Context, id string, closedAt any) error
	AppendLedgerEntry(ctx context.Context, e model.LedgerEntry) error
	GetLedgerEntriesForSession(ctx context.Context, sessionID string) ([]model.LedgerEntry, error)
}

var _ Store = (*storage.DB)(nil)

// DefaultFlushSize is the number of buffered entries that triggers an
// immediate flush rather than waiting for the flush timer.
const DefaultFlushSize = 20

// DefaultFlushInterval bounds how long an entry can sit buffered before
// being written durably.
const DefaultFlushInterval = 200 * time.Millisecond

// Session wraps one query execution's ledger session: Append buffers
// entries, flushing by size or by timer; Close flushes any remainder and
// stamps the session closed. A Session is single-writer: the pipeline's one
// response builder goroutine is its only caller, so no internal locking
// beyond what's needed to let the flush timer run concurrently.
type Session struct {
	store  Store
	logger *slog.Logger

	id       string
	flushAt  int
	interval time.Duration

	mu      sync.Mutex
	pending []model.LedgerEntry
	closed  bool

	stopTimer chan struct{}
}

// Open starts a new ledger session with the given intent, persists the
// session row, and starts the background flush timer.
func Open(ctx context.Context, store Store, intent string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := model.LedgerSession{ID: uuid.NewString(), OpenedAt: time.Now().UTC(), Intent: intent}
	if err := store.OpenLedgerSession(ctx, s); err != nil {
		return nil, fmt.Errorf("ledger: open session: %w", err)
	}
	sess := &Session{
		store:     store,
		logger:    logger,
		id:        s.ID,
		flushAt:   DefaultFlushSize,
		interval:  DefaultFlushInterval,
		stopTimer: make(chan struct{}),
	}
	go sess.flushLoop()
	return sess, nil
}

// ID returns the session's ID, which doubles as the response's traceId.
func (s *Session) ID() string { return s.id }

// Append buffers one entry under this session, stamping its SessionID and
// timestamp, and flushes immediately if the buffer has reached flushAt.
func (s *Session) Append(ctx context.Context, kind model.LedgerEntryKind, provenance string, payload map[string]any, confidence *float64, related ...string) {
	sessionID := s.id
	entry := model.LedgerEntry{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		Kind:           kind,
		Payload:        payload,
		Provenance:     provenance,
		Confidence:     confidence,
		RelatedEntries: related,
		SessionID:      &sessionID,
	}

	s.mu.Lock()
	s.pending = append(s.pending, entry)
	shouldFlush := len(s.pending) >= s.flushAt
	s.mu.Unlock()

	if shouldFlush {
		s.flush(ctx)
	}
}

func (s *Session) flushLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopTimer:
			return
		case <-ticker.C:
			s.flush(context.Background())
		}
	}
}

func (s *Session) flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range batch {
		if err := s.store.AppendLedgerEntry(ctx, e); err != nil {
			s.logger.Warn("ledger: append entry failed", "kind", e.Kind, "error", err)
		}
	}
}

// Close flushes any remaining buffered entries, stops the flush timer, and
// stamps the session's closed_at. Safe to call once; subsequent calls are
// no-ops.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopTimer)
	s.flush(ctx)
	if err := s.store.CloseLedgerSession(ctx, s.id, time.Now().UTC()); err != nil {
		return fmt.Errorf("ledger: close session: %w", err)
	}
	return nil
}

// Replay returns every entry recorded under sessionID, in append order,
// letting a caller reconstruct the causal chain of one query.
func Replay(ctx context.Context, store Store, sessionID string) ([]model.LedgerEntry, error) {
	entries, err := store.GetLedgerEntriesForSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ledger: replay: %w", err)
	}
	return entries, nil
}
