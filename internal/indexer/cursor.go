package indexer

import (
	"context"
	"time"

	"github.com/nateschmiedehaus/librarian/internal/gitutil"
	"github.com/nateschmiedehaus/librarian/internal/model"
)

// Reconcile computes the minimal set of paths needing reindex on startup,
// using state's cursor. If the cursor is git-based and git is available,
// this uses getGitDiffNames(oldSha, HEAD) plus getGitStatusChanges() to
// avoid walking the whole tree; any git failure (not a repo, binary
// missing, no prior SHA) falls back to a full walk plus mtime comparison
// against state, per spec.md §4.1's "any failure is non-fatal" contract.
// Returns the changed relative paths and the WatchState to persist
// afterward (with an updated cursor).
func Reconcile(ctx context.Context, root string, state model.WatchState, opts WalkOptions) ([]string, model.WatchState, error) {
	if state.Cursor.Kind == model.CursorGit && state.Cursor.LastIndexedCommitSHA != "" {
		if paths, newState, ok := reconcileGit(ctx, root, state); ok {
			return paths, newState, nil
		}
	}
	return reconcileMtime(root, state, opts)
}

func reconcileGit(ctx context.Context, root string, state model.WatchState) ([]string, model.WatchState, bool) {
	head, err := gitutil.GetCurrentGitSha(ctx, root)
	if err != nil {
		return nil, state, false
	}
	if head == state.Cursor.LastIndexedCommitSHA {
		working, err := gitutil.GetGitStatusChanges(ctx, root)
		if err != nil {
			return nil, state, false
		}
		paths := append(append([]string{}, working.Added...), working.Modified...)
		state.Cursor.LastIndexedCommitSHA = head
		state.NeedsCatchup = false
		return dedupe(paths), state, true
	}

	diff, err := gitutil.GetGitDiffNames(ctx, root, state.Cursor.LastIndexedCommitSHA, head)
	if err != nil {
		return nil, state, false
	}
	working, err := gitutil.GetGitStatusChanges(ctx, root)
	if err != nil {
		return nil, state, false
	}

	paths := append(append([]string{}, diff.Added...), diff.Modified...)
	paths = append(paths, working.Added...)
	paths = append(paths, working.Modified...)

	state.Cursor.LastIndexedCommitSHA = head
	state.NeedsCatchup = false
	return dedupe(paths), state, true
}

// reconcileMtime walks the whole tree and returns every walked path as the
// candidate set; it compares neither mtimes nor checksums. The caller does
// the checksum compare per file, since this function has no storage access.
// It also switches the cursor to mtime-mode.
func reconcileMtime(root string, state model.WatchState, opts WalkOptions) ([]string, model.WatchState, error) {
	paths, err := Walk(root, opts)
	if err != nil {
		return nil, state, err
	}
	now := time.Now().UTC()
	state.Cursor = model.WatchCursor{Kind: model.CursorMtime, LastIndexedAt: &now}
	state.NeedsCatchup = false
	return paths, state, nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
