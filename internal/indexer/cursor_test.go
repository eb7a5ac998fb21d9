package indexer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/nateschmiedehaus/librarian/internal/gitutil"
	"github.com/nateschmiedehaus/librarian/internal/model"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git unavailable: %v: %s", err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "t@example.com")
	run("config", "user.name", "t")
	return dir
}

func commitFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	mustWrite(t, dir, rel, content)
	cmd := exec.Command("git", "add", "-A")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("add: %v: %s", err, out)
	}
	cmd = exec.Command("git", "commit", "-q", "-m", "msg")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
		"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("commit: %v: %s", err, out)
	}
	sha, err := gitutil.GetCurrentGitSha(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	return sha
}

func TestReconcile_GitCursorFindsOnlyChangedFile(t *testing.T) {
	dir := initGitRepo(t)
	oldSha := commitFile(t, dir, "src/x.go", "package x\n")
	newSha := commitFile(t, dir, "src/y.go", "package y\n")
	_ = newSha

	state := model.WatchState{Cursor: model.WatchCursor{Kind: model.CursorGit, LastIndexedCommitSHA: oldSha}}
	paths, newState, err := Reconcile(context.Background(), dir, state, WalkOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, p := range paths {
		if p == filepath.Join("src", "y.go") || p == "src/y.go" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected src/y.go in changed paths, got %v", paths)
	}
	if newState.Cursor.LastIndexedCommitSHA == oldSha {
		t.Fatal("expected cursor SHA to advance")
	}
}

func TestReconcile_FallsBackToMtimeWhenNotAGitRepo(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "a.go", "package a")

	state := model.WatchState{Cursor: model.WatchCursor{Kind: model.CursorGit, LastIndexedCommitSHA: "deadbeef"}}
	paths, newState, err := Reconcile(context.Background(), dir, state, WalkOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newState.Cursor.Kind != model.CursorMtime {
		t.Fatalf("expected fallback to mtime cursor, got %s", newState.Cursor.Kind)
	}
	if len(paths) != 1 || paths[0] != "a.go" {
		t.Fatalf("expected full walk to find a.go, got %v", paths)
	}
}
