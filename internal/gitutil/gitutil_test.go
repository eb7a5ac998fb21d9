package gitutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git not available or failed (%v): %s", err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	return dir
}

func writeAndCommit(t *testing.T, dir, path, content, message string) string {
	t.Helper()
	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command("git", "add", "-A")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %v: %s", err, out)
	}
	cmd = exec.Command("git", "commit", "-q", "-m", message)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v: %s", err, out)
	}
	sha, err := GetCurrentGitSha(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	return sha
}

func TestGetCurrentGitSha(t *testing.T) {
	dir := initRepo(t)
	sha := writeAndCommit(t, dir, "a.txt", "hello", "initial")
	if len(sha) != 40 {
		t.Fatalf("expected a 40-char SHA, got %q", sha)
	}
}

func TestGetGitDiffNames(t *testing.T) {
	dir := initRepo(t)
	old := writeAndCommit(t, dir, "a.txt", "hello", "initial")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("new file"), 0o644); err != nil {
		t.Fatal(err)
	}
	newSha := writeAndCommit(t, dir, "b.txt", "new file", "add b")

	cs, err := GetGitDiffNames(context.Background(), dir, old, newSha)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cs.Modified) != 1 || cs.Modified[0] != "a.txt" {
		t.Fatalf("expected a.txt modified, got %+v", cs)
	}
	if len(cs.Added) != 1 || cs.Added[0] != "b.txt" {
		t.Fatalf("expected b.txt added, got %+v", cs)
	}
}

func TestGetGitStatusChanges_UntrackedFile(t *testing.T) {
	dir := initRepo(t)
	writeAndCommit(t, dir, "a.txt", "hello", "initial")
	if err := os.WriteFile(filepath.Join(dir, "c.txt"), []byte("untracked"), 0o644); err != nil {
		t.Fatal(err)
	}

	cs, err := GetGitStatusChanges(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, f := range cs.Added {
		if f == "c.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected c.txt reported as added (untracked), got %+v", cs)
	}
}

func TestGetCommitHistory(t *testing.T) {
	dir := initRepo(t)
	writeAndCommit(t, dir, "a.txt", "v1", "first")
	writeAndCommit(t, dir, "a.txt", "v2", "second")

	commits, err := GetCommitHistory(context.Background(), dir, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}
	if len(commits[0].Files) != 1 || commits[0].Files[0] != "a.txt" {
		t.Fatalf("expected first commit to touch a.txt, got %+v", commits[0])
	}
}

func TestGetCurrentGitSha_NonGitDirFails(t *testing.T) {
	dir := t.TempDir()
	if _, err := GetCurrentGitSha(context.Background(), dir); err == nil {
		t.Fatal("expected error for non-git directory")
	}
}
