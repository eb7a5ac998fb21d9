package indexer

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestWalk_SkipsDotDirsAndSkipList(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root, "a.go", "package a")
	mustWrite(t, root, "vendor/b.go", "package b")
	mustWrite(t, root, ".git/config", "x")
	mustWrite(t, root, "sub/c.go", "package c")

	paths, err := Walk(root, WalkOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Strings(paths)
	want := []string{"a.go", filepath.Join("sub", "c.go")}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Fatalf("expected %v, got %v", want, paths)
		}
	}
}

func TestWalk_ExcludesOversizedFiles(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 100)
	if err := os.WriteFile(filepath.Join(root, "big.txt"), big, 0o644); err != nil {
		t.Fatal(err)
	}
	paths, err := Walk(root, WalkOptions{MaxFileSizeBytes: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected oversized file excluded, got %v", paths)
	}
}

func TestWalk_IncludeExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root, "a.go", "x")
	mustWrite(t, root, "a_test.go", "x")

	paths, err := Walk(root, WalkOptions{IncludeGlobs: []string{"*.go"}, ExcludeGlobs: []string{"*_test.go"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 1 || paths[0] != "a.go" {
		t.Fatalf("expected only a.go, got %v", paths)
	}
}

func TestChecksum16_Length(t *testing.T) {
	got := Checksum16([]byte("hello world"))
	if len(got) != 16 {
		t.Fatalf("expected 16-char checksum, got %q (%d)", got, len(got))
	}
}

func TestChecksum16_Deterministic(t *testing.T) {
	a := Checksum16([]byte("same content"))
	b := Checksum16([]byte("same content"))
	if a != b {
		t.Fatalf("expected deterministic checksum, got %q vs %q", a, b)
	}
}

func TestChecksum16_DifferentContentDiffers(t *testing.T) {
	a := Checksum16([]byte("content a"))
	b := Checksum16([]byte("content b"))
	if a == b {
		t.Fatal("expected different content to produce different checksums")
	}
}

func mustWrite(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
