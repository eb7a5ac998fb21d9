package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Walk enumerates every file under root matching opts' include/exclude
// globs and under MaxFileSizeBytes, skipping skipDirs and hidden
// directories. Paths are returned relative to root.
func Walk(root string, opts WalkOptions) ([]string, error) {
	maxSize := opts.MaxFileSizeBytes
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSizeBytes
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return fs.SkipDir
			}
			return nil
		}
		base := d.Name()
		if d.IsDir() {
			if path != root && (skipDirs[base] || (strings.HasPrefix(base, ".") && base != ".")) {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !matchesInclude(rel, opts.IncludeGlobs) || matchesExclude(rel, opts.ExcludeGlobs) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxSize {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchesInclude(rel string, globs []string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(g, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

func matchesExclude(rel string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(g, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// Checksum16 returns the first 16 hex characters of the content's SHA-256
// digest, per §3's "16-hex truncated" checksum convention. Truncation
// trades a vanishingly small collision-resistance margin for a much more
// compact stored/compared value; a reindex skip decision tolerates the
// risk, unlike e.g. a content-addressed store.
func Checksum16(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}
