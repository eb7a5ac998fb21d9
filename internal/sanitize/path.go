// Package sanitize applies the input-sanitization boundary described in
// spec.md §4.9: path traversal checks, string/query normalization, and
// declared-schema object validation. The query pipeline applies it to the
// intent and affectedFiles; the MCP tool surface does not call it directly
// and relies on the pipeline's checks. No single teacher file owns this concern, so it is newly
// structured here, but it keeps the teacher's ValidationError-at-the-boundary
// idiom (internal/model.ValidationError, not retryable, refused before any
// side effect).
package sanitize

import (
	"path/filepath"
	"strings"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// PathOptions controls path sanitization.
type PathOptions struct {
	BaseDir            string
	AllowAbsolute      bool
	AllowedExtensions  []string // empty means any extension is allowed
}

// dangerousPathSubstrings are rejected outright regardless of position,
// mirroring spec.md's explicit traversal/injection blocklist.
var dangerousPathSubstrings = []string{"..", "$(", "`", "\x00"}

// Path validates and cleans a caller-supplied relative (or, if permitted,
// absolute) path, rejecting traversal attempts, shell metacharacters, null
// bytes, and paths that escape BaseDir once resolved.
func Path(raw string, opts PathOptions) (string, error) {
	if raw == "" {
		return "", &model.ValidationError{Field: "path", Reason: "empty path"}
	}
	for _, bad := range dangerousPathSubstrings {
		if strings.Contains(raw, bad) {
			return "", &model.ValidationError{Field: "path", Reason: "contains disallowed sequence: " + bad}
		}
	}

	if filepath.IsAbs(raw) && !opts.AllowAbsolute {
		return "", &model.ValidationError{Field: "path", Reason: "absolute paths not permitted"}
	}

	cleaned := filepath.Clean(raw)
	if strings.HasPrefix(cleaned, "..") {
		return "", &model.ValidationError{Field: "path", Reason: "escapes base directory"}
	}

	if opts.BaseDir != "" {
		var abs string
		if filepath.IsAbs(cleaned) {
			abs = cleaned
		} else {
			abs = filepath.Join(opts.BaseDir, cleaned)
		}
		baseAbs, err := filepath.Abs(opts.BaseDir)
		if err != nil {
			return "", &model.ValidationError{Field: "path", Reason: "cannot resolve base directory"}
		}
		absResolved, err := filepath.Abs(abs)
		if err != nil {
			return "", &model.ValidationError{Field: "path", Reason: "cannot resolve path"}
		}
		rel, err := filepath.Rel(baseAbs, absResolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", &model.ValidationError{Field: "path", Reason: "escapes base directory"}
		}
	}

	if len(opts.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(cleaned))
		ok := false
		for _, allowed := range opts.AllowedExtensions {
			if strings.ToLower(allowed) == ext {
				ok = true
				break
			}
		}
		if !ok {
			return "", &model.ValidationError{Field: "path", Reason: "extension not permitted: " + ext}
		}
	}

	return cleaned, nil
}

// Paths sanitizes a batch, failing on the first invalid entry. Used for
// QueryRequest.AffectedFiles.
func Paths(raw []string, opts PathOptions) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		cleaned, err := Path(p, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, cleaned)
	}
	return out, nil
}
