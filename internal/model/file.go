package model

import "time"

// FileCategory classifies a file for staleness SLA selection and scoring.
type FileCategory string

const (
	FileCategoryProject    FileCategory = "project"
	FileCategoryDependency FileCategory = "dependency"
	FileCategoryTest       FileCategory = "test"
	FileCategoryVendor     FileCategory = "vendor"
	FileCategoryGenerated  FileCategory = "generated"
)

// FileRole is a coarse architectural role, used by the retrieval engine's
// keyword/metadata overlap scoring.
type FileRole string

const (
	FileRoleEntrypoint FileRole = "entrypoint"
	FileRoleLibrary    FileRole = "library"
	FileRoleConfig     FileRole = "config"
	FileRoleTest       FileRole = "test"
	FileRoleUnknown    FileRole = "unknown"
)

// File is keyed by its workspace-relative path as the indexer produces it;
// paths are not converted to absolute form. Checksum is a 16-hex-character truncated
// content hash; it uniquely identifies the current content for the purposes
// of reindex skip decisions (see Testable Properties: checksum idempotence).
type File struct {
	Path             string       `json:"path"`
	Checksum         string       `json:"checksum"`
	SizeBytes        int64        `json:"size_bytes"`
	LastModified     time.Time    `json:"last_modified"`
	LastIndexed      time.Time    `json:"last_indexed"`
	Category         FileCategory `json:"category"`
	Role             FileRole     `json:"role"`
	Language         string       `json:"language"`
	Imports          []string     `json:"imports"`
	ExportedSymbols  []string     `json:"exported_symbols"`
	ModuleID         string       `json:"module_id,omitempty"`
	ContentHashInt64 int64        `json:"content_hash_int64"`
}

// Fresh reports whether the file's indexed snapshot reflects its current
// on-disk modification time, per §3's invariant: last-indexed >= last-modified.
func (f File) Fresh() bool {
	return !f.LastIndexed.Before(f.LastModified)
}

// Function is a stable-ID-keyed callable unit extracted from a File.
type Function struct {
	ID                string    `json:"id"`
	FilePath          string    `json:"file_path"`
	Name              string    `json:"name"`
	Signature         string    `json:"signature"`
	Purpose           string    `json:"purpose"`
	Confidence        float64   `json:"confidence"`
	AccessCount       int64     `json:"access_count"`
	OutcomeSuccesses  int64     `json:"outcome_successes"`
	OutcomeFailures   int64     `json:"outcome_failures"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Module is a stable-ID-keyed logical grouping of files (a package, a
// directory-level unit), carrying the same purpose/confidence/outcome
// bookkeeping as Function.
type Module struct {
	ID               string    `json:"id"`
	Path             string    `json:"path"`
	Name             string    `json:"name"`
	Purpose          string    `json:"purpose"`
	Confidence       float64   `json:"confidence"`
	AccessCount      int64     `json:"access_count"`
	OutcomeSuccesses int64     `json:"outcome_successes"`
	OutcomeFailures  int64     `json:"outcome_failures"`
	FilePaths        []string  `json:"file_paths"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
