// Package parse extracts imports and exported symbol names from source
// files so the indexer can populate model.File.Imports/ExportedSymbols and
// derive knowledge-graph import edges. Go files are parsed with Tree-sitter
// for accurate results; every other language falls back to a regex
// heuristic, mirroring how the teacher's ingestion parser pairs an
// AST-based path with a regex-based one for languages without a bundled
// grammar.
package parse

import (
	"path/filepath"
	"strings"
)

// Result is the extraction output for a single file.
type Result struct {
	Language string
	Imports  []string
	Symbols  []string
}

// LanguageForPath infers a coarse language identifier from a file extension,
// used both for parser dispatch and for model.File.Language.
func LanguageForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".c", ".h":
		return "c"
	case ".cc", ".cpp", ".cxx", ".hpp":
		return "cpp"
	default:
		return "unknown"
	}
}

// File parses content according to the language inferred from path. Parse
// failures never propagate as errors: a file that fails to parse still
// gets indexed with empty Imports/Symbols rather than blocking the whole
// batch, per the indexer's "partial success over a brittle reindex" design.
func File(path string, content []byte) Result {
	lang := LanguageForPath(path)
	switch lang {
	case "go":
		imports, symbols, err := parseGo(content)
		if err != nil {
			return Result{Language: lang, Imports: fallbackImports(lang, content), Symbols: fallbackSymbols(lang, content)}
		}
		return Result{Language: lang, Imports: imports, Symbols: symbols}
	default:
		return Result{Language: lang, Imports: fallbackImports(lang, content), Symbols: fallbackSymbols(lang, content)}
	}
}
