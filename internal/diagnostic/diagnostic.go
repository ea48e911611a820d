// Package diagnostic defines the type-checker diagnostic model and the
// log parser that produces it. Diagnostics are immutable value types;
// every downstream stage (resolution, classification, reporting) treats
// them as read-only facts about a single checker run.
package diagnostic

import (
	"fmt"
	"sort"
	"strings"
)

// Category buckets a diagnostic by the kind of breakage it reports.
// The set is closed: unknown diagnostics fall back to CategoryTypeMismatch
// rather than growing the taxonomy.
type Category string

const (
	// CategoryImport covers module resolution failures and missing exports.
	CategoryImport Category = "import-module"
	// CategoryTypeMismatch covers assignability and argument-type failures.
	CategoryTypeMismatch Category = "type-mismatch"
	// CategoryMissingTypeInfo covers implicit-any and unknown-property errors.
	CategoryMissingTypeInfo Category = "missing-type-info"
	// CategoryTypeDefinition covers references to names that do not exist.
	CategoryTypeDefinition Category = "type-definition"
	// CategoryEscapeHatch covers invalid casts and other checked escapes.
	CategoryEscapeHatch Category = "escape-hatch"
	// CategoryThirdParty covers errors rooted in dependency type definitions.
	CategoryThirdParty Category = "third-party"
)

// Categories returns the full closed set, in report order.
func Categories() []Category {
	return []Category{
		CategoryImport,
		CategoryTypeMismatch,
		CategoryMissingTypeInfo,
		CategoryTypeDefinition,
		CategoryEscapeHatch,
		CategoryThirdParty,
	}
}

// ValidCategory reports whether s names a known category.
func ValidCategory(s string) bool {
	for _, c := range Categories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Diagnostic is a single finding from one type-checker run.
type Diagnostic struct {
	// ID is derived from the location and code, stable across runs.
	ID string `json:"id"`

	// File is the path as reported by the checker, slash-separated and
	// relative to the project root.
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`

	// Code is the checker's error code, e.g. "TS2322".
	Code string `json:"code"`

	// Message is the full diagnostic text with continuation lines folded in.
	Message string `json:"message"`

	Category Category `json:"category"`
}

// DeriveID builds the stable identifier for a diagnostic location.
// Two log lines with the same file, position and code are the same finding.
func DeriveID(file string, line, column int, code string) string {
	return fmt.Sprintf("%s:%d:%d:%s", file, line, column, code)
}

// Less orders diagnostics by file, then line, column and code. This is the
// canonical order used wherever determinism matters.
func Less(a, b Diagnostic) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	if a.Column != b.Column {
		return a.Column < b.Column
	}
	return a.Code < b.Code
}

// Sort sorts diagnostics in place into canonical order.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		return Less(diags[i], diags[j])
	})
}

// Location renders the human-readable file:line:column position.
func (d Diagnostic) Location() string {
	return fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
}

// ThirdPartyPath reports whether a file path points into installed
// dependency code rather than the project's own sources.
func ThirdPartyPath(file string) bool {
	norm := strings.ReplaceAll(file, "\\", "/")
	return strings.Contains(norm, "node_modules/")
}
