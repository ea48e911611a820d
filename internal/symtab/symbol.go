// Package symtab builds the project symbol table: every exported
// TypeScript declaration with its declaring location. The table is the
// lookup side of cascade resolution, so it favors precision: only
// declarations the checker could point a diagnostic at are recorded.
package symtab

import "sort"

// Kind says what a name can be used as.
type Kind string

const (
	// KindType names a pure type (interface, type alias).
	KindType Kind = "type"
	// KindValue names a runtime value (function, const, let).
	KindValue Kind = "value"
	// KindBoth names declarations that are both, like classes and enums.
	KindBoth Kind = "both"
)

// Symbol is one exported declaration.
type Symbol struct {
	Name string `json:"name"`
	// File is the declaring file, slash-separated and relative to the
	// scanned root.
	File string `json:"file"`
	// Line is the declaration's starting line, 1-indexed.
	Line int    `json:"line"`
	Kind Kind   `json:"kind"`
}

// SortSymbols orders symbols by name, then declaring file and line.
// Lookup results keep this order so ambiguous matches resolve the same
// way on every run.
func SortSymbols(symbols []Symbol) {
	sort.SliceStable(symbols, func(i, j int) bool {
		a, b := symbols[i], symbols[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}
