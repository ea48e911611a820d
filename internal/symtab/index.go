package symtab

// Index is a name-keyed view over a set of symbols. It is immutable after
// BuildIndex returns, so concurrent readers need no locking.
type Index struct {
	byName map[string][]Symbol
	total  int
}

// BuildIndex groups symbols by name. Duplicate entries (same name, file
// and line) collapse to one; distinct declarations sharing a name are all
// kept, which is what makes a later lookup ambiguous.
func BuildIndex(symbols []Symbol) *Index {
	idx := &Index{byName: make(map[string][]Symbol, len(symbols))}

	seen := make(map[Symbol]struct{}, len(symbols))
	for _, s := range symbols {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		idx.byName[s.Name] = append(idx.byName[s.Name], s)
		idx.total++
	}

	for name := range idx.byName {
		SortSymbols(idx.byName[name])
	}
	return idx
}

// Lookup returns every declaration of name, in canonical order. The
// returned slice is shared; callers must not modify it.
func (idx *Index) Lookup(name string) []Symbol {
	return idx.byName[name]
}

// Len returns the number of distinct symbols in the index.
func (idx *Index) Len() int {
	return idx.total
}
