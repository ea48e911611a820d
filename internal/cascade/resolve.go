package cascade

import (
	"context"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/symtab"
)

// Confidence grades how certain a reference edge is.
type Confidence uint8

const (
	// ConfidenceWeak marks edges from indirectly named symbols or from
	// names with several candidate declarations.
	ConfidenceWeak Confidence = iota
	// ConfidenceStrong marks edges whose message names a symbol directly
	// and the name has exactly one declaration.
	ConfidenceStrong
)

func (c Confidence) String() string {
	if c == ConfidenceStrong {
		return "strong"
	}
	return "weak"
}

// ReferenceEdge links a diagnostic to a symbol its message implicates.
type ReferenceEdge struct {
	DiagnosticID string        `json:"diagnostic_id"`
	Symbol       symtab.Symbol `json:"symbol"`
	Confidence   Confidence    `json:"confidence"`
}

// extractor pulls candidate symbol names out of a diagnostic message.
// inferred marks extractors whose captures name a symbol indirectly
// (property or variable names), which caps their confidence at weak.
type extractor struct {
	pattern  *regexp.Regexp
	inferred bool
}

// categoryExtractors lists each category's patterns in order of how
// directly the phrasing names a symbol. The lists are short on purpose:
// a pattern that guesses creates false causality, and an unmatched
// message just leaves a diagnostic as its own root.
var categoryExtractors = map[diagnostic.Category][]extractor{
	diagnostic.CategoryImport: {
		{pattern: regexp.MustCompile(`has no exported member '([^']+)'`)},
	},
	diagnostic.CategoryTypeMismatch: {
		{pattern: regexp.MustCompile(`Type '([^']+)' is not assignable to type '([^']+)'`)},
		{pattern: regexp.MustCompile(`Argument of type '([^']+)' is not assignable to parameter of type '([^']+)'`)},
		{pattern: regexp.MustCompile(`is missing in type '([^']+)' but required in type '([^']+)'`)},
		{pattern: regexp.MustCompile(`Type '([^']+)' is missing the following properties from type '([^']+)'`)},
		{pattern: regexp.MustCompile(`Property '([^']+)' is missing in type`), inferred: true},
	},
	diagnostic.CategoryMissingTypeInfo: {
		{pattern: regexp.MustCompile(`does not exist on type '([^']+)'`)},
		{pattern: regexp.MustCompile(`Property '([^']+)' does not exist`), inferred: true},
		{pattern: regexp.MustCompile(`'([^']+)' implicitly has an`), inferred: true},
	},
	diagnostic.CategoryTypeDefinition: {
		{pattern: regexp.MustCompile(`Cannot find name '([^']+)'`)},
		{pattern: regexp.MustCompile(`'([^']+)' refers to a value, but is being used as a type`)},
		{pattern: regexp.MustCompile(`'([^']+)' only refers to a type, but is being used as a value`)},
	},
	diagnostic.CategoryEscapeHatch: {
		{pattern: regexp.MustCompile(`Conversion of type '([^']+)' to type '([^']+)'`)},
	},
	// third-party diagnostics point into dependency code; their causes
	// live outside the scanned tree, so they resolve to nothing and
	// stand as their own roots.
	diagnostic.CategoryThirdParty: nil,
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// builtinTypes are names the checker prints constantly that never refer
// to project declarations worth linking.
var builtinTypes = map[string]struct{}{
	"string": {}, "number": {}, "boolean": {}, "any": {}, "unknown": {},
	"never": {}, "void": {}, "null": {}, "undefined": {}, "object": {},
	"symbol": {}, "bigint": {}, "this": {}, "true": {}, "false": {},
	"Array": {}, "ReadonlyArray": {}, "Promise": {}, "Record": {},
	"Partial": {}, "Required": {}, "Readonly": {}, "Pick": {}, "Omit": {},
	"Map": {}, "Set": {}, "Date": {}, "RegExp": {}, "Error": {},
	"Function": {}, "Object": {}, "String": {}, "Number": {}, "Boolean": {},
}

// typeNameCandidates reduces a captured type expression to the symbol
// name it plainly references. Structural literals, unions, and quoted
// literal types yield nothing. Array suffixes are stripped and generic
// instantiations keep only the outer name.
func typeNameCandidates(raw string) []string {
	s := strings.TrimSpace(raw)
	for strings.HasSuffix(s, "[]") {
		s = strings.TrimSuffix(s, "[]")
	}
	if i := strings.IndexByte(s, '<'); i > 0 && strings.HasSuffix(s, ">") {
		s = s[:i]
	}
	if _, builtin := builtinTypes[s]; builtin {
		return nil
	}
	if !identifierPattern.MatchString(s) {
		return nil
	}
	return []string{s}
}

// Resolve extracts the symbols implicated by one diagnostic's message.
// It is pure: the same diagnostic against the same index always yields
// the same edges in the same order.
func Resolve(d diagnostic.Diagnostic, index *symtab.Index) []ReferenceEdge {
	var (
		order []symtab.Symbol
		best  = make(map[symtab.Symbol]Confidence)
	)

	for _, ex := range categoryExtractors[d.Category] {
		for _, match := range ex.pattern.FindAllStringSubmatch(d.Message, -1) {
			for _, raw := range match[1:] {
				for _, name := range typeNameCandidates(raw) {
					candidates := index.Lookup(name)
					if len(candidates) == 0 {
						continue
					}
					conf := ConfidenceStrong
					if ex.inferred || len(candidates) > 1 {
						conf = ConfidenceWeak
					}
					for _, sym := range candidates {
						if prev, ok := best[sym]; !ok {
							best[sym] = conf
							order = append(order, sym)
						} else if conf > prev {
							best[sym] = conf
						}
					}
				}
			}
		}
	}

	if len(order) == 0 {
		return nil
	}
	edges := make([]ReferenceEdge, 0, len(order))
	for _, sym := range order {
		edges = append(edges, ReferenceEdge{
			DiagnosticID: d.ID,
			Symbol:       sym,
			Confidence:   best[sym],
		})
	}
	return edges
}

// resolveAll fans resolution out across workers. Each diagnostic is
// independent, so results land in a preallocated slice indexed by input
// position and the output is identical to a serial run.
func resolveAll(ctx context.Context, diags []diagnostic.Diagnostic, index *symtab.Index, workers int) ([][]ReferenceEdge, error) {
	results := make([][]ReferenceEdge, len(diags))
	if len(diags) == 0 {
		return results, nil
	}

	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, len(diags)))

	for i, d := range diags {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = Resolve(d, index)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
