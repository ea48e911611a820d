package diagnostic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// diagLine matches the plain tsc output format:
//
//	src/models/user.ts(15,3): error TS2322: Type 'string' is not assignable...
//
// Summary lines ("Found 12 errors...") and global errors without a file
// position deliberately do not match.
var diagLine = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): (?:error|warning) (TS\d+): (.*)$`)

// ParseLog reads a type-checker log and returns its diagnostics in input
// order. Continuation lines (indented elaborations) are folded into the
// preceding diagnostic's message. Repeated findings with the same derived
// ID are collapsed to the first occurrence, so a log produced by a watch
// session parses to the same set as a single run.
func ParseLog(r io.Reader) ([]Diagnostic, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		diags []Diagnostic
		seen  = make(map[string]struct{})
		last  = -1 // index into diags of the most recent match
	)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			last = -1
			continue
		}

		m := diagLine.FindStringSubmatch(line)
		if m == nil {
			// Indented lines elaborate on the previous diagnostic.
			if last >= 0 && (line[0] == ' ' || line[0] == '\t') {
				diags[last].Message += " " + strings.TrimSpace(line)
			}
			continue
		}

		lineNo, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("failed to parse line number in %q: %w", line, err)
		}
		colNo, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("failed to parse column number in %q: %w", line, err)
		}

		file := strings.ReplaceAll(m[1], "\\", "/")
		code := m[4]
		message := m[5]

		id := DeriveID(file, lineNo, colNo, code)
		if _, dup := seen[id]; dup {
			last = -1
			continue
		}
		seen[id] = struct{}{}

		diags = append(diags, Diagnostic{
			ID:       id,
			File:     file,
			Line:     lineNo,
			Column:   colNo,
			Code:     code,
			Message:  message,
			Category: Classify(file, code, message),
		})
		last = len(diags) - 1
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read diagnostics log: %w", err)
	}

	return diags, nil
}

// ParseFile reads and parses a type-checker log from disk.
func ParseFile(path string) ([]Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostics log: %w", err)
	}
	defer f.Close()

	diags, err := ParseLog(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return diags, nil
}

// codeCategories maps well-known tsc error codes to their category.
// Codes absent from the table fall through to message heuristics.
var codeCategories = map[string]Category{
	// Module resolution and export surface.
	"TS2307": CategoryImport, // Cannot find module
	"TS2305": CategoryImport, // Module has no exported member
	"TS2306": CategoryImport, // File is not a module
	"TS2614": CategoryImport, // Module has no exported member (import flavor)
	"TS2792": CategoryImport, // Cannot find module (moduleResolution hint)

	// Assignability.
	"TS2322": CategoryTypeMismatch, // Type X is not assignable to type Y
	"TS2345": CategoryTypeMismatch, // Argument of type X is not assignable
	"TS2739": CategoryTypeMismatch, // Type is missing properties
	"TS2740": CategoryTypeMismatch, // Type is missing properties (many)
	"TS2741": CategoryTypeMismatch, // Property missing in type

	// Missing or implicit type information.
	"TS2339": CategoryMissingTypeInfo, // Property does not exist on type
	"TS7005": CategoryMissingTypeInfo, // Variable implicitly has an any type
	"TS7006": CategoryMissingTypeInfo, // Parameter implicitly has an any type
	"TS7008": CategoryMissingTypeInfo, // Member implicitly has an any type
	"TS7031": CategoryMissingTypeInfo, // Binding element implicitly has any
	"TS7053": CategoryMissingTypeInfo, // Element implicitly has an any type

	// Unknown names.
	"TS2304": CategoryTypeDefinition, // Cannot find name
	"TS2552": CategoryTypeDefinition, // Cannot find name (did you mean)
	"TS2749": CategoryTypeDefinition, // Refers to a value, used as a type
	"TS2693": CategoryTypeDefinition, // Refers to a type, used as a value

	// Checked escapes.
	"TS2352": CategoryEscapeHatch, // Conversion may be a mistake
}

// Classify assigns the category for a single finding. Dependency-code
// locations win over everything else: a mismatch inside node_modules is a
// third-party problem regardless of its code.
func Classify(file, code, message string) Category {
	if ThirdPartyPath(file) {
		return CategoryThirdParty
	}
	if cat, ok := codeCategories[code]; ok {
		return cat
	}

	switch {
	case strings.Contains(message, "Cannot find module"),
		strings.Contains(message, "has no exported member"):
		return CategoryImport
	case strings.Contains(message, "implicitly has an"),
		strings.Contains(message, "does not exist on type"):
		return CategoryMissingTypeInfo
	case strings.Contains(message, "Cannot find name"):
		return CategoryTypeDefinition
	case strings.Contains(message, "Conversion of type"):
		return CategoryEscapeHatch
	default:
		return CategoryTypeMismatch
	}
}
