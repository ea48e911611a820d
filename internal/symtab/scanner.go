package symtab

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ScanProgress receives callbacks as the scanner walks source files.
// Implementations can render progress bars, log messages, or stay silent.
type ScanProgress interface {
	// OnScanStart is called once with the number of files selected.
	OnScanStart(totalFiles int)

	// OnFileScanned is called after each file is parsed.
	OnFileScanned(processed, total int, fileName string)

	// OnScanComplete is called when the scan finishes successfully.
	OnScanComplete(symbolCount int, duration time.Duration)
}

// NoOpScanProgress is a progress observer that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpScanProgress struct{}

func (NoOpScanProgress) OnScanStart(totalFiles int)                          {}
func (NoOpScanProgress) OnFileScanned(processed, total int, fileName string) {}
func (NoOpScanProgress) OnScanComplete(symbolCount int, duration time.Duration) {
}

// Scanner extracts exported TypeScript declarations from a source tree.
type Scanner interface {
	// Scan walks the tree and returns every exported declaration found.
	// Files that fail to read or parse are skipped with a warning.
	Scan(ctx context.Context) ([]Symbol, error)
}

type scanner struct {
	rootDir   string
	discovery *Discovery
	language  *sitter.Language
	progress  ScanProgress
}

// ScannerOption configures optional scanner behavior.
type ScannerOption func(*scanner)

// WithProgress attaches a progress observer to the scan.
func WithProgress(p ScanProgress) ScannerOption {
	return func(s *scanner) {
		if p != nil {
			s.progress = p
		}
	}
}

// NewScanner creates a scanner rooted at rootDir. Include and ignore
// patterns use glob syntax matched against slash-separated paths relative
// to the root.
func NewScanner(rootDir string, includePatterns, ignorePatterns []string, opts ...ScannerOption) (Scanner, error) {
	discovery, err := NewDiscovery(rootDir, includePatterns, ignorePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to compile scan patterns: %w", err)
	}

	s := &scanner{
		rootDir:   rootDir,
		discovery: discovery,
		language:  sitter.NewLanguage(typescript.LanguageTypescript()),
		progress:  NoOpScanProgress{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *scanner) Scan(ctx context.Context) ([]Symbol, error) {
	start := time.Now()

	files, err := s.discovery.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover source files: %w", err)
	}
	s.progress.OnScanStart(len(files))

	var symbols []Symbol
	for i, path := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		relPath, err := filepath.Rel(s.rootDir, path)
		if err != nil {
			return nil, err
		}
		relPath = filepath.ToSlash(relPath)

		fileSymbols, err := s.scanFile(path, relPath)
		if err != nil {
			log.Printf("Warning: failed to scan %s: %v", relPath, err)
		} else {
			symbols = append(symbols, fileSymbols...)
		}
		s.progress.OnFileScanned(i+1, len(files), relPath)
	}

	s.progress.OnScanComplete(len(symbols), time.Since(start))
	return symbols, nil
}

// scanFile parses one file and collects its top-level exported declarations.
func (s *scanner) scanFile(path, relPath string) ([]Symbol, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(s.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, nil // Skip unparseable files
	}
	defer tree.Close()

	var symbols []Symbol
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		stmt := root.Child(uint(i))
		if stmt == nil || stmt.Kind() != "export_statement" {
			continue
		}
		decl := stmt.ChildByFieldName("declaration")
		if decl == nil {
			continue // Re-export clauses declare nothing here
		}
		symbols = append(symbols, declarationSymbols(decl, source, relPath)...)
	}
	return symbols, nil
}

// declarationSymbols converts one exported declaration node into symbols.
// Lines come from the name node, so decorators above a class do not shift
// the declaring line.
func declarationSymbols(decl *sitter.Node, source []byte, relPath string) []Symbol {
	switch decl.Kind() {
	case "interface_declaration", "type_alias_declaration":
		return namedSymbol(decl, source, relPath, KindType)
	case "class_declaration", "abstract_class_declaration", "enum_declaration":
		return namedSymbol(decl, source, relPath, KindBoth)
	case "function_declaration", "function_signature":
		return namedSymbol(decl, source, relPath, KindValue)
	case "lexical_declaration", "variable_declaration":
		return declaratorSymbols(decl, source, relPath)
	case "ambient_declaration":
		// export declare ... : unwrap and dispatch on the inner declaration
		var symbols []Symbol
		for i := 0; i < int(decl.ChildCount()); i++ {
			if child := decl.Child(uint(i)); child != nil {
				symbols = append(symbols, declarationSymbols(child, source, relPath)...)
			}
		}
		return symbols
	default:
		return nil
	}
}

func namedSymbol(decl *sitter.Node, source []byte, relPath string, kind Kind) []Symbol {
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return nil // e.g. export default function () {}
	}
	return []Symbol{{
		Name: extractNodeText(nameNode, source),
		File: relPath,
		Line: int(nameNode.StartPosition().Row) + 1,
		Kind: kind,
	}}
}

// declaratorSymbols handles const/let/var declarations, which can bind
// several names at once. Destructuring patterns are skipped: the checker
// never names them directly.
func declaratorSymbols(decl *sitter.Node, source []byte, relPath string) []Symbol {
	var symbols []Symbol
	for i := 0; i < int(decl.ChildCount()); i++ {
		child := decl.Child(uint(i))
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil || nameNode.Kind() != "identifier" {
			continue
		}
		symbols = append(symbols, Symbol{
			Name: extractNodeText(nameNode, source),
			File: relPath,
			Line: int(nameNode.StartPosition().Row) + 1,
			Kind: KindValue,
		})
	}
	return symbols
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}
