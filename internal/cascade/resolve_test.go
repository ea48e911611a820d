package cascade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/symtab"
)

// Test Plan for the Reference Resolver:
// - Direct type names resolve to STRONG edges when uniquely declared
// - Assignability messages implicate both sides
// - Ambiguous names keep every candidate as a WEAK edge
// - Structurally inferred names (property, variable) are WEAK
// - Builtin type names and composite type expressions produce nothing
// - Array suffixes strip; generic instantiations keep the outer name only
// - Did-you-mean suggestions never produce edges
// - third-party diagnostics resolve to nothing
// - The same symbol reached twice keeps its strongest confidence
// - resolveAll is independent of worker count and honors cancellation

func TestResolve_DirectTypeName(t *testing.T) {
	t.Parallel()

	// Test: Direct type names resolve to STRONG edges when uniquely declared
	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("User", "src/models/user.ts", 15, symtab.KindType),
	})
	d := mkDiag("src/api/handler.ts", 42, 7, "TS2339", "Property 'email' does not exist on type 'User'.")

	edges := Resolve(d, index)
	require.Len(t, edges, 1, "the property name has no declaration, only the type should link")
	assert.Equal(t, "User", edges[0].Symbol.Name)
	assert.Equal(t, 15, edges[0].Symbol.Line)
	assert.Equal(t, ConfidenceStrong, edges[0].Confidence)
	assert.Equal(t, d.ID, edges[0].DiagnosticID)
}

func TestResolve_AssignabilityImplicatesBothSides(t *testing.T) {
	t.Parallel()

	// Test: Assignability messages implicate both sides
	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("User", "src/models/user.ts", 3, symtab.KindType),
		mkSym("Profile", "src/models/profile.ts", 8, symtab.KindType),
	})
	d := mkDiag("src/app.ts", 10, 5, "TS2322", "Type 'User' is not assignable to type 'Profile'.")

	edges := Resolve(d, index)
	require.Len(t, edges, 2)
	assert.Equal(t, "User", edges[0].Symbol.Name)
	assert.Equal(t, "Profile", edges[1].Symbol.Name)
	assert.Equal(t, ConfidenceStrong, edges[0].Confidence)
	assert.Equal(t, ConfidenceStrong, edges[1].Confidence)
}

func TestResolve_AmbiguousNameKeepsAllCandidates(t *testing.T) {
	t.Parallel()

	// Test: Ambiguous names keep every candidate as a WEAK edge
	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("Config", "src/a/config.ts", 2, symtab.KindType),
		mkSym("Config", "src/b/config.ts", 9, symtab.KindType),
	})
	d := mkDiag("src/main.ts", 4, 1, "TS2304", "Cannot find name 'Config'.")

	edges := Resolve(d, index)
	require.Len(t, edges, 2)
	assert.Equal(t, "src/a/config.ts", edges[0].Symbol.File, "candidates keep canonical order")
	assert.Equal(t, "src/b/config.ts", edges[1].Symbol.File)
	for _, e := range edges {
		assert.Equal(t, ConfidenceWeak, e.Confidence)
	}
}

func TestResolve_InferredNamesAreWeak(t *testing.T) {
	t.Parallel()

	// Test: Structurally inferred names (property, variable) are WEAK
	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("slug", "src/fields.ts", 12, symtab.KindValue),
		mkSym("Draft", "src/models/draft.ts", 1, symtab.KindType),
		mkSym("Post", "src/models/post.ts", 1, symtab.KindType),
	})
	d := mkDiag("src/editor.ts", 30, 3, "TS2741",
		"Property 'slug' is missing in type 'Draft' but required in type 'Post'.")

	edges := Resolve(d, index)
	require.Len(t, edges, 3)

	byName := map[string]Confidence{}
	for _, e := range edges {
		byName[e.Symbol.Name] = e.Confidence
	}
	assert.Equal(t, ConfidenceStrong, byName["Draft"])
	assert.Equal(t, ConfidenceStrong, byName["Post"])
	assert.Equal(t, ConfidenceWeak, byName["slug"], "a property name only hints at a symbol")
}

func TestResolve_BuiltinsAndCompositesProduceNothing(t *testing.T) {
	t.Parallel()

	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("User", "src/models/user.ts", 3, symtab.KindType),
	})

	// Test: Builtin type names and composite type expressions produce nothing
	tests := []struct {
		name    string
		code    string
		message string
	}{
		{"builtins", "TS2322", "Type 'string' is not assignable to type 'number'."},
		{"structural literal", "TS2322", "Type '{ id: number; }' is not assignable to type '{ id: string; }'."},
		{"union", "TS2322", "Type 'User | null' is not assignable to type 'User & Named'."},
		{"quoted literal type", "TS2322", "Type '\"admin\"' is not assignable to type '\"member\"'."},
		{"builtin generic", "TS2322", "Type 'Promise<User>' is not assignable to type 'Promise<Account>'."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := mkDiag("src/app.ts", 1, 1, tt.code, tt.message)
			assert.Empty(t, Resolve(d, index))
		})
	}
}

func TestResolve_TypeExpressionCleanup(t *testing.T) {
	t.Parallel()

	// Test: Array suffixes strip; generic instantiations keep the outer name only
	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("User", "src/models/user.ts", 3, symtab.KindType),
		mkSym("Paginated", "src/models/page.ts", 5, symtab.KindType),
	})

	d := mkDiag("src/app.ts", 9, 1, "TS2322", "Type 'User[]' is not assignable to type 'Paginated<User>'.")
	edges := Resolve(d, index)
	require.Len(t, edges, 2)
	assert.Equal(t, "User", edges[0].Symbol.Name)
	assert.Equal(t, "Paginated", edges[1].Symbol.Name, "type arguments inside generics are not chased")
}

func TestResolve_DidYouMeanSuggestionIgnored(t *testing.T) {
	t.Parallel()

	// Test: Did-you-mean suggestions never produce edges
	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("User", "src/models/user.ts", 3, symtab.KindType),
		mkSym("Users", "src/models/users.ts", 3, symtab.KindType),
	})
	d := mkDiag("src/app.ts", 7, 1, "TS2552", "Cannot find name 'User'. Did you mean 'Users'?")

	edges := Resolve(d, index)
	require.Len(t, edges, 1, "the suggested replacement is not a reference")
	assert.Equal(t, "User", edges[0].Symbol.Name)
}

func TestResolve_ExportedMemberName(t *testing.T) {
	t.Parallel()

	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("UserRecord", "src/models/user.ts", 21, symtab.KindType),
	})
	d := mkDiag("src/app.ts", 1, 10, "TS2305", `Module '"./models/user"' has no exported member 'UserRecord'.`)

	edges := Resolve(d, index)
	require.Len(t, edges, 1)
	assert.Equal(t, "UserRecord", edges[0].Symbol.Name)
	assert.Equal(t, ConfidenceStrong, edges[0].Confidence)
}

func TestResolve_ThirdPartyResolvesNothing(t *testing.T) {
	t.Parallel()

	// Test: third-party diagnostics resolve to nothing
	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("User", "src/models/user.ts", 3, symtab.KindType),
	})
	d := mkDiag("node_modules/@types/vendor/index.d.ts", 100, 1, "TS2322",
		"Type 'User' is not assignable to type 'VendorUser'.")
	require.Equal(t, diagnostic.CategoryThirdParty, d.Category)

	assert.Empty(t, Resolve(d, index), "causes in dependency code live outside the scanned tree")
}

func TestResolve_KeepsStrongestForRepeatedSymbol(t *testing.T) {
	t.Parallel()

	// Test: The same symbol reached twice keeps its strongest confidence
	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("User", "src/models/user.ts", 3, symtab.KindType),
	})
	d := mkDiag("src/app.ts", 5, 1, "TS2339", "Property 'User' does not exist on type 'User'.")

	edges := Resolve(d, index)
	require.Len(t, edges, 1)
	assert.Equal(t, ConfidenceStrong, edges[0].Confidence)
}

func TestResolveAll_WorkerCountInvariant(t *testing.T) {
	t.Parallel()

	// Test: resolveAll is independent of worker count
	index := symtab.BuildIndex([]symtab.Symbol{
		mkSym("User", "src/models/user.ts", 3, symtab.KindType),
		mkSym("Profile", "src/models/profile.ts", 8, symtab.KindType),
	})
	diags := []diagnostic.Diagnostic{
		mkDiag("src/a.ts", 1, 1, "TS2322", "Type 'User' is not assignable to type 'Profile'."),
		mkDiag("src/b.ts", 2, 1, "TS2304", "Cannot find name 'User'."),
		mkDiag("src/c.ts", 3, 1, "TS2322", "Type 'string' is not assignable to type 'number'."),
	}

	serial, err := resolveAll(context.Background(), diags, index, 1)
	require.NoError(t, err)
	parallel, err := resolveAll(context.Background(), diags, index, 8)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
	assert.Len(t, serial[0], 2)
	assert.Len(t, serial[1], 1)
	assert.Empty(t, serial[2])
}

func TestResolveAll_Cancellation(t *testing.T) {
	t.Parallel()

	// Test: resolveAll honors cancellation
	index := symtab.BuildIndex(nil)
	diags := []diagnostic.Diagnostic{
		mkDiag("src/a.ts", 1, 1, "TS2304", "Cannot find name 'X'."),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := resolveAll(ctx, diags, index, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
