package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/factory"
	lintdaemon "github.com/uber/lint-lsp/src/ulint/gateway/lint-daemon"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

func TestDaemonIssuesToIssues(t *testing.T) {
	in := []lintdaemon.Issue{
		{FilePath: "app/Main.kt", Line: 3, Column: 4, Severity: "Fatal", ID: "NewApi", Category: "Correctness", Message: "m", QuickFix: "Surround with if"},
		{FilePath: "/abs/Other.kt", Line: 1, Severity: "warning", ID: "Unused", Message: "m2"},
		// Duplicate of the first finding, differing only in severity.
		{FilePath: "app/Main.kt", Line: 3, Column: 4, Severity: "Warning", ID: "NewApi", Category: "Correctness", Message: "m"},
		{FilePath: "", Line: 1, ID: "NoFile", Message: "m3"},
		{FilePath: "app/Main.kt", Line: 9, Severity: "whatever", ID: "Typo", Message: "m4"},
	}

	got := DaemonIssuesToIssues("/home/user/proj", in)
	assert.Equal(t, []entity.Issue{
		{FilePath: "/home/user/proj/app/Main.kt", Line: 3, Column: 4, Severity: entity.SeverityError, RuleID: "NewApi", Category: "Correctness", Message: "m", SuggestedFix: "Surround with if"},
		{FilePath: "/abs/Other.kt", Line: 1, Severity: entity.SeverityWarning, RuleID: "Unused", Message: "m2"},
		{FilePath: "/home/user/proj/app/Main.kt", Line: 9, Severity: entity.SeverityInformation, RuleID: "Typo", Message: "m4"},
	}, got)
}

func TestIssueToDiagnostic(t *testing.T) {
	t.Run("positioned", func(t *testing.T) {
		d := IssueToDiagnostic(entity.Issue{
			FilePath:     "/p/A.kt",
			Line:         10,
			Column:       5,
			Severity:     entity.SeverityError,
			RuleID:       "NewApi",
			Message:      "Call requires API level 26",
			SuggestedFix: "Add @RequiresApi",
		})
		assert.Equal(t, protocol.Range{
			Start: protocol.Position{Line: 9, Character: 4},
			End:   protocol.Position{Line: 10, Character: 0},
		}, d.Range)
		assert.Equal(t, protocol.DiagnosticSeverityError, d.Severity)
		assert.Equal(t, "NewApi", d.Code)
		assert.Equal(t, DiagnosticSource, d.Source)
		assert.Equal(t, "Call requires API level 26", d.Message)
		assert.Equal(t, map[string]string{"suggestedFix": "Add @RequiresApi"}, d.Data)
	})

	t.Run("unknown position", func(t *testing.T) {
		d := IssueToDiagnostic(entity.Issue{FilePath: "/p/A.kt", Severity: entity.SeverityInformation})
		assert.Equal(t, protocol.Position{}, d.Range.Start)
		assert.Equal(t, protocol.DiagnosticSeverityInformation, d.Severity)
		assert.Nil(t, d.Data)
	})
}

func TestSeverityToDiagnosticSeverity(t *testing.T) {
	assert.Equal(t, protocol.DiagnosticSeverityError, SeverityToDiagnosticSeverity(entity.SeverityError))
	assert.Equal(t, protocol.DiagnosticSeverityWarning, SeverityToDiagnosticSeverity(entity.SeverityWarning))
	assert.Equal(t, protocol.DiagnosticSeverityInformation, SeverityToDiagnosticSeverity(entity.SeverityInformation))
	assert.Equal(t, protocol.DiagnosticSeverityInformation, SeverityToDiagnosticSeverity("other"))
}

func TestIssuesToDocumentDiagnostics(t *testing.T) {
	a1 := factory.Issue("/p", "A.kt")
	b := factory.Issue("/p", "B.kt")
	a2 := factory.Issue("/p", "A.kt")
	a2.RuleID = "Other"

	docs := IssuesToDocumentDiagnostics([]entity.Issue{a1, b, a2})
	require.Len(t, docs, 2)

	aURI := uri.File("/p/A.kt")
	require.Len(t, docs[aURI], 2)
	assert.Equal(t, a1.RuleID, docs[aURI][0].Code)
	assert.Equal(t, "Other", docs[aURI][1].Code)
	assert.Len(t, docs[uri.File("/p/B.kt")], 1)

	assert.Equal(t, []uri.URI{aURI, uri.File("/p/B.kt")}, SortedDocuments(docs))
}
