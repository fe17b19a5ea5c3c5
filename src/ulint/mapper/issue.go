package mapper

import (
	"sort"

	"github.com/uber/lint-lsp/src/ulint/entity"
	lintdaemon "github.com/uber/lint-lsp/src/ulint/gateway/lint-daemon"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// DiagnosticSource is reported as the source of every published diagnostic.
const DiagnosticSource = "lint"

// DaemonIssuesToIssues normalizes the daemon's findings, resolving relative paths against projectRoot.
// Duplicates are dropped, keeping the first occurrence.
func DaemonIssuesToIssues(projectRoot string, in []lintdaemon.Issue) []entity.Issue {
	result := make([]entity.Issue, 0, len(in))
	seen := make(map[entity.IssueKey]struct{}, len(in))
	for _, d := range in {
		issue := entity.Issue{
			FilePath:     entity.ResolvePath(projectRoot, d.FilePath),
			Line:         d.Line,
			Column:       d.Column,
			Severity:     entity.NormalizeSeverity(d.Severity),
			RuleID:       d.ID,
			Category:     d.Category,
			Message:      d.Message,
			SuggestedFix: d.QuickFix,
		}
		if issue.FilePath == "" {
			continue
		}
		if _, ok := seen[issue.Key()]; ok {
			continue
		}
		seen[issue.Key()] = struct{}{}
		result = append(result, issue)
	}
	return result
}

// SeverityToDiagnosticSeverity maps a Severity to its LSP counterpart.
func SeverityToDiagnosticSeverity(s entity.Severity) protocol.DiagnosticSeverity {
	switch s {
	case entity.SeverityError:
		return protocol.DiagnosticSeverityError
	case entity.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

// IssueToDiagnostic converts an issue into an LSP diagnostic covering the rest of its line.
func IssueToDiagnostic(issue entity.Issue) protocol.Diagnostic {
	line := toZeroBased(issue.Line)
	char := toZeroBased(issue.Column)

	d := protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: char},
			End:   protocol.Position{Line: line + 1, Character: 0},
		},
		Severity: SeverityToDiagnosticSeverity(issue.Severity),
		Code:     issue.RuleID,
		Source:   DiagnosticSource,
		Message:  issue.Message,
	}
	if issue.SuggestedFix != "" {
		d.Data = map[string]string{"suggestedFix": issue.SuggestedFix}
	}
	return d
}

// IssuesToDocumentDiagnostics groups issues by document, preserving their order within each document.
func IssuesToDocumentDiagnostics(issues []entity.Issue) map[uri.URI][]protocol.Diagnostic {
	result := make(map[uri.URI][]protocol.Diagnostic)
	for _, issue := range issues {
		docURI := uri.File(issue.FilePath)
		result[docURI] = append(result[docURI], IssueToDiagnostic(issue))
	}
	return result
}

// SortedDocuments returns the documents of a diagnostic set in a stable order.
func SortedDocuments(docs map[uri.URI][]protocol.Diagnostic) []uri.URI {
	result := make([]uri.URI, 0, len(docs))
	for docURI := range docs {
		result = append(result, docURI)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	return result
}

func toZeroBased(n int) uint32 {
	if n <= 1 {
		return 0
	}
	return uint32(n - 1)
}
