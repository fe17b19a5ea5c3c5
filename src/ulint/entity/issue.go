// Package entity contains the domain types shared by the ulint service.
package entity

import (
	"path/filepath"
	"strings"
)

// Severity of a single lint finding.
type Severity string

const (
	// SeverityError is used for error and fatal findings.
	SeverityError Severity = "error"
	// SeverityWarning is used for warnings.
	SeverityWarning Severity = "warning"
	// SeverityInformation is used for everything else, including a missing severity.
	SeverityInformation Severity = "information"
)

// NormalizeSeverity maps a severity as reported by an analysis backend onto Severity.
func NormalizeSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "error", "fatal":
		return SeverityError
	case "warning":
		return SeverityWarning
	default:
		return SeverityInformation
	}
}

// Issue is one normalized finding.
// Line and Column are 1-based as reported by the analysis tools, 0 when unknown.
type Issue struct {
	FilePath     string   `json:"filePath" zap:"filePath"`
	Line         int      `json:"line" zap:"line"`
	Column       int      `json:"column" zap:"column"`
	Severity     Severity `json:"severity" zap:"severity"`
	RuleID       string   `json:"ruleId" zap:"ruleId"`
	Category     string   `json:"category" zap:"category"`
	Message      string   `json:"message" zap:"message"`
	SuggestedFix string   `json:"suggestedFix,omitempty" zap:"suggestedFix"`
}

// IssueKey identifies duplicate findings.
// Severity and Category are not part of the key, so two findings that differ only in those collapse into one.
type IssueKey struct {
	FilePath string
	Line     int
	Column   int
	RuleID   string
	Message  string
}

// Key returns the deduplication key for the issue.
func (i Issue) Key() IssueKey {
	return IssueKey{
		FilePath: i.FilePath,
		Line:     i.Line,
		Column:   i.Column,
		RuleID:   i.RuleID,
		Message:  i.Message,
	}
}

// ResolvePath returns p as an absolute path, resolving relative paths against root.
func ResolvePath(root string, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// IsWithin reports whether p is root or lies below it.
func IsWithin(root string, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
