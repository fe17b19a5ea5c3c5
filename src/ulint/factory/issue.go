package factory

import (
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/uber/lint-lsp/src/ulint/entity"
)

// Issue returns an issue in file under root with a random position.
func Issue(root string, file string) entity.Issue {
	line := rand.Intn(100) + 1
	return entity.Issue{
		FilePath: filepath.Join(root, file),
		Line:     line,
		Column:   rand.Intn(80) + 1,
		Severity: entity.SeverityWarning,
		RuleID:   "SampleRule",
		Category: "Correctness",
		Message:  fmt.Sprintf("sample issue on line %d", line),
	}
}
