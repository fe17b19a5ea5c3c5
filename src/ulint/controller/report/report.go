package report

//go:generate mockgen -source=report.go -destination=reportmock/report_mock.go -package=reportmock

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"strconv"

	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/internal/fs"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey = "report-parser"

	_elementIssue    = "issue"
	_elementLocation = "location"
	_elementFix      = "fix"

	// Token interval at which cancellation is checked.
	_ctxCheckInterval = 512
)

// ErrNoReport is returned by ParseFile when the tool did not write a report.
var ErrNoReport = errors.New("lint report not found")

// Module provides the report parser.
var Module = fx.Options(
	fx.Provide(New),
)

// Parser reads the batch tool's XML report.
type Parser interface {
	// Parse streams issues out of r. Relative paths are resolved against projectRoot.
	// Malformed records are skipped, and a truncated document yields the issues read before the truncation.
	Parse(ctx context.Context, r io.Reader, projectRoot string) ([]entity.Issue, error)
	// ParseFile parses the report at path, returning ErrNoReport if it does not exist.
	ParseFile(ctx context.Context, path string, projectRoot string) ([]entity.Issue, error)
}

// Params are the dependencies of the parser.
type Params struct {
	fx.In

	FS     fs.UlintFS
	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

type parser struct {
	fs     fs.UlintFS
	logger *zap.SugaredLogger
	stats  tally.Scope
}

// New creates a Parser.
func New(p Params) Parser {
	return &parser{
		fs:     p.FS,
		logger: p.Logger.With("plugin", _nameKey),
		stats:  p.Stats.SubScope("report"),
	}
}

func (p *parser) ParseFile(ctx context.Context, path string, projectRoot string) ([]entity.Issue, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoReport, path)
		}
		return nil, fmt.Errorf("opening lint report: %w", err)
	}
	defer f.Close()

	return p.Parse(ctx, f, projectRoot)
}

// record accumulates one issue element until its end tag.
type record struct {
	issue        entity.Issue
	quickfix     string
	// seenLocation is set by the first location, whether or not it names a file.
	seenLocation bool
	hasLocation  bool
	malformed    bool
}

func (p *parser) Parse(ctx context.Context, r io.Reader, projectRoot string) ([]entity.Issue, error) {
	dec := xml.NewDecoder(r)
	// Reports may declare encodings other than UTF-8; pass their bytes through unchanged.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		issues  []entity.Issue
		seen    = make(map[entity.IssueKey]struct{})
		current *record
		tokens  int
	)

	for {
		tokens++
		if tokens%_ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.stats.Counter("truncated").Inc(1)
				p.logger.Warnw("lint report ended unexpectedly, keeping issues read so far", "issues", len(issues), "error", err)
			}
			break
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case _elementIssue:
				current = startRecord(el)
			case _elementLocation:
				if current != nil && !current.seenLocation && !current.malformed {
					current.seenLocation = true
					p.readLocation(current, el, projectRoot)
				}
			case _elementFix:
				if current != nil && current.issue.SuggestedFix == "" {
					current.issue.SuggestedFix = attr(el, "description")
				}
			}

		case xml.EndElement:
			if el.Name.Local != _elementIssue || current == nil {
				continue
			}
			rec := current
			current = nil

			if rec.malformed {
				continue
			}
			if !rec.hasLocation {
				p.logger.Debugw("skipping issue without location", "ruleId", rec.issue.RuleID)
				continue
			}
			if rec.issue.SuggestedFix == "" {
				rec.issue.SuggestedFix = rec.quickfix
			}

			key := rec.issue.Key()
			if _, dup := seen[key]; dup {
				p.stats.Counter("duplicates").Inc(1)
				continue
			}
			seen[key] = struct{}{}
			issues = append(issues, rec.issue)
		}
	}

	p.stats.Counter("issues").Inc(int64(len(issues)))
	return issues, nil
}

func startRecord(el xml.StartElement) *record {
	return &record{
		issue: entity.Issue{
			RuleID:   attr(el, "id"),
			Severity: entity.NormalizeSeverity(attr(el, "severity")),
			Message:  attr(el, "message"),
			Category: attr(el, "category"),
		},
		quickfix: attr(el, "quickfix"),
	}
}

// readLocation fills in the record from its first location. A first location without a file leaves the record unlocated.
func (p *parser) readLocation(rec *record, el xml.StartElement, projectRoot string) {
	file := attr(el, "file")
	if file == "" {
		return
	}
	line, err := atoiOrZero(attr(el, "line"))
	if err != nil {
		p.skip(rec, "line", err)
		return
	}
	column, err := atoiOrZero(attr(el, "column"))
	if err != nil {
		p.skip(rec, "column", err)
		return
	}

	rec.issue.FilePath = entity.ResolvePath(projectRoot, file)
	rec.issue.Line = line
	rec.issue.Column = column
	rec.hasLocation = true
}

func (p *parser) skip(rec *record, field string, err error) {
	rec.malformed = true
	p.stats.Counter("malformed_records").Inc(1)
	p.logger.Warnw("skipping malformed lint report record", "ruleId", rec.issue.RuleID, "field", field, "error", err)
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
