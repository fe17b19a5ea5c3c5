package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/internal/fs"
	"github.com/uber/lint-lsp/src/ulint/internal/fs/fsmock"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const _root = "/home/user/app"

const _sampleReport = `<?xml version="1.0" encoding="UTF-8"?>
<issues format="6" by="lint 8.2.0">

    <issue
        id="UnusedResources"
        severity="Warning"
        message="The resource ` + "`R.string.unused`" + ` appears to be unused"
        category="Performance"
        priority="3"
        summary="Unused resources">
        <location
            file="app/src/main/res/values/strings.xml"
            line="3"
            column="13"/>
    </issue>

    <issue
        id="HardcodedText"
        severity="Fatal"
        message="Hardcoded string &quot;Hello&quot;, should use @string resource"
        category="Internationalization"
        quickfix="studio">
        <fix description="Extract string resource"/>
        <location
            file="/abs/app/src/main/res/layout/main.xml"
            line="10"
            column="9"/>
        <location
            file="app/src/main/res/layout/other.xml"
            line="1"
            column="1"/>
    </issue>

    <issue
        id="ObsoleteSdkInt"
        severity="Information"
        message="Unnecessary; SDK_INT is always >= 21"
        category="Performance"
        quickfix="studio">
        <location
            file="app/src/main/java/Main.kt"
            line="42"/>
    </issue>

</issues>
`

func newTestParser() (*parser, *observer.ObservedLogs, tally.TestScope) {
	core, logs := observer.New(zap.DebugLevel)
	stats := tally.NewTestScope("", nil)
	p := New(Params{
		FS:     fs.New(),
		Logger: zap.New(core).Sugar(),
		Stats:  stats,
	}).(*parser)
	return p, logs, stats
}

func TestParse(t *testing.T) {
	p, _, _ := newTestParser()

	issues, err := p.Parse(context.Background(), strings.NewReader(_sampleReport), _root)
	require.NoError(t, err)
	assert.Equal(t, []entity.Issue{
		{
			FilePath: filepath.Join(_root, "app/src/main/res/values/strings.xml"),
			Line:     3,
			Column:   13,
			Severity: entity.SeverityWarning,
			RuleID:   "UnusedResources",
			Category: "Performance",
			Message:  "The resource `R.string.unused` appears to be unused",
		},
		{
			FilePath:     "/abs/app/src/main/res/layout/main.xml",
			Line:         10,
			Column:       9,
			Severity:     entity.SeverityError,
			RuleID:       "HardcodedText",
			Category:     "Internationalization",
			Message:      `Hardcoded string "Hello", should use @string resource`,
			SuggestedFix: "Extract string resource",
		},
		{
			FilePath:     filepath.Join(_root, "app/src/main/java/Main.kt"),
			Line:         42,
			Severity:     entity.SeverityInformation,
			RuleID:       "ObsoleteSdkInt",
			Category:     "Performance",
			Message:      "Unnecessary; SDK_INT is always >= 21",
			SuggestedFix: "studio",
		},
	}, issues)
}

func TestParseDeterministic(t *testing.T) {
	p, _, _ := newTestParser()

	first, err := p.Parse(context.Background(), strings.NewReader(_sampleReport), _root)
	require.NoError(t, err)
	second, err := p.Parse(context.Background(), strings.NewReader(_sampleReport), _root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseDedup(t *testing.T) {
	p, _, stats := newTestParser()
	report := `<issues>
  <issue id="A" severity="Warning" message="m" category="c1"><location file="F.kt" line="1" column="2"/></issue>
  <issue id="A" severity="Error" message="m" category="c2"><location file="F.kt" line="1" column="2"/></issue>
  <issue id="A" severity="Warning" message="other" category="c1"><location file="F.kt" line="1" column="2"/></issue>
  <issue id="B" severity="Warning" message="m" category="c1"><location file="F.kt" line="1" column="2"/></issue>
</issues>`

	issues, err := p.Parse(context.Background(), strings.NewReader(report), _root)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	// The first occurrence wins, even though the duplicate differs in severity and category.
	assert.Equal(t, entity.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "c1", issues[0].Category)
	assert.Equal(t, int64(1), stats.Snapshot().Counters()["report.duplicates+"].Value())
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		severity string
		want     entity.Severity
	}{
		{severity: "Error", want: entity.SeverityError},
		{severity: "Fatal", want: entity.SeverityError},
		{severity: "Warning", want: entity.SeverityWarning},
		{severity: "Information", want: entity.SeverityInformation},
		{severity: "Ignore", want: entity.SeverityInformation},
		{severity: "", want: entity.SeverityInformation},
	}

	p, _, _ := newTestParser()
	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			report := `<issues><issue id="X" severity="` + tt.severity + `" message="m"><location file="F.kt" line="1"/></issue></issues>`
			issues, err := p.Parse(context.Background(), strings.NewReader(report), _root)
			require.NoError(t, err)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.want, issues[0].Severity)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	t.Run("bad numbers skip the record", func(t *testing.T) {
		p, logs, stats := newTestParser()
		report := `<issues>
  <issue id="Bad" severity="Error" message="m"><location file="F.kt" line="three" column="1"/></issue>
  <issue id="BadColumn" severity="Error" message="m"><location file="F.kt" line="3" column="-x"/></issue>
  <issue id="Good" severity="Error" message="m"><location file="F.kt" line="3" column="1"/></issue>
</issues>`

		issues, err := p.Parse(context.Background(), strings.NewReader(report), _root)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, "Good", issues[0].RuleID)
		assert.Equal(t, 2, logs.FilterMessage("skipping malformed lint report record").Len())
		assert.Equal(t, int64(2), stats.Snapshot().Counters()["report.malformed_records+"].Value())
	})

	t.Run("issues without location are skipped", func(t *testing.T) {
		p, logs, _ := newTestParser()
		report := `<issues>
  <issue id="NoLocation" severity="Error" message="m"/>
  <issue id="EmptyFile" severity="Error" message="m"><location line="3"/></issue>
  <issue id="FirstWithoutFile" severity="Error" message="m"><location line="3"/><location file="G.kt" line="4"/></issue>
  <issue id="Located" severity="Error" message="m"><location file="H.kt" line="5"/><location file="G.kt" line="4"/></issue>
</issues>`

		issues, err := p.Parse(context.Background(), strings.NewReader(report), _root)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, "Located", issues[0].RuleID)
		assert.Equal(t, filepath.Join(_root, "H.kt"), issues[0].FilePath)
		assert.Equal(t, 5, issues[0].Line)
		assert.Equal(t, 3, logs.FilterMessage("skipping issue without location").Len())
	})

	t.Run("truncated document keeps complete records", func(t *testing.T) {
		p, logs, _ := newTestParser()
		report := `<issues>
  <issue id="Complete" severity="Warning" message="m"><location file="F.kt" line="1"/></issue>
  <issue id="Partial" severity="Warning" message="m"><location file="F.kt" li`

		issues, err := p.Parse(context.Background(), strings.NewReader(report), _root)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, "Complete", issues[0].RuleID)
		assert.Equal(t, 1, logs.FilterMessage("lint report ended unexpectedly, keeping issues read so far").Len())
	})

	t.Run("empty document", func(t *testing.T) {
		p, _, _ := newTestParser()
		issues, err := p.Parse(context.Background(), strings.NewReader(""), _root)
		require.NoError(t, err)
		assert.Empty(t, issues)
	})
}

func TestParseCancelled(t *testing.T) {
	p, _, _ := newTestParser()

	var b strings.Builder
	b.WriteString("<issues>")
	for i := 0; i < 1000; i++ {
		b.WriteString(`<issue id="X" severity="Warning" message="m"><location file="F.kt" line="1"/></issue>`)
	}
	b.WriteString("</issues>")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Parse(ctx, strings.NewReader(b.String()), _root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFile(t *testing.T) {
	t.Run("existing report", func(t *testing.T) {
		p, _, _ := newTestParser()
		path := filepath.Join(t.TempDir(), "lint-results-debug.xml")
		require.NoError(t, os.WriteFile(path, []byte(_sampleReport), 0o644))

		issues, err := p.ParseFile(context.Background(), path, _root)
		require.NoError(t, err)
		assert.Len(t, issues, 3)
	})

	t.Run("missing report", func(t *testing.T) {
		p, _, _ := newTestParser()
		_, err := p.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.xml"), _root)
		assert.ErrorIs(t, err, ErrNoReport)
	})

	t.Run("open failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fsMock := fsmock.NewMockUlintFS(ctrl)
		p := New(Params{FS: fsMock, Logger: zap.NewNop().Sugar(), Stats: tally.NoopScope})

		fsMock.EXPECT().Open("/report.xml").Return(nil, errors.New("permission denied"))
		_, err := p.ParseFile(context.Background(), "/report.xml", _root)
		assert.ErrorContains(t, err, "permission denied")
		assert.NotErrorIs(t, err, ErrNoReport)
	})
}
