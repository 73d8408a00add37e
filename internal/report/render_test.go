package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/whiterabbit/internal/bisect"
	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git"
	"github.com/Iron-Ham/whiterabbit/internal/guard"
	"github.com/Iron-Ham/whiterabbit/internal/health"
	"github.com/Iron-Ham/whiterabbit/internal/hunt"
	"github.com/Iron-Ham/whiterabbit/internal/results"
)

const day = 24 * time.Hour

var started = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func fixtureReport() hunt.Report {
	return hunt.Report{
		HuntID:    "6f1c2b7e-5d4a-4c3b-9a21-0f8e7d6c5b4a",
		Reference: guard.Reference{Kind: guard.KindBranch, Name: "main", Revision: "r9"},
		Outcome: bisect.Outcome{
			Kind:       bisect.BoundaryFound,
			LastGood:   "r6",
			FirstBad:   "r7",
			Iterations: 3,
			Probes:     3,
			Message:    "boundary found: marker present at r6, missing from r7",
			Notes:      []string{"boundary confirmed by re-probing both revisions"},
		},
		Expansion: hunt.Expansion{
			Rounds:          []hunt.Round{{Lookback: 7 * day, Revisions: 10, Kind: bisect.BoundaryFound}},
			InitialLookback: 7 * day,
			FinalLookback:   7 * day,
			Revisions:       10,
		},
		LastGood: &git.Commit{Hash: "r6", Author: "Whiterabbit Test", Time: started.AddDate(0, 0, -3), Subject: "change 6"},
		FirstBad: &git.Commit{Hash: "r7", Author: "Whiterabbit Test", Time: started.AddDate(0, 0, -2), Subject: "change 7"},
		Restore:  guard.RestoreResult{Success: true, Message: "restored branch main"},
		Summary: results.Summary{
			TotalTests:  2,
			Passed:      2,
			SuccessRate: "100.0%",
			Duration:    "42.00s",
			Results: []results.Result{
				{Name: hunt.ResultGitStateCheck, Success: true, Timestamp: started},
				{Name: hunt.ResultCommitRetrieval, Success: true, Details: map[string]any{"commit_count": 10, "days_searched": 7}, Timestamp: started},
			},
		},
		Started:  started,
		Finished: started.Add(42 * time.Second),
	}
}

func fixedRenderer(format Format) *Renderer {
	return &Renderer{Format: format, Now: func() time.Time { return started }}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"", FormatText, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				var valErr *errors.ValidationError
				assert.ErrorAs(t, err, &valErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_HuntJSONGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedRenderer(FormatJSON).Render(&buf, fixtureReport()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "hunt_report", buf.Bytes())
}

func TestRender_HuntYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedRenderer(FormatYAML).Render(&buf, fixtureReport()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "6f1c2b7e-5d4a-4c3b-9a21-0f8e7d6c5b4a", decoded["hunt_id"])

	outcome, ok := decoded["outcome"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boundary_found", outcome["kind"])
	assert.Equal(t, "r7", outcome["first_bad"])
	assert.Contains(t, buf.String(), "lookback: 168h0m0s")
}

func TestRender_HuntText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedRenderer(FormatText).Render(&buf, fixtureReport()))
	out := buf.String()

	for _, want := range []string{
		"White Rabbit",
		"branch main",
		"7 days, 10 revisions",
		"boundary found: marker present at r6, missing from r7",
		"change 6",
		"3 days ago",
		"2 days ago",
		"3 (3 probes)",
		"boundary confirmed by re-probing both revisions",
		"restored branch main",
		"commit_count=10 days_searched=7",
		"2/2 passed (100.0%) in 42.00s",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "expanded from")
}

func TestRender_HuntTextExpandedAndFailed(t *testing.T) {
	rep := fixtureReport()
	rep.Expansion.InitialLookback = day
	rep.Expansion.Expanded = true
	rep.LastGood = nil
	rep.Restore = guard.RestoreResult{Success: false, Message: "could not restore branch main"}
	rep.Summary.Failed = 1
	rep.Summary.Passed = 1

	var buf bytes.Buffer
	require.NoError(t, fixedRenderer(FormatText).Render(&buf, &rep))
	out := buf.String()

	assert.Contains(t, out, "expanded from 1 day")
	assert.Contains(t, out, "could not restore branch main")
	assert.Contains(t, out, "r6")
	assert.Contains(t, out, "1/2 passed")
}

func TestRender_Exploration(t *testing.T) {
	x := hunt.Exploration{
		Reference: guard.Reference{Kind: guard.KindBranch, Name: "main"},
		Offset:    2,
		Commit:    git.Commit{Hash: "abcdef0123456789", Author: "Whiterabbit Test", Time: started.Add(-5 * time.Hour), Subject: "change 7"},
		Reloaded:  true,
	}

	var buf bytes.Buffer
	require.NoError(t, fixedRenderer(FormatText).Render(&buf, x))
	out := buf.String()

	assert.Contains(t, out, "2 commits back")
	assert.Contains(t, out, "abcdef0")
	assert.Contains(t, out, "5 hours ago")
	assert.Contains(t, out, "entry file touched")
	assert.Contains(t, out, "whiterabbit restore")
}

func TestRender_Check(t *testing.T) {
	rep := CheckReport{
		Environment: "DEV",
		BaseURL:     "http://localhost:5001",
		Checks: []health.Check{
			{Name: "server_health", URL: "http://localhost:5001/", StatusCode: 200, Success: true, Elapsed: 12 * time.Millisecond},
			{Name: "api_health_profiles", URL: "http://localhost:5001/profiles", Error: "unexpected status 404"},
		},
		Summary: results.Summary{TotalTests: 2, Passed: 1, Failed: 1, SuccessRate: "50.0%", Duration: "0.10s"},
	}

	var buf bytes.Buffer
	require.NoError(t, fixedRenderer(FormatText).Render(&buf, rep))
	out := buf.String()

	assert.Contains(t, out, "Health DEV")
	assert.Contains(t, out, "http://localhost:5001/ 200")
	assert.Contains(t, out, "unexpected status 404")
	assert.Contains(t, out, "1/2 passed (50.0%)")
}

func TestRender_Restore(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedRenderer(FormatText).Render(&buf, guard.RestoreResult{Success: true, Message: "restored branch main"}))
	assert.Equal(t, "✓ restored branch main", strings.TrimSpace(buf.String()))
}

func TestRender_JSONAnyValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedRenderer(FormatJSON).Render(&buf, guard.RestoreResult{Success: true, Message: "restored branch main"}))
	assert.JSONEq(t, `{"success": true, "message": "restored branch main"}`, buf.String())
}
