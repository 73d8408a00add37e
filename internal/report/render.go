// Package report renders hunt results for the terminal (text) and for
// machines (JSON, YAML), and prints progress while a hunt runs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git"
	"github.com/Iron-Ham/whiterabbit/internal/guard"
	"github.com/Iron-Ham/whiterabbit/internal/health"
	"github.com/Iron-Ham/whiterabbit/internal/hunt"
	"github.com/Iron-Ham/whiterabbit/internal/results"
	"github.com/Iron-Ham/whiterabbit/internal/tui/styles"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", errors.NewValidationError("must be one of: text, json, yaml").WithField("format").WithValue(s)
	}
}

// CheckReport is the result of the check command.
type CheckReport struct {
	Environment string          `json:"environment" yaml:"environment"`
	BaseURL     string          `json:"base_url" yaml:"base_url"`
	Checks      []health.Check  `json:"checks" yaml:"checks"`
	Summary     results.Summary `json:"summary" yaml:"summary"`
}

// Renderer writes reports in one format.
type Renderer struct {
	Format Format
	// Now anchors relative commit ages; time.Now when nil.
	Now func() time.Time
}

// New creates a Renderer.
func New(format Format) *Renderer {
	return &Renderer{Format: format, Now: time.Now}
}

// Render writes v. JSON and YAML accept any value; text understands
// hunt.Report, hunt.Exploration, guard.RestoreResult, CheckReport and
// results.Summary.
func (r *Renderer) Render(w io.Writer, v any) error {
	switch r.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	var sb strings.Builder
	switch v := v.(type) {
	case hunt.Report:
		r.hunt(&sb, v)
	case *hunt.Report:
		r.hunt(&sb, *v)
	case hunt.Exploration:
		r.exploration(&sb, v)
	case guard.RestoreResult:
		restore(&sb, v)
	case CheckReport:
		r.check(&sb, v)
	case results.Summary:
		summary(&sb, v)
	default:
		fmt.Fprintf(&sb, "%v\n", v)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func row(sb *strings.Builder, label, value string) {
	sb.WriteString(styles.Label.Render(label))
	sb.WriteString(value)
	sb.WriteString("\n")
}

func (r *Renderer) hunt(sb *strings.Builder, rep hunt.Report) {
	sb.WriteString(styles.Title.Render("White Rabbit"))
	sb.WriteString(" ")
	sb.WriteString(styles.Subtitle.Render("hunt " + rep.HuntID))
	sb.WriteString("\n\n")

	if rep.Reference.Name != "" {
		row(sb, "Reference", rep.Reference.String())
	}
	exp := rep.Expansion
	searched := fmt.Sprintf("%s, %d revisions", errors.FormatDays(exp.FinalLookback), exp.Revisions)
	if exp.Expanded {
		searched += fmt.Sprintf(" (expanded from %s)", errors.FormatDays(exp.InitialLookback))
	}
	row(sb, "Searched", searched)

	out := rep.Outcome
	kind := string(out.Kind)
	verdict := styles.KindIcon(kind) + " " + out.Message
	sb.WriteString("\n")
	sb.WriteString(styles.Box.BorderForeground(styles.KindColor(kind)).Render(verdict))
	sb.WriteString("\n\n")

	if rep.LastGood != nil {
		row(sb, "Last good", r.commit(*rep.LastGood))
	} else if out.LastGood != "" {
		row(sb, "Last good", styles.Hash.Render(errors.ShortHash(out.LastGood)))
	}
	if rep.FirstBad != nil {
		row(sb, "First bad", r.commit(*rep.FirstBad))
	} else if out.FirstBad != "" {
		row(sb, "First bad", styles.Hash.Render(errors.ShortHash(out.FirstBad)))
	}
	if out.Iterations > 0 {
		row(sb, "Iterations", fmt.Sprintf("%d (%d probes)", out.Iterations, out.Probes))
	}

	if len(out.Notes) > 0 {
		sb.WriteString(styles.Label.Render("Notes"))
		sb.WriteString("\n")
		for _, note := range out.Notes {
			sb.WriteString("  - ")
			sb.WriteString(styles.Warning.Render(note))
			sb.WriteString("\n")
		}
	}

	if rep.Restore.Message != "" {
		msg := styles.Secondary.Render(rep.Restore.Message)
		if !rep.Restore.Success {
			msg = styles.WarningMsg.Render(rep.Restore.Message)
		}
		row(sb, "Restore", msg)
	}

	sb.WriteString("\n")
	summary(sb, rep.Summary)
}

func (r *Renderer) commit(c git.Commit) string {
	return fmt.Sprintf("%s %s %s",
		styles.Hash.Render(c.Short()),
		c.Subject,
		styles.Muted.Render(fmt.Sprintf("(%s, %s)", c.Author, humanize.RelTime(c.Time, r.now(), "ago", "from now"))),
	)
}

func (r *Renderer) exploration(sb *strings.Builder, x hunt.Exploration) {
	row(sb, "From", x.Reference.String())
	row(sb, "Checked out", fmt.Sprintf("%d commits back", x.Offset))
	row(sb, "Commit", r.commit(x.Commit))
	switch {
	case x.Reloaded:
		row(sb, "Reload", styles.Secondary.Render("entry file touched"))
	case x.ReloadError != "":
		row(sb, "Reload", styles.ErrorMsg.Render(x.ReloadError))
	}
	sb.WriteString(styles.Muted.Render("run `whiterabbit restore` to return to the default branch"))
	sb.WriteString("\n")
}

func restore(sb *strings.Builder, res guard.RestoreResult) {
	if res.Success {
		sb.WriteString(styles.SuccessMsg.Render("✓ " + res.Message))
	} else {
		sb.WriteString(styles.WarningMsg.Render("! " + res.Message))
	}
	sb.WriteString("\n")
}

func (r *Renderer) check(sb *strings.Builder, rep CheckReport) {
	sb.WriteString(styles.Title.Render("Health " + rep.Environment))
	sb.WriteString(" ")
	sb.WriteString(styles.Subtitle.Render(rep.BaseURL))
	sb.WriteString("\n\n")
	for _, c := range rep.Checks {
		status := fmt.Sprintf("%d", c.StatusCode)
		if c.Error != "" {
			status = c.Error
		}
		line := fmt.Sprintf("%s %s %s", c.URL, status, styles.Muted.Render(c.Elapsed.Round(time.Millisecond).String()))
		row(sb, c.Name, line)
	}
	sb.WriteString("\n")
	summary(sb, rep.Summary)
}

func summary(sb *strings.Builder, s results.Summary) {
	for _, res := range s.Results {
		if res.Success {
			sb.WriteString(styles.Secondary.Render("✓ "))
		} else {
			sb.WriteString(styles.Error.Render("✗ "))
		}
		sb.WriteString(res.Name)
		if len(res.Details) > 0 {
			sb.WriteString(" ")
			sb.WriteString(styles.Muted.Render(details(res.Details)))
		}
		sb.WriteString("\n")
	}

	line := fmt.Sprintf("%d/%d passed (%s) in %s", s.Passed, s.TotalTests, s.SuccessRate, s.Duration)
	if s.OK() {
		sb.WriteString(styles.SuccessMsg.Render(line))
	} else {
		sb.WriteString(styles.ErrorMsg.Render(line))
	}
	sb.WriteString("\n")
}

// details renders a result's details as sorted key=value pairs.
func details(d map[string]any) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprint(d[k])
		if len(v) == 40 {
			v = errors.ShortHash(v)
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}
