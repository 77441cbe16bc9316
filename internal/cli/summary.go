package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"botctl/internal/color"
	"botctl/internal/installer"
	"botctl/internal/reporting"
)

// WriteReport renders the result of an install run. runErr is the error
// returned by the orchestrator, if any.
func WriteReport(w io.Writer, format OutputFormat, r *installer.Report, runErr error) error {
	switch format {
	case OutputFormatJSON, OutputFormatYAML:
		doc := reportDoc{}
		if r != nil {
			doc.Report = *r
		}
		if se, ok := installer.AsStageError(runErr); ok {
			doc.Error = se
		} else if runErr != nil {
			doc.Error = &installer.StageError{Kind: "Interrupted", Subject: runErr.Error()}
		}
		if format == OutputFormatJSON {
			return writeJSON(w, doc)
		}
		return writeYAML(w, doc)
	case OutputFormatTable, "":
		writeSummary(w, r, runErr)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

type reportDoc struct {
	installer.Report `yaml:",inline"`
	Error            *installer.StageError `json:"error,omitempty" yaml:"error,omitempty"`
}

func writeSummary(w io.Writer, r *installer.Report, runErr error) {
	if r == nil {
		r = &installer.Report{}
	}

	t := newTable(w)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("STAGE"),
		text.FgHiCyan.Sprint("OUTCOME"),
		text.FgHiCyan.Sprint("DETAIL"),
	})
	for _, s := range r.Stages {
		t.AppendRow(table.Row{s.Stage, color.ForState(string(s.Outcome)).Render(string(s.Outcome)), s.Detail})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 72}})
	t.Render()

	if r.FinalState != "" {
		fmt.Fprintf(w, "%s %s\n", color.KeyStyle.Render("Service state:"), color.ForState(string(r.FinalState)).Render(string(r.FinalState)))
	}

	for _, warn := range r.Warnings {
		fmt.Fprintln(w, color.WarningStyle.Render("Warning: "+warn.Error()))
		writeDetail(w, warn)
	}

	switch se, ok := installer.AsStageError(runErr); {
	case ok:
		fmt.Fprintln(w, color.ErrorStyle.Render("Failed: "+se.Error()))
		writeDetail(w, se)
	case runErr != nil:
		fmt.Fprintln(w, color.ErrorStyle.Render("Interrupted: "+runErr.Error()))
	case r.RunID != "":
		fmt.Fprintln(w, color.SuccessStyle.Render(successLine(r)))
	}
}

func successLine(r *installer.Report) string {
	if outcome, ok := r.Outcome(installer.StageService); ok && outcome == reporting.OutcomeSkipped {
		return "Environment prepared; service installation skipped."
	}
	if len(r.Warnings) > 0 {
		return "Installed with warnings."
	}
	return "Installed."
}

func writeDetail(w io.Writer, se *installer.StageError) {
	if d := strings.TrimSpace(se.Diagnostic); d != "" {
		for _, line := range strings.Split(d, "\n") {
			fmt.Fprintln(w, color.MutedStyle.Render("  "+line))
		}
	}
	for _, hint := range se.Remediation {
		fmt.Fprintln(w, color.HintStyle.Render("  → "+hint))
	}
}
