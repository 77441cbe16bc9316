package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"botctl/internal/systemd"
)

// OutputFormat represents the output format for CLI commands
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a user supplied --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputFormatTable:
		return OutputFormatTable, nil
	case OutputFormatJSON, OutputFormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (use table, json or yaml)", s)
	}
}

// StatusView is what `botctl status` shows.
type StatusView struct {
	Service            string               `json:"service" yaml:"service"`
	UnitPath           string               `json:"unitPath" yaml:"unitPath"`
	State              systemd.ServiceState `json:"state" yaml:"state"`
	systemd.Properties `yaml:",inline"`
}

// WriteStatus renders a status view in the requested format.
func WriteStatus(w io.Writer, format OutputFormat, v StatusView) error {
	switch format {
	case OutputFormatJSON:
		return writeJSON(w, v)
	case OutputFormatYAML:
		return writeYAML(w, v)
	case OutputFormatTable, "":
		t := newTable(w)
		t.AppendHeader(table.Row{
			text.FgHiCyan.Sprint("PROPERTY"),
			text.FgHiCyan.Sprint("VALUE"),
		})
		t.AppendRow(table.Row{text.FgYellow.Sprint("service"), v.Service})
		t.AppendRow(table.Row{text.FgYellow.Sprint("state"), formatState(v.State)})
		t.AppendRow(table.Row{text.FgYellow.Sprint("load"), v.LoadState})
		active := v.ActiveState
		if v.SubState != "" {
			active += " (" + v.SubState + ")"
		}
		t.AppendRow(table.Row{text.FgYellow.Sprint("active"), active})
		t.AppendRow(table.Row{text.FgYellow.Sprint("unit file"), v.UnitPath})
		t.Render()
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// formatState formats a service state with an icon.
func formatState(state systemd.ServiceState) string {
	switch state {
	case systemd.StateInstalledActive:
		return text.FgGreen.Sprint("🟢 " + string(state))
	case systemd.StateInstalledFailed:
		return text.FgRed.Sprint("🔴 " + string(state))
	case systemd.StateInstalledInactive:
		return text.FgYellow.Sprint("🟡 " + string(state))
	default:
		return text.FgHiBlack.Sprint("⚪ " + string(state))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to convert to YAML: %w", err)
	}
	return enc.Close()
}
