package unit

import (
	"io"
	"strconv"
	"strings"

	sdunit "github.com/coreos/go-systemd/v22/unit"
)

// Options returns d as ordered unit file options.
func (d Definition) Options() []*sdunit.UnitOption {
	return []*sdunit.UnitOption{
		sdunit.NewUnitOption("Unit", "Description", escapeSpecifiers(d.Description)),
		sdunit.NewUnitOption("Unit", "After", d.After),
		sdunit.NewUnitOption("Service", "Type", "simple"),
		sdunit.NewUnitOption("Service", "User", escapeSpecifiers(d.User)),
		sdunit.NewUnitOption("Service", "WorkingDirectory", escapeSpecifiers(d.WorkingDirectory)),
		sdunit.NewUnitOption("Service", "EnvironmentFile", escapeSpecifiers(d.EnvironmentFile)),
		sdunit.NewUnitOption("Service", "ExecStart", execQuote(escapeSpecifiers(d.ExecStart))),
		sdunit.NewUnitOption("Service", "Restart", d.Restart),
		sdunit.NewUnitOption("Service", "RestartSec", strconv.Itoa(d.RestartSec)),
		sdunit.NewUnitOption("Install", "WantedBy", d.WantedBy),
	}
}

// Render produces the unit file text for d.
func Render(d Definition) (string, error) {
	data, err := io.ReadAll(sdunit.Serialize(d.Options()))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// BuildAndRender is Build followed by Render.
func BuildAndRender(f Facts) (Definition, string, error) {
	d, err := Build(f)
	if err != nil {
		return Definition{}, "", err
	}
	text, err := Render(d)
	if err != nil {
		return Definition{}, "", err
	}
	return d, text, nil
}

// escapeSpecifiers doubles '%' so systemd does not expand it as a specifier.
func escapeSpecifiers(v string) string {
	return strings.ReplaceAll(v, "%", "%%")
}

// execQuote quotes an ExecStart path containing whitespace or quotes using
// systemd's double-quote syntax.
func execQuote(path string) string {
	if !strings.ContainsAny(path, " \t\"\\") {
		return path
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(path) + `"`
}
