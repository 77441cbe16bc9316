package systemd

import (
	"strings"

	sdunit "github.com/coreos/go-systemd/v22/unit"
)

// ServiceState is the live state of the bot's unit as reported by systemd.
// It is always queried, never cached.
type ServiceState string

const (
	StateNotInstalled      ServiceState = "not-installed"
	StateInstalledInactive ServiceState = "installed-inactive"
	StateInstalledActive   ServiceState = "installed-active"
	StateInstalledFailed   ServiceState = "installed-failed"
)

// Active reports whether the service is running.
func (s ServiceState) Active() bool {
	return s == StateInstalledActive
}

// Properties are the unit properties botctl reads via `systemctl show`.
type Properties struct {
	LoadState   string `json:"loadState" yaml:"loadState"`
	ActiveState string `json:"activeState" yaml:"activeState"`
	SubState    string `json:"subState,omitempty" yaml:"subState,omitempty"`
}

// parseShow reads the KEY=value lines printed by `systemctl show`. They use
// unit file syntax without a section header, so one is supplied.
func parseShow(out string) (Properties, error) {
	opts, err := sdunit.Deserialize(strings.NewReader("[Show]\n" + out))
	if err != nil {
		return Properties{}, err
	}
	var p Properties
	for _, o := range opts {
		switch o.Name {
		case "LoadState":
			p.LoadState = o.Value
		case "ActiveState":
			p.ActiveState = o.Value
		case "SubState":
			p.SubState = o.Value
		}
	}
	return p, nil
}

// stateOf maps systemd's load and active states onto ServiceState.
// Transitional states (activating, deactivating, reloading) count as inactive.
func stateOf(p Properties) ServiceState {
	switch p.LoadState {
	case "", "not-found":
		return StateNotInstalled
	}
	switch p.ActiveState {
	case "active":
		return StateInstalledActive
	case "failed":
		return StateInstalledFailed
	default:
		return StateInstalledInactive
	}
}

// State maps the properties onto a ServiceState.
func (p Properties) State() ServiceState {
	return stateOf(p)
}
