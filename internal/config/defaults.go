package config

import "strings"

// DefaultPython is the interpreter used when runtime.python is unset.
const DefaultPython = "python3"

// PythonInterpreter in a prerequisite's binary or check command stands for
// the configured runtime.python.
const PythonInterpreter = "${python}"

// Required secret keys consumed by the bot at process start.
const (
	TelegramTokenKey = "TELEGRAM_BOT_TOKEN"
	GeminiAPIKey     = "GEMINI_API_KEY"
)

// GetDefaultConfig returns the built-in configuration. It matches the layout
// of the bot repository: src/telegram_bot.py loading .env from the install root.
func GetDefaultConfig() BotctlConfig {
	verify := true
	settle := DefaultSettleDelay
	return BotctlConfig{
		Runtime: RuntimeConfig{
			Python:           DefaultPython,
			VenvDir:          "venv",
			RequirementsFile: "requirements.txt",
			Packages:         []string{"python-telegram-bot", "google-generativeai", "python-dotenv"},
		},
		Secrets: SecretsConfig{
			File: ".env",
			Keys: []SecretKey{
				{Name: TelegramTokenKey, Label: "Telegram bot token", Sensitive: true},
				{Name: GeminiAPIKey, Label: "Gemini API key", Sensitive: true},
			},
		},
		Launcher: LauncherConfig{
			Script:     "start.sh",
			EntryPoint: "src/telegram_bot.py",
		},
		Service: ServiceConfig{
			Name:        "ai-sysadmin-bot",
			Description: "AI sysadmin Telegram bot",
			UnitDir:     "/etc/systemd/system",
			RestartSec:  10,
			WantedBy:    "multi-user.target",
			Sudo:        SudoAuto,
			Verify:      &verify,
			SettleDelay: &settle,
			Systemctl:   "systemctl",
			Journalctl:  "journalctl",
		},
		Prerequisites: DefaultPrerequisites(),
	}
}

// DefaultPrerequisites lists the host tools an install cannot proceed without.
func DefaultPrerequisites() []PrerequisiteConfig {
	return []PrerequisiteConfig{
		{
			Name:   "python3",
			Binary: PythonInterpreter,
			Hint:   "install the Python 3 interpreter (e.g. 'apt install python3')",
		},
		{
			Name:   "pip",
			Binary: "pip3",
			Hint:   "install the Python package installer (e.g. 'apt install python3-pip')",
		},
		{
			Name:   "venv",
			Binary: PythonInterpreter,
			// Debian splits ensurepip out of the stdlib, so venv alone imports fine.
			Check: []string{PythonInterpreter, "-c", "import venv, ensurepip"},
			Hint:  "install the Python venv module (e.g. 'apt install python3-venv')",
		},
		{
			Name:   "systemctl",
			Binary: "systemctl",
			Hint:   "botctl installs a systemd unit; run it on a systemd-based host",
		},
	}
}

// ResolvedPrerequisites returns the prerequisites with PythonInterpreter
// replaced by the configured interpreter.
func (c BotctlConfig) ResolvedPrerequisites() []PrerequisiteConfig {
	python := c.Runtime.Python
	if python == "" {
		python = DefaultPython
	}
	expand := func(s string) string {
		return strings.ReplaceAll(s, PythonInterpreter, python)
	}

	out := make([]PrerequisiteConfig, 0, len(c.Prerequisites))
	for _, p := range c.Prerequisites {
		p.Binary = expand(p.Binary)
		if len(p.Check) > 0 {
			check := make([]string, len(p.Check))
			for i, arg := range p.Check {
				check[i] = expand(arg)
			}
			p.Check = check
		}
		out = append(out, p)
	}
	return out
}
