package reporting

import (
	"time"

	"botctl/pkg/logging"
)

// ConsoleReporter logs updates through pkg/logging.
type ConsoleReporter struct{}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// Report logs the update at a level matching its outcome.
func (c *ConsoleReporter) Report(update StageUpdate) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	subsystem := "Installer"
	if update.Stage != "" {
		subsystem = "Installer-" + update.Stage
	}

	msg := update.Message
	if msg == "" {
		msg = string(update.Outcome)
	}

	level := update.Level
	if level == "" {
		level = levelFor(update)
	}

	switch level {
	case LogLevelError:
		logging.Error(subsystem, update.Err, "%s", msg)
	case LogLevelWarn:
		logging.Warn(subsystem, "%s", msg)
	case LogLevelDebug:
		logging.Debug(subsystem, "%s", msg)
	default:
		logging.Info(subsystem, "%s", msg)
	}
	if update.Detail != "" {
		logging.Debug(subsystem, "%s", update.Detail)
	}
}

func levelFor(update StageUpdate) LogLevel {
	switch {
	case update.Err != nil, update.Outcome == OutcomeFailed:
		return LogLevelError
	case update.Outcome == OutcomeWarning:
		return LogLevelWarn
	case update.Outcome == OutcomeStarted:
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}
