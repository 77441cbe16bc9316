package reporting

import (
	"fmt"
	"time"
)

// Outcome is how a stage finished.
type Outcome string

const (
	OutcomeChecked   Outcome = "checked"
	OutcomeCreated   Outcome = "created"
	OutcomeReused    Outcome = "reused"
	OutcomeUpdated   Outcome = "updated"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeInstalled Outcome = "installed"
	OutcomeWarning   Outcome = "warning"
	OutcomeFailed    Outcome = "failed"
	// OutcomeStarted marks the beginning of a stage; it never appears in a report.
	OutcomeStarted Outcome = "started"
)

// String makes Outcome satisfy the fmt.Stringer interface.
func (o Outcome) String() string {
	return string(o)
}

// LogLevel defines the severity of an update.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// StageUpdate carries progress from the install pipeline to a reporter.
type StageUpdate struct {
	Timestamp time.Time
	// RunID correlates all updates from one install run.
	RunID   string
	Stage   string
	Outcome Outcome
	Level   LogLevel
	// Message is a short human-readable status.
	Message string
	// Detail holds supporting output, e.g. a tool's diagnostic. May be multi-line.
	Detail string
	Err    error
}

// String provides a simple string representation for debugging the update itself.
func (u StageUpdate) String() string {
	return fmt.Sprintf("Update(TS: %s, Run: %s, Stage: %s, Outcome: %s, Level: %s, Msg: '%s', Err: %v)",
		u.Timestamp.Format(time.RFC3339), u.RunID, u.Stage, u.Outcome, u.Level, u.Message, u.Err)
}

// Reporter receives stage updates. The install pipeline is sequential, but
// implementations should still be goroutine-safe.
type Reporter interface {
	Report(update StageUpdate)
}
