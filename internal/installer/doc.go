// Package installer sequences the install pipeline for the bot.
//
// An install run checks host prerequisites, provisions the Python runtime
// environment, captures secrets, writes the launch script, renders the
// systemd unit, installs it, and confirms the service came up. Stages run in
// that order on a single goroutine and the first fatal failure stops the run.
//
// Every stage is idempotent. Existing environments, secret files and launch
// scripts are reused; the unit definition is regenerated on every run so a
// moved install directory or a changed user is always reflected.
//
// Failures are reported as *StageError values whose Kind names the failed
// stage in operator terms, e.g. "SecretValidationFailed: GEMINI_API_KEY".
// A service that was installed but did not report active is a warning, not
// a failure.
package installer
