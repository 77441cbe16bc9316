// Package secrets reads, validates and captures the bot credentials kept in
// a single dotenv file. The same file is the unit's EnvironmentFile, so
// secrets reach the bot at process start and never appear in the unit itself.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"botctl/internal/config"
	"botctl/pkg/logging"
)

// SecretSet maps credential names to values.
type SecretSet map[string]string

// Key declares one required credential.
type Key struct {
	Name      string
	Label     string
	Sensitive bool
}

// KeysFromConfig converts the YAML key list.
func KeysFromConfig(cfgs []config.SecretKey) []Key {
	keys := make([]Key, 0, len(cfgs))
	for _, c := range cfgs {
		keys = append(keys, Key{Name: c.Name, Label: c.Label, Sensitive: c.Sensitive})
	}
	return keys
}

// ValidationError names required keys that are absent or empty.
type ValidationError struct {
	Path    string
	Missing []string
	// Reason explains why values could not be collected, if not simply absent.
	Reason string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s is missing required keys: %s", e.Path, strings.Join(e.Missing, ", "))
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// PersistError means captured secrets could not be written. Nothing is left
// at the target path when it is returned.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist secrets to %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Result is the outcome of Ensure.
type Result struct {
	Secrets SecretSet
	// Created is true when the file was absent and has just been written.
	Created bool
}

// Store reads or interactively captures secrets into a single dotenv file.
type Store struct {
	prompter Prompter
	owner    *fileOwner
}

type fileOwner struct{ uid, gid int }

// NewStore creates a Store that uses prompter when the file is absent.
func NewStore(prompter Prompter) *Store {
	return &Store{prompter: prompter}
}

// WithOwner makes newly written files owned by uid/gid. Used when botctl
// runs as root on behalf of another user.
func (s *Store) WithOwner(uid, gid int) *Store {
	s.owner = &fileOwner{uid: uid, gid: gid}
	return s
}

// Ensure returns the secrets at path. An existing file is authoritative and
// is never rewritten; an absent one is captured through the prompter and
// written all-or-nothing with owner-only permissions.
func (s *Store) Ensure(ctx context.Context, path string, keys []Key) (Result, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		set, err := s.validate(path, data, keys)
		if err != nil {
			return Result{}, err
		}
		warnIfReadable(path)
		logging.Info("Secrets", "Using existing secret file %s", path)
		return Result{Secrets: set}, nil
	case !errors.Is(err, fs.ErrNotExist):
		return Result{}, &ValidationError{Path: path, Missing: names(keys), Reason: err.Error()}
	}

	set, err := s.capture(ctx, path, keys)
	if err != nil {
		return Result{}, err
	}

	rendered, err := renderEnvironmentFile(set)
	if err != nil {
		return Result{}, &PersistError{Path: path, Err: err}
	}
	if err := s.writeExclusive(path, []byte(rendered)); err != nil {
		return Result{}, &PersistError{Path: path, Err: err}
	}
	logging.Info("Secrets", "Wrote %d secrets to %s", len(set), path)
	return Result{Secrets: set, Created: true}, nil
}

func (s *Store) validate(path string, data []byte, keys []Key) (SecretSet, error) {
	parsed, err := godotenv.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, &ValidationError{Path: path, Missing: names(keys), Reason: "unparseable: " + err.Error()}
	}
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(parsed[k.Name]) == "" {
			missing = append(missing, k.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Path: path, Missing: missing}
	}
	return SecretSet(parsed), nil
}

func (s *Store) capture(ctx context.Context, path string, keys []Key) (SecretSet, error) {
	if s.prompter == nil || !s.prompter.Interactive() {
		return nil, &ValidationError{
			Path:    path,
			Missing: names(keys),
			Reason:  "file does not exist and no terminal is available to prompt",
		}
	}
	set := make(SecretSet, len(keys))
	for _, k := range keys {
		value, err := s.prompter.Prompt(ctx, k)
		if err != nil {
			return nil, &ValidationError{Path: path, Missing: names(keys), Reason: err.Error()}
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, &ValidationError{Path: path, Missing: []string{k.Name}}
		}
		set[k.Name] = value
	}
	return set, nil
}

// envEscaper escapes the characters systemd unescapes inside a double-quoted
// EnvironmentFile value. godotenv reads the same set back.
var envEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")

// renderEnvironmentFile writes KEY="value" lines, sorted by key, that systemd
// and godotenv both read back verbatim. Values spanning lines, or ending in a
// backslash or quote that godotenv misreads as the closing quote, are rejected.
func renderEnvironmentFile(set SecretSet) (string, error) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := set[k]
		if strings.ContainsAny(v, "\r\n\x00") {
			return "", fmt.Errorf("value of %s contains a line break or NUL and cannot be stored in an environment file", k)
		}
		if strings.HasSuffix(v, `\`) || strings.HasSuffix(v, `"`) {
			return "", fmt.Errorf("value of %s ends with a backslash or quote and cannot be stored in an environment file", k)
		}
		fmt.Fprintf(&b, "%s=\"%s\"\n", k, envEscaper.Replace(v))
	}
	return b.String(), nil
}

// writeExclusive writes data to a temp file beside path and links it into
// place. The link fails if path appeared in the meantime, so an existing
// file is never clobbered.
func (s *Store) writeExclusive(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if s.owner != nil {
		if err := tmp.Chown(s.owner.uid, s.owner.gid); err != nil {
			tmp.Close()
			return err
		}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	linkErr := os.Link(tmpName, path)
	if linkErr == nil {
		return nil
	}
	if errors.Is(linkErr, fs.ErrExist) {
		return fmt.Errorf("%s appeared while secrets were being captured; refusing to overwrite it", path)
	}
	// Filesystems without hard links.
	if _, statErr := os.Lstat(path); statErr == nil {
		return fmt.Errorf("%s appeared while secrets were being captured; refusing to overwrite it", path)
	}
	return os.Rename(tmpName, path)
}

func warnIfReadable(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0077 != 0 {
		logging.Warn("Secrets", "%s is readable by other users (mode %04o); consider 'chmod 600 %s'", path, info.Mode().Perm(), path)
	}
}

func names(keys []Key) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Name)
	}
	return out
}
