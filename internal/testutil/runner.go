// Package testutil holds test doubles shared by botctl's package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"botctl/internal/utils"
)

// Response is what a FakeRunner returns for a matched command.
type Response struct {
	Result utils.Result
	Err    error
	// Do runs before the response is returned, e.g. to create files the
	// real tool would have created.
	Do func(cmd utils.Command)
}

// FakeRunner records every command and answers from a prefix table.
// Unmatched commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	responses []prefixResponse
	Calls     []utils.Command
}

type prefixResponse struct {
	prefix   string
	response Response
}

// On registers a response for any command whose rendered line starts with prefix.
// Later registrations take precedence.
func (f *FakeRunner) On(prefix string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append([]prefixResponse{{prefix: prefix, response: resp}}, f.responses...)
	return f
}

// Fail registers a failing response with the given stderr.
func (f *FakeRunner) Fail(prefix, stderr string) *FakeRunner {
	return f.On(prefix, Response{
		Result: utils.Result{Stderr: stderr, ExitCode: 1},
		Err:    fmt.Errorf("'%s' exited with status 1. Stderr: %s", prefix, stderr),
	})
}

// Run implements utils.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd utils.Command) (utils.Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	var matched *Response
	line := cmd.String()
	for i := range f.responses {
		if strings.HasPrefix(line, f.responses[i].prefix) {
			matched = &f.responses[i].response
			break
		}
	}
	f.mu.Unlock()

	if matched == nil {
		return utils.Result{}, nil
	}
	if matched.Do != nil {
		matched.Do(cmd)
	}
	return matched.Result, matched.Err
}

// Lines returns the rendered command lines in call order.
func (f *FakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, c.String())
	}
	return lines
}

// Called reports whether any recorded command line starts with prefix.
func (f *FakeRunner) Called(prefix string) bool {
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
