package runner

import (
	"context"
	"strings"
	"sync"
)

// FakeResponse is a canned result for one command pattern.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Fake is a scriptable Runner for tests. Responses are matched by the
// longest registered prefix of the full command line; unmatched commands
// succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	calls     []string
}

var _ Runner = (*Fake)(nil)

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{responses: map[string]FakeResponse{}}
}

// Respond registers a canned response for command lines starting with prefix.
func (f *Fake) Respond(prefix string, resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = resp
}

// Calls returns the recorded command lines in invocation order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many recorded command lines start with prefix.
func (f *Fake) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *Fake) lookup(line string) (FakeResponse, bool) {
	var best string
	var resp FakeResponse
	found := false
	for prefix, r := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) >= len(best) {
			best, resp, found = prefix, r, true
		}
	}
	return resp, found
}

func (f *Fake) record(name string, args []string) string {
	line := name
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	f.mu.Lock()
	f.calls = append(f.calls, line)
	f.mu.Unlock()
	return line
}

func (f *Fake) Run(_ context.Context, name string, args ...string) (*Output, error) {
	line := f.record(name, args)
	f.mu.Lock()
	resp, ok := f.lookup(line)
	f.mu.Unlock()
	if !ok {
		return &Output{}, nil
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	out := &Output{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	if resp.ExitCode != 0 {
		return out, &CommandError{Cmd: line, ExitCode: resp.ExitCode, Stderr: resp.Stderr}
	}
	return out, nil
}

func (f *Fake) RunInteractive(ctx context.Context, name string, args ...string) error {
	_, err := f.Run(ctx, name, args...)
	return err
}

func (f *Fake) StartDetached(name string, _ string, args ...string) (int, error) {
	line := f.record(name, args)
	f.mu.Lock()
	resp, ok := f.lookup(line)
	f.mu.Unlock()
	if ok && resp.Err != nil {
		return 0, resp.Err
	}
	return 4242, nil
}
