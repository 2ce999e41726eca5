package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCommandError_IncludesStderr verifies diagnostics from the backend
// surface in the error text.
func TestCommandError_IncludesStderr(t *testing.T) {
	err := &CommandError{Cmd: "docker stop x", ExitCode: 1, Stderr: "no such container\n"}
	assert.Equal(t, "docker stop x: exit status 1: no such container", err.Error())
}

// TestRun_ExitCode verifies a nonzero exit yields both output and a
// CommandError.
func TestRun_ExitCode(t *testing.T) {
	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo -n hi >&2; exit 3")
	require.Error(t, err)
	var cerr *CommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 3, cerr.ExitCode)
	assert.Equal(t, "hi", out.Stderr)
}

// TestRun_BinaryNotFound verifies lookup failures map to the sentinel.
func TestRun_BinaryNotFound(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-binary-xyz")
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

// TestFake_LongestPrefixWins verifies the most specific registered
// response is chosen.
func TestFake_LongestPrefixWins(t *testing.T) {
	fake := NewFake()
	fake.Respond("docker", FakeResponse{Stdout: "generic"})
	fake.Respond("docker inspect", FakeResponse{Stdout: "specific"})

	out, err := fake.Run(context.Background(), "docker", "inspect", "x")
	require.NoError(t, err)
	assert.Equal(t, "specific", out.Stdout)

	out, err = fake.Run(context.Background(), "docker", "ps")
	require.NoError(t, err)
	assert.Equal(t, "generic", out.Stdout)
}

// TestFake_Error verifies scripted hard failures propagate.
func TestFake_Error(t *testing.T) {
	fake := NewFake()
	fake.Respond("docker info", FakeResponse{Err: errors.New("daemon down")})
	_, err := fake.Run(context.Background(), "docker", "info")
	assert.EqualError(t, err, "daemon down")
}
