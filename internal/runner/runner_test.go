package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_DryRunPrintsInsteadOfRunning(t *testing.T) {
	var stderr, stdout bytes.Buffer
	e := &Exec{DryRun: true, Stdout: &stdout, Stderr: &stderr}

	err := e.Run(context.Background(), "docker", "container", "prune", "-f")
	require.NoError(t, err)

	out, err := e.Output(context.Background(), "docker", "system", "df")
	require.NoError(t, err)
	assert.Empty(t, out)

	assert.Equal(t, "+ docker container prune -f\n+ docker system df\n", stderr.String())
	assert.Empty(t, stdout.String())
}

func TestExec_ExitCodeIsPropagated(t *testing.T) {
	var stderr bytes.Buffer
	e := &Exec{Stderr: &stderr}

	err := e.Run(context.Background(), "sh", "-c", "exit 3")
	require.Error(t, err)

	var ee *ExitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 3, ee.Code)
	assert.Equal(t, "sh -c exit 3", ee.Command)
	assert.Equal(t, 3, ExitCode(err))
}

func TestExec_RunIOPipesStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	e := &Exec{Stderr: &stderr}

	err := e.RunIO(context.Background(), strings.NewReader("hello\n"), &stdout, "cat")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", stdout.String())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 42, ExitCode(&ExitError{Command: "x", Code: 42}))
	assert.Equal(t, 7, ExitCode(errors.Join(errors.New("a"), &ExitError{Command: "y", Code: 7})))
}
