package command

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteForbidden(t *testing.T) {
	exec := NewExecutor(NewAuthorizer("", false), time.Second, zerolog.Nop())
	_, err := exec.Execute(context.Background(), "rm -rf /")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestExecuteAuthorizesBeforeRunning(t *testing.T) {
	// The whitelisted radio-play command resolves to a harmless echo so the
	// full authorize-lex-substitute-run path is exercised.
	exec := NewExecutor(NewAuthorizer("echo", false), 5*time.Second, zerolog.Nop())
	res, err := exec.Execute(context.Background(), "radio-play 2 7")
	require.NoError(t, err)
	assert.Equal(t, "2 7\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
}
