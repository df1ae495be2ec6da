package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Executor is the single path from a requested command string to a running
// subprocess: authorize, lex, substitute, run. Execution is serialized so
// the appliance handles one command at a time regardless of how many
// surfaces (HTTP, MQTT, scheduler) feed it.
type Executor struct {
	mu      sync.Mutex
	auth    *Authorizer
	timeout time.Duration
	log     zerolog.Logger
}

// NewExecutor wraps an authorizer with the ordinary per-command timeout.
func NewExecutor(auth *Authorizer, timeout time.Duration, log zerolog.Logger) *Executor {
	return &Executor{auth: auth, timeout: timeout, log: log}
}

// Authorizer exposes the underlying whitelist, e.g. for validating
// schedule entries before they are armed.
func (e *Executor) Authorizer() *Authorizer {
	return e.auth
}

// Execute runs an authorized command to completion. Authorization always
// happens before lexing or substitution. Returns ErrForbidden for
// commands outside the whitelist.
func (e *Executor) Execute(ctx context.Context, command string) (Result, error) {
	if !e.auth.IsAllowed(command) {
		return Result{}, fmt.Errorf("%w: %s", ErrForbidden, command)
	}
	argv, err := e.auth.ToArgv(command)
	if err != nil {
		return Result{}, fmt.Errorf("failed to lex command: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Debug().Strs("argv", argv).Msg("executing command")
	result, err := Run(ctx, argv, e.timeout, "")
	if err != nil {
		e.log.Warn().Str("command", command).Err(err).Msg("command did not run")
		return result, err
	}
	if result.ExitCode != 0 {
		e.log.Warn().Str("command", command).Int("exit_code", result.ExitCode).Msg("command failed")
	}
	return result, nil
}
