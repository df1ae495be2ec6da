// Package command gates and runs the narrow set of local commands the
// appliance accepts from remote callers. Authorization is a flat
// allow-list of full-match patterns; the shell lexer that follows it is a
// convenience, not a security boundary.
package command

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/shlex"
)

// ErrForbidden means the command did not match any whitelist pattern.
var ErrForbidden = errors.New("command not allowed")

// The whitelist. Patterns are fixed at process start, matched in order,
// and any match admits. mpc transport and bounded volume commands, plus
// the parameterized "play station N in bank M" entry point.
var allowedPatterns = []string{
	`^mpc\s+(play|pause|stop|next|prev|volume\s+\d{1,3})$`,
	`^radio-play\s+\d+\s+\d+$`,
}

// shutdownPattern is only compiled in when the deployment opts into
// remote shutdown.
const shutdownPattern = `^sudo\s+shutdown\s+-h\s+now$`

// radioPlayName is the logical command name that gets rewritten to the
// configured executable, so the whitelisted name can differ from the
// binary path actually invoked.
const radioPlayName = "radio-play"

// Authorizer matches requested command strings against the whitelist and
// rewrites admitted ones into executable argument vectors.
type Authorizer struct {
	patterns     []*regexp.Regexp
	radioPlayCmd string
}

// NewAuthorizer compiles the pattern table once. radioPlayCmd is the
// executable substituted for the logical radio-play command; allowShutdown
// enables the extended variant's shutdown entry.
func NewAuthorizer(radioPlayCmd string, allowShutdown bool) *Authorizer {
	specs := allowedPatterns
	if allowShutdown {
		specs = append(append([]string{}, specs...), shutdownPattern)
	}
	patterns := make([]*regexp.Regexp, len(specs))
	for i, spec := range specs {
		patterns[i] = regexp.MustCompile(spec)
	}
	if radioPlayCmd == "" {
		radioPlayCmd = radioPlayName
	}
	return &Authorizer{patterns: patterns, radioPlayCmd: radioPlayCmd}
}

// IsAllowed reports whether the trimmed command fully matches at least one
// whitelist pattern.
func (a *Authorizer) IsAllowed(command string) bool {
	cmd := strings.TrimSpace(command)
	for _, p := range a.patterns {
		if p.MatchString(cmd) {
			return true
		}
	}
	return false
}

// ToArgv splits the command on shell-lexing rules and substitutes the
// configured executable for the logical radio-play name. Callers must run
// IsAllowed first; ToArgv does not authorize.
func (a *Authorizer) ToArgv(command string) ([]string, error) {
	argv, err := shlex.Split(strings.TrimSpace(command))
	if err != nil {
		return nil, err
	}
	if len(argv) > 0 && argv[0] == radioPlayName {
		argv[0] = a.radioPlayCmd
	}
	return argv, nil
}
