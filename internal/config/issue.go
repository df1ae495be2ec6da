package config

import "fmt"

// Issue is a single validation problem: where it was found and what is
// wrong. Validators accumulate issues instead of failing fast so a user
// sees every problem in one pass.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Issues is an ordered list of validation problems, in the order the
// fields were checked.
type Issues []Issue

// Strings renders every issue for logging or CLI output.
func (is Issues) Strings() []string {
	out := make([]string, len(is))
	for idx, i := range is {
		out[idx] = i.String()
	}
	return out
}

func (is *Issues) addf(path, format string, args ...any) {
	*is = append(*is, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}
