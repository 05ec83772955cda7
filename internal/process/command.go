package process

import (
	"errors"
	"fmt"

	"github.com/google/shlex"
)

// ErrEmptyCommand is returned for a command line with no words.
var ErrEmptyCommand = errors.New("empty command")

// ParseCommand splits a respawn command line into arguments using POSIX
// shell quoting: single quotes are literal, double quotes and bare words
// honour backslash escapes, and a word starting with # begins a comment.
func ParseCommand(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	return args, nil
}
