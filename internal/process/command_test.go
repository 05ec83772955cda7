package process

import (
	"errors"
	"slices"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
		wantErr bool
	}{
		{"simple", "echo hello", []string{"echo", "hello"}, false},
		{"double quotes", `sh -c "echo hi"`, []string{"sh", "-c", "echo hi"}, false},
		{"single quotes", `sh -c 'exit 42'`, []string{"sh", "-c", "exit 42"}, false},
		{"escape", `echo hello\ world`, []string{"echo", "hello world"}, false},
		{"nested quote", `echo "it's"`, []string{"echo", "it's"}, false},
		{"backslash literal in single quotes", `printf 'a\tb'`, []string{"printf", `a\tb`}, false},
		{"escaped double quote", `echo "say \"hi\""`, []string{"echo", `say "hi"`}, false},
		{"adjacent quoting joins", `echo a'b c'"d"`, []string{"echo", "ab cd"}, false},
		{"trailing comment", "worker --flag # restart me", []string{"worker", "--flag"}, false},
		{"extra whitespace", "  ls \t -l  ", []string{"ls", "-l"}, false},
		{"unclosed quote", `echo "unclosed`, nil, true},
		{"unclosed single quote", `echo 'unclosed`, nil, true},
		{"dangling escape", `echo \`, nil, true},
		{"empty", "   ", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.command)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCommand(%q) error = %v, wantErr %v", tt.command, err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseCommand(%q) = %q, want %q", tt.command, got, tt.want)
			}
		})
	}
}

func TestParseCommandEmpty(t *testing.T) {
	if _, err := ParseCommand(""); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("expected ErrEmptyCommand, got %v", err)
	}
}
