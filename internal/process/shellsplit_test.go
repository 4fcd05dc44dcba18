package process

import (
	"reflect"
	"testing"
)

func TestShellSplit(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"true", []string{"true"}},
		{"echo hello world", []string{"echo", "hello", "world"}},
		{"echo 'hello world'", []string{"echo", "hello world"}},
		{`echo "hello world"`, []string{"echo", "hello world"}},
		{`echo foo\ bar`, []string{"echo", "foo bar"}},
		{`python -m torch.distributed.launch train.py`, []string{"python", "-m", "torch.distributed.launch", "train.py"}},
	}

	for _, c := range cases {
		got, err := ShellSplit(c.in)
		if err != nil {
			t.Errorf("ShellSplit(%q): unexpected error: %v", c.in, err)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ShellSplit(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestShellSplitErrors(t *testing.T) {
	cases := []string{"", "   ", "echo 'unterminated", `echo "unterminated`}
	for _, in := range cases {
		if _, err := ShellSplit(in); err == nil {
			t.Errorf("ShellSplit(%q): expected error, got none", in)
		}
	}
}
