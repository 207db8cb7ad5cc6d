package repl

import (
	"reflect"
	"testing"
)

func TestCompleter_Complete(t *testing.T) {
	c := NewCompleter("status", "login", "logout", "config show", "config path")

	tests := []struct {
		prefix string
		want   []string
	}{
		{"lo", []string{"login", "logout"}},
		{"config", []string{"config path", "config show"}},
		{"st", []string{"status"}},
		{"x", nil},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			if got := c.Complete(tt.prefix); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestCompleter_Known(t *testing.T) {
	c := NewCompleter("status", "config show")
	for name, want := range map[string]bool{"status": true, "config": true, "stat": false, "show": false} {
		if got := c.Known(name); got != want {
			t.Errorf("Known(%q) = %v, want %v", name, got, want)
		}
	}
}
