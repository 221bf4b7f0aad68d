package errdefs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "none"},
		{"plain", errors.New("boom"), "unknown"},
		{"direct", ErrPathResolution, "path_resolution"},
		{"wrapped", fmt.Errorf("probe %s: %w", "http://x", ErrRemoteProbe), "remote_probe"},
		{"double wrapped", fmt.Errorf("outer: %w", fmt.Errorf("%w: disk full", ErrFileSystem)), "filesystem"},
		{"memory", fmt.Errorf("%w: need 10 bytes", ErrInsufficientMemory), "insufficient_memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLabelsCoverEveryKind(t *testing.T) {
	labels := Labels()
	if len(labels) != len(kinds)+1 {
		t.Fatalf("Labels() returned %d labels, want %d", len(labels), len(kinds)+1)
	}
	if labels[len(labels)-1] != "unknown" {
		t.Errorf("last label = %q, want unknown", labels[len(labels)-1])
	}
}
