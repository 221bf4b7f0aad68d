package memory

import (
	"errors"
	"math"
	"runtime/debug"
	"testing"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		original geometry.Size
		targets  []geometry.Size
		want     int64
	}{
		{
			name:     "original only",
			original: geometry.Size{Width: 100, Height: 100},
			want:     50000, // 10000 px * 4 B * 1.25
		},
		{
			name:     "original and two targets",
			original: geometry.Size{Width: 400, Height: 200},
			targets:  []geometry.Size{{Width: 100, Height: 50}, {Width: 200, Height: 100}},
			want:     (80000 + 5000 + 20000) * 5,
		},
		{
			name:     "empty",
			original: geometry.Size{},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.original, tt.targets); got != tt.want {
				t.Errorf("Estimate() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateSaturates(t *testing.T) {
	huge := geometry.Size{Width: math.MaxInt32, Height: math.MaxInt32}
	if got := Estimate(huge, []geometry.Size{huge, huge}); got <= 0 {
		t.Errorf("Estimate() = %d, want a positive saturated value", got)
	}
}

func TestBudgetAdmit(t *testing.T) {
	b := &Budget{limit: 1000, usage: func() uint64 { return 400 }}

	remaining, ok := b.Remaining()
	if !ok || remaining != 600 {
		t.Fatalf("Remaining() = %d, %v, want 600, true", remaining, ok)
	}
	if err := b.Admit(600); err != nil {
		t.Errorf("Admit(600) = %v, want nil", err)
	}
	if err := b.Admit(601); !errors.Is(err, errdefs.ErrInsufficientMemory) {
		t.Errorf("Admit(601) = %v, want ErrInsufficientMemory", err)
	}
}

func TestBudgetOverCommitted(t *testing.T) {
	b := &Budget{limit: 1000, usage: func() uint64 { return 5000 }}

	remaining, ok := b.Remaining()
	if !ok || remaining != 0 {
		t.Errorf("Remaining() = %d, %v, want 0, true", remaining, ok)
	}
	if err := b.Admit(1); !errors.Is(err, errdefs.ErrInsufficientMemory) {
		t.Errorf("Admit(1) = %v, want ErrInsufficientMemory", err)
	}
}

func TestBudgetUnlimited(t *testing.T) {
	original := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(original)
	debug.SetMemoryLimit(math.MaxInt64)

	b := NewBudget(0)
	if b.Limit() != 0 {
		t.Errorf("Limit() = %d, want 0 without GOMEMLIMIT", b.Limit())
	}
	if _, ok := b.Remaining(); ok {
		t.Error("Remaining() ok = true for an unlimited budget")
	}
	if err := b.Admit(math.MaxInt64); err != nil {
		t.Errorf("Admit() = %v on an unlimited budget", err)
	}
}

func TestNewBudgetUsesGOMEMLIMIT(t *testing.T) {
	original := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(original)
	debug.SetMemoryLimit(256 << 20)

	if got := NewBudget(0).Limit(); got != 256<<20 {
		t.Errorf("Limit() = %d, want %d", got, 256<<20)
	}
	if got := NewBudget(64 << 20).Limit(); got != 64<<20 {
		t.Errorf("explicit Limit() = %d, want %d", got, 64<<20)
	}
}
