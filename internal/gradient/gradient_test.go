// SPDX-License-Identifier: MIT
package gradient

import (
	"math"
	"testing"
)

func TestResolve(t *testing.T) {
	table := map[string][]string{
		"custom": {"#ff0000", "#0000ff"},
		"broken": {"#ff0000", "not-a-color"},
		"single": {"#ff0000"},
	}

	tests := []struct {
		desc     string
		name     string
		wantName string
	}{
		{"builtin preset", "winter", "winter"},
		{"user table entry", "custom", "custom"},
		{"unknown name falls back", "nonexistent", DefaultName},
		{"invalid hex falls back", "broken", DefaultName},
		{"too few stops falls back", "single", DefaultName},
		{"empty name falls back", "", DefaultName},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			spec := Resolve(tt.name, table)
			if spec.Name != tt.wantName {
				t.Errorf("Resolve(%q).Name = %q, want %q", tt.name, spec.Name, tt.wantName)
			}
		})
	}
}

func TestUserTableOverridesBuiltin(t *testing.T) {
	table := map[string][]string{"winter": {"#111111", "#222222"}}
	spec := Resolve("winter", table)
	if spec.Start.Hex() != "#111111" {
		t.Errorf("user table should override builtin, got start %s", spec.Start.Hex())
	}
}

func TestAllBuiltinsResolve(t *testing.T) {
	for _, name := range Names() {
		spec := Resolve(name, nil)
		if spec.Name != name {
			t.Errorf("builtin %q did not resolve to itself, got %q", name, spec.Name)
		}
	}
}

func TestAnimatorPhaseWraps(t *testing.T) {
	a := NewAnimator(Resolve("default", nil), true, 0.25)

	a.Advance(1.0) // quarter cycle
	if math.Abs(a.Phase()-0.25) > 1e-9 {
		t.Errorf("phase = %v, want 0.25", a.Phase())
	}

	a.Advance(3.5) // wraps past 1.0
	if p := a.Phase(); p < 0 || p >= 1 {
		t.Errorf("phase %v outside [0, 1)", p)
	}
	if math.Abs(a.Phase()-0.125) > 1e-9 {
		t.Errorf("phase = %v, want 0.125 after wrap", a.Phase())
	}
}

func TestStaticAnimatorHoldsPhase(t *testing.T) {
	a := NewAnimator(Resolve("default", nil), false, 1.0)
	a.Advance(10)
	if a.Phase() != 0 {
		t.Errorf("static animator moved, phase = %v", a.Phase())
	}
}

func TestColorAtEndpoints(t *testing.T) {
	spec := Resolve("default", nil)
	a := NewAnimator(spec, false, 0)

	if got := a.ColorAt(0, 10); got.Hex() != spec.Start.Hex() {
		t.Errorf("first bar = %s, want gradient start %s", got.Hex(), spec.Start.Hex())
	}
	// Single bar degenerates to the start color.
	if got := a.ColorAt(0, 1); got.Hex() != spec.Start.Hex() {
		t.Errorf("single bar = %s, want %s", got.Hex(), spec.Start.Hex())
	}
}

func TestColorAtIsValidRGB(t *testing.T) {
	a := NewAnimator(Resolve("autumn", nil), true, 0.3)
	for step := 0; step < 20; step++ {
		a.Advance(0.05)
		for i := 0; i < 32; i++ {
			c := a.ColorAt(i, 32)
			if !c.IsValid() {
				t.Fatalf("step %d bar %d: color %v outside RGB gamut", step, i, c)
			}
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	a := NewAnimator(Resolve("summer", nil), true, 0.5)
	a.Advance(0.5)

	st := a.State()
	if st.StartHex == "" || st.EndHex == "" {
		t.Fatalf("empty hex in state: %+v", st)
	}
	if math.Abs(st.Phase-0.25) > 1e-9 {
		t.Errorf("state phase = %v, want 0.25", st.Phase)
	}
}
