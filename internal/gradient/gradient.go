// SPDX-License-Identifier: MIT

// Package gradient resolves named color gradients and animates them
// over time for the bar renderer.
package gradient

import (
	"errors"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
)

var errTooFewStops = errors.New("gradient needs at least two color stops")

// DefaultName is the gradient used when resolution fails.
const DefaultName = "default"

// Spec is a resolved two-stop gradient.
type Spec struct {
	Name  string
	Start colorful.Color
	End   colorful.Color
}

// builtins are the shipped presets. Users can override or extend them
// through the config gradient table.
var builtins = map[string][2]string{
	"default": {"#00d1ff", "#ff3cac"},
	"spring":  {"#a8e063", "#f6d365"},
	"summer":  {"#f12711", "#f5af19"},
	"autumn":  {"#d38312", "#a83279"},
	"winter":  {"#83a4d4", "#b6fbff"},
}

// Resolve looks up name in the user table first, then the builtin
// presets. Unknown names and malformed hex stops fall back to the
// default gradient with a warning.
func Resolve(name string, table map[string][]string) Spec {
	if stops, ok := table[name]; ok {
		if spec, err := fromStops(name, stops); err == nil {
			return spec
		} else {
			applog.Warnf("Gradient %q has invalid stops (%v), using %q", name, err, DefaultName)
		}
	} else if stops, ok := builtins[name]; ok {
		spec, _ := fromStops(name, stops[:])
		return spec
	} else if name != "" {
		applog.Warnf("Unknown gradient %q, using %q", name, DefaultName)
	}

	stops := builtins[DefaultName]
	spec, _ := fromStops(DefaultName, stops[:])
	return spec
}

func fromStops(name string, stops []string) (Spec, error) {
	if len(stops) < 2 {
		return Spec{}, errTooFewStops
	}
	start, err := colorful.Hex(stops[0])
	if err != nil {
		return Spec{}, err
	}
	end, err := colorful.Hex(stops[len(stops)-1])
	if err != nil {
		return Spec{}, err
	}
	return Spec{Name: name, Start: start, End: end}, nil
}

// Names returns all builtin preset names.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}

// State is the wire-friendly snapshot of an animated gradient.
type State struct {
	StartHex string  `json:"start"`
	EndHex   string  `json:"end"`
	Phase    float64 `json:"phase"`
}

// Animator shifts a gradient's phase over time. With dynamic disabled
// the phase stays at zero and ColorAt is a plain positional blend.
type Animator struct {
	spec    Spec
	dynamic bool
	speed   float64 // phase cycles per second
	phase   float64
}

// NewAnimator builds an Animator for spec. speed is in cycles per
// second and only matters when dynamic is set.
func NewAnimator(spec Spec, dynamic bool, speed float64) *Animator {
	if speed < 0 {
		speed = 0
	}
	return &Animator{spec: spec, dynamic: dynamic, speed: speed}
}

// Advance moves the phase forward by dt and wraps it into [0, 1).
func (a *Animator) Advance(dt float64) {
	if !a.dynamic || dt <= 0 {
		return
	}
	a.phase += dt * a.speed
	a.phase -= math.Floor(a.phase)
}

// ColorAt returns the color for bar i of n. The animated phase slides
// the blend position along the gradient, mirrored so the motion loops
// without a seam.
func (a *Animator) ColorAt(i, n int) colorful.Color {
	pos := 0.0
	if n > 1 {
		pos = float64(i) / float64(n-1)
	}
	pos += a.phase
	pos -= math.Floor(pos)
	// Mirror the second half so phase wrap is continuous.
	if pos > 0.5 {
		pos = 1 - pos
	}
	return a.spec.Start.BlendLab(a.spec.End, pos*2).Clamped()
}

// Phase returns the current phase in [0, 1).
func (a *Animator) Phase() float64 {
	return a.phase
}

// Spec returns the gradient being animated.
func (a *Animator) Spec() Spec {
	return a.spec
}

// State exports the animator for publishing.
func (a *Animator) State() State {
	return State{
		StartHex: a.spec.Start.Hex(),
		EndHex:   a.spec.End.Hex(),
		Phase:    a.phase,
	}
}
