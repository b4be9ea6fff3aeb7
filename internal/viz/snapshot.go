// SPDX-License-Identifier: MIT
package viz

import (
	"time"

	"github.com/mrcool7387/BarScreenSaver/internal/gradient"
	"github.com/mrcool7387/BarScreenSaver/internal/nowplaying"
)

// Snapshot is one published visualization frame. Snapshots are
// immutable after publication: every consumer gets the same pointer
// and must not mutate it.
type Snapshot struct {
	Seq       uint64           `json:"seq"`
	Timestamp time.Time        `json:"ts"`
	Bars      []float64        `json:"bars"`
	Track     nowplaying.Track `json:"track"`
	Gradient  gradient.State   `json:"gradient"`
	ShowClock bool             `json:"clock"`
	// DeviceLost is set while the input device is gone and the engine
	// is coasting on silence.
	DeviceLost bool `json:"device_lost"`
}

// Clone returns a deep copy, for consumers that need to mutate.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Bars = make([]float64, len(s.Bars))
	copy(out.Bars, s.Bars)
	return &out
}
