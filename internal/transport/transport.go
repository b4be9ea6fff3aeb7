// SPDX-License-Identifier: MIT

// Package transport fans published visualization snapshots out to
// external consumers.
package transport

import "github.com/mrcool7387/BarScreenSaver/internal/viz"

// Transport delivers snapshots to one consumer class. Implementations
// must be safe for concurrent use.
type Transport interface {
	Send(*viz.Snapshot) error
	Close() error
}
