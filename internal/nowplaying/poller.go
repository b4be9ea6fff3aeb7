// SPDX-License-Identifier: MIT
package nowplaying

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrcool7387/BarScreenSaver/internal/adfilter"
	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
)

// Poller fetches metadata on a fixed interval and keeps the latest
// track available lock-free via Current. Fetch failures are logged and
// the previous track is kept, so a flaky endpoint never takes the
// visualizer down.
type Poller struct {
	client   *Client
	filter   *adfilter.Filter
	interval time.Duration

	current  atomic.Pointer[Track]
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller builds a Poller. filter may be nil, in which case no track
// is ever flagged as an advert.
func NewPoller(client *Client, filter *adfilter.Filter, interval time.Duration) *Poller {
	p := &Poller{
		client:   client,
		filter:   filter,
		interval: interval,
		done:     make(chan struct{}),
	}
	p.current.Store(&Track{})
	return p
}

// Start launches the polling loop. An immediate first fetch runs before
// the ticker so the UI does not wait a full interval for metadata.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.poll()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				p.poll()
			}
		}
	}()
}

// Stop halts the polling loop and waits for it to exit. Safe to call
// more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

// Current returns the most recently fetched track. Before the first
// successful fetch it returns the zero Track.
func (p *Poller) Current() Track {
	return *p.current.Load()
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	track, err := p.client.Fetch(ctx)
	if err != nil {
		applog.Warnf("Now-playing fetch failed: %v", err)
		return
	}
	if p.filter != nil {
		track.Advert = p.filter.Match(track.Display())
	}

	prev := p.current.Load()
	if track != *prev {
		if track.Advert {
			applog.Infof("Now playing: %s [advert]", track.Display())
		} else {
			applog.Infof("Now playing: %s", track.Display())
		}
	}
	p.current.Store(&track)
}
