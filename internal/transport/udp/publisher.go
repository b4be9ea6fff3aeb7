// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
	"github.com/mrcool7387/BarScreenSaver/internal/viz"
)

// SnapshotProvider hands out the most recent published snapshot.
type SnapshotProvider interface {
	Latest() *viz.Snapshot
}

/*
Packet layout (BigEndian):

	| Field      | Type      | Bytes |
	|------------|-----------|-------|
	| Sequence   | uint32    | 4     |
	| Timestamp  | int64     | 8     | nanoseconds since epoch
	| Bar count  | uint16    | 2     |
	| Bars       | []float32 | N * 4 | normalized heights in [0,1]
*/

// Publisher samples the latest snapshot on a fixed interval and sends
// it through a Sender. Independent of the engine's frame rate: slow
// intervals skip frames, fast intervals resend the last one.
type Publisher struct {
	sender   *Sender
	provider SnapshotProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	lastSeq      uint64
	barBuffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher builds a Publisher. An interval <= 0 defaults to 16ms.
func NewPublisher(interval time.Duration, sender *Sender, provider SnapshotProvider) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("udp publisher: snapshot provider cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDP publisher: Invalid interval, defaulting to %s", interval)
	}

	return &Publisher{
		sender:       sender,
		provider:     provider,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing loop. Calling Start while running is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDP publisher: Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDP publisher: Started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.sendLatest()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for it to exit. Safe to call more than
// once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Publisher) sendLatest() {
	snap := p.provider.Latest()
	if snap == nil || snap.Seq == p.lastSeq {
		return
	}
	p.lastSeq = snap.Seq

	// Reuse the scratch buffers across ticks.
	if cap(p.barBuffer) < len(snap.Bars) {
		p.barBuffer = make([]float32, len(snap.Bars))
	}
	p.barBuffer = p.barBuffer[:len(snap.Bars)]
	for i, v := range snap.Bars {
		p.barBuffer[i] = float32(v)
	}
	p.packetBuffer.Reset()

	packet := encodeInto(p.packetBuffer, uint32(snap.Seq), snap.Timestamp.UnixNano(), p.barBuffer)
	if packet == nil {
		return
	}
	if err := p.sender.Send(packet); err != nil {
		applog.Debugf("UDP publisher: Send failed: %v", err)
	}
}

// EncodePacket renders the binary packet for snap into a fresh buffer.
func EncodePacket(snap *viz.Snapshot) []byte {
	bars := make([]float32, 0, len(snap.Bars))
	for _, v := range snap.Bars {
		bars = append(bars, float32(v))
	}
	return encodeInto(new(bytes.Buffer), uint32(snap.Seq), snap.Timestamp.UnixNano(), bars)
}

func encodeInto(buf *bytes.Buffer, seq uint32, ts int64, bars []float32) []byte {
	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, ts)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(bars)))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, bars)
	}
	if err != nil {
		// bytes.Buffer writes cannot fail short of OOM.
		applog.Errorf("UDP publisher: Packing packet: %v", err)
		return nil
	}
	return buf.Bytes()
}
