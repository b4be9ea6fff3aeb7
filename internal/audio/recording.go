// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
)

// wavSink bundles the open file, encoder and reusable conversion buffer
// for an active recording.
type wavSink struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *goaudio.IntBuffer
}

const recordingBitDepth = 32

// StartRecording begins dumping the captured mono stream to a WAV file.
// An empty filename produces a timestamped one. Returns an error if a
// recording is already active.
func (c *Capture) StartRecording(filename string) (string, error) {
	c.recordMu.Lock()
	defer c.recordMu.Unlock()

	if c.isRecording {
		return "", fmt.Errorf("already recording")
	}

	if filename == "" {
		filename = "capture-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}

	sampleRate := int(c.cfg.Audio.SampleRate)
	c.wavSink = &wavSink{
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, recordingBitDepth, 1, 1),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: 1,
				SampleRate:  sampleRate,
			},
			Data: make([]int, c.cfg.Audio.FramesPerBuffer),
		},
	}
	c.isRecording = true

	applog.Infof("Capture: recording to %s", filename)
	return filename, nil
}

// StopRecording finalizes the WAV file. Safe to call when not recording.
func (c *Capture) StopRecording() error {
	c.recordMu.Lock()
	defer c.recordMu.Unlock()

	if !c.isRecording {
		return nil
	}
	c.isRecording = false

	sink := c.wavSink
	c.wavSink = nil

	if err := sink.encoder.Close(); err != nil {
		sink.file.Close()
		return err
	}
	return sink.file.Close()
}

// writeRecording appends one chunk to the active recording, if any.
// Called from the capture callback; the mutex is uncontended except
// during Start/StopRecording.
func (c *Capture) writeRecording(chunk *Chunk) {
	c.recordMu.Lock()
	defer c.recordMu.Unlock()

	if !c.isRecording || c.wavSink == nil {
		return
	}

	buf := c.wavSink.buf
	buf.Data = buf.Data[:len(chunk.Samples)]
	for i, sample := range chunk.Samples {
		buf.Data[i] = int(sample)
	}

	if err := c.wavSink.encoder.Write(buf); err != nil {
		applog.Errorf("Capture: error writing to WAV file: %v", err)
	}
}
