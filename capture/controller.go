package capture

import (
	"context"
	"strings"
	"sync"
	"time"

	"voxkit/core"
	events "voxkit/events/capture"
	"voxkit/transcribe"
	"voxkit/utils/audio"
)

const defaultSegmentDuration = 5 * time.Second

// Config holds controller options. SegmentDuration is the amount of captured
// audio accumulated before a transcription call; it only matters when a
// transcriber is attached.
type Config struct {
	SegmentDuration time.Duration
}

// State is a snapshot of the controller's capture state.
type State struct {
	Active bool
}

// Controller drives one capture Service. While a stream is open the
// controller drains its audio (the muted sink keeping the platform from
// suspending the stream); with a transcriber attached, drained audio is
// segmented, decoded to PCM, and published as transcript events.
type Controller struct {
	svc         Service
	transcriber transcribe.Transcriber // optional
	cfg         Config
	logger      *core.Logger
	out         chan *core.EventPacket

	mu     sync.Mutex
	active bool
	stream Stream
	done   chan struct{} // closed to stop the drain and watch goroutines
}

// NewController builds a capture controller. transcriber may be nil, in which
// case drained audio is discarded.
func NewController(svc Service, transcriber transcribe.Transcriber, cfg Config, logger *core.Logger) *Controller {
	if logger == nil {
		logger = core.GetLogger()
	}
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = defaultSegmentDuration
	}
	return &Controller{
		svc:         svc,
		transcriber: transcriber,
		cfg:         cfg,
		logger:      logger.With(map[string]any{"component": "capture"}),
		out:         make(chan *core.EventPacket, 64),
	}
}

// Events returns the controller's typed notification output.
func (c *Controller) Events() <-chan *core.EventPacket {
	return c.out
}

// Active reports whether a capture stream is currently open.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// State returns a snapshot of the capture state.
func (c *Controller) State() State {
	return State{Active: c.Active()}
}

// Start requests a user-consented capture of another tab/display. A stream
// without any audio track is a capture error: every acquired track is
// released and the controller stays idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	stream, err := c.svc.RequestCapture(ctx)
	if err != nil {
		cerr := core.NewError(core.ErrorKindCapture, "capture.start", err)
		c.publish(&events.ErrorEvent{Message: cerr.Error()})
		return cerr
	}

	audioTracks := AudioTracks(stream)
	if len(audioTracks) == 0 {
		for _, t := range stream.Tracks() {
			t.Stop()
		}
		cerr := core.Errorf(core.ErrorKindCapture, "capture.start", "audio not shared")
		c.publish(&events.ErrorEvent{Message: cerr.Error()})
		return cerr
	}

	c.mu.Lock()
	c.stream = stream
	c.active = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.drain(stream, done)
	go c.watch(audioTracks[0], done)

	c.logger.Info("capture started")
	c.publish(&events.StartedEvent{})
	return nil
}

// Stop releases the stream. Idempotent and immediate: tracks stop
// deterministically at the resource level.
func (c *Controller) Stop() {
	c.stop("stopped")
}

func (c *Controller) stop(reason string) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	close(c.done)
	for _, t := range c.stream.Tracks() {
		t.Stop()
	}
	c.stream = nil
	c.done = nil
	c.active = false
	c.mu.Unlock()

	c.logger.Infof("capture released: %s", reason)
	c.publish(&events.StoppedEvent{Reason: reason})
}

// watch runs the platform "sharing stopped" notification through the same
// cleanup path as an explicit Stop.
func (c *Controller) watch(track Track, done <-chan struct{}) {
	select {
	case <-track.Ended():
		c.stop("sharing stopped")
	case <-done:
	}
}

// drain consumes the stream's audio so the platform keeps it alive. With a
// transcriber attached, chunks are accumulated into segments and transcribed
// off the drain goroutine.
func (c *Controller) drain(stream Stream, done <-chan struct{}) {
	var pending []core.AudioChunk
	var pendingSeconds float64
	segmentSeconds := c.cfg.SegmentDuration.Seconds()

	for {
		select {
		case <-done:
			return
		case chunk, ok := <-stream.Audio():
			if !ok {
				return
			}
			if c.transcriber == nil {
				continue // muted sink
			}
			pending = append(pending, chunk)
			pendingSeconds += chunk.DurationSeconds()
			if pendingSeconds >= segmentSeconds {
				segment := mergeChunks(pending)
				pending = nil
				pendingSeconds = 0
				go c.transcribeSegment(segment)
			}
		}
	}
}

func (c *Controller) transcribeSegment(segment core.AudioChunk) {
	pcm, err := audio.DecodeToPCM(segment)
	if err != nil {
		c.logger.Warnf("segment decode failed: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := c.transcriber.Transcribe(ctx, pcm)
	if err != nil {
		c.logger.Warnf("segment transcription failed: %v", err)
		c.publish(&events.ErrorEvent{Message: err.Error()})
		return
	}
	if text = strings.TrimSpace(text); text != "" {
		c.publish(&events.TranscriptEvent{Text: text})
	}
}

// mergeChunks concatenates a run of chunks sharing the first chunk's format.
func mergeChunks(chunks []core.AudioChunk) core.AudioChunk {
	merged := core.AudioChunk{
		SampleRate: chunks[0].SampleRate,
		Channels:   chunks[0].Channels,
		Format:     chunks[0].Format,
		Timestamp:  chunks[0].Timestamp,
	}
	for _, ch := range chunks {
		merged.Data = append(merged.Data, ch.Data...)
	}
	return merged
}

func (c *Controller) publish(ev core.IEvent) {
	c.out <- core.NewEventPacket(ev, "TabAudioCaptureController")
}
