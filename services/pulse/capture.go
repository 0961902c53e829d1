//go:build linux

// Package pulse implements the capture.Service contract by recording a
// PulseAudio monitor source: the playback of another application captured as
// an audio stream, the desktop analog of sharing a browser tab's audio.
package pulse

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"

	"voxkit/capture"
	"voxkit/core"
)

const captureSampleRate = 16000

// Config selects the recorded source. Source is matched as a substring of
// the source ID or name; empty picks the first candidate. With Mic set the
// service records a plain input source instead of a monitor, which is how
// the recognizer gets its microphone feed.
type Config struct {
	Source string
	Mic    bool
}

// Service hands out one monitor-source stream per RequestCapture.
type Service struct {
	cfg    Config
	logger *core.Logger
}

func NewService(cfg Config, logger *core.Logger) *Service {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Service{cfg: cfg, logger: logger.With(map[string]any{"component": "pulse"})}
}

// RequestCapture connects to the sound server and starts recording the
// configured monitor source. A missing server or a host with no monitor
// sources reports capture.ErrUnsupported.
func (s *Service) RequestCapture(_ context.Context) (capture.Stream, error) {
	client, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", capture.ErrUnsupported, err)
	}

	source, err := s.pickSource(client)
	if err != nil {
		client.Close()
		return nil, err
	}

	ms := &monitorStream{
		client: client,
		audio:  make(chan core.AudioChunk, 64),
	}
	ms.track = &monitorTrack{ended: make(chan struct{}), stop: ms.teardown}

	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		if len(buf) == 0 {
			return 0, nil
		}
		data := make([]byte, len(buf)*2)
		for i, sample := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
		}
		chunk := core.AudioChunk{
			Data:       data,
			SampleRate: captureSampleRate,
			Channels:   1,
			Format:     core.PCM,
			Timestamp:  time.Now(),
		}
		// Drop on a full buffer rather than stall the sound server.
		select {
		case ms.audio <- chunk:
		default:
		}
		return len(buf), nil
	})

	stream, err := client.NewRecord(writer,
		pulse.RecordMono,
		pulse.RecordSampleRate(captureSampleRate),
		pulse.RecordLatency(0.05),
		pulse.RecordSource(source),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("pulse record: %w", err)
	}
	ms.stream = stream
	stream.Start()

	s.logger.Infof("capturing monitor source %s", source.Name())
	return ms, nil
}

func (s *Service) pickSource(client *pulse.Client) (*pulse.Source, error) {
	sources, err := client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	for _, src := range sources {
		isMonitor := strings.Contains(src.ID(), ".monitor")
		if isMonitor == s.cfg.Mic {
			continue
		}
		if s.cfg.Source == "" ||
			strings.Contains(src.ID(), s.cfg.Source) ||
			strings.Contains(src.Name(), s.cfg.Source) {
			return src, nil
		}
	}
	return nil, fmt.Errorf("%w: no matching source", capture.ErrUnsupported)
}

// monitorStream is one live recording: a single audio track plus the chunk
// channel the record callback feeds.
type monitorStream struct {
	client *pulse.Client
	stream *pulse.RecordStream
	track  *monitorTrack
	audio  chan core.AudioChunk

	closeOnce sync.Once
}

func (m *monitorStream) Tracks() []capture.Track {
	return []capture.Track{m.track}
}

func (m *monitorStream) Audio() <-chan core.AudioChunk {
	return m.audio
}

func (m *monitorStream) teardown() {
	m.closeOnce.Do(func() {
		m.stream.Stop()
		m.stream.Close()
		m.client.Close()
		close(m.audio)
	})
}

type monitorTrack struct {
	ended chan struct{}
	stop  func()
}

func (t *monitorTrack) Kind() capture.TrackKind { return capture.TrackKindAudio }
func (t *monitorTrack) Ended() <-chan struct{}  { return t.ended }
func (t *monitorTrack) Stop()                   { t.stop() }
