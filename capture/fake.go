package capture

import (
	"context"
	"sync"

	"voxkit/core"
)

// FakeService hands out a scripted stream (or error) on RequestCapture.
type FakeService struct {
	Stream Stream
	Err    error

	mu       sync.Mutex
	requests int
}

func (f *FakeService) RequestCapture(context.Context) (Stream, error) {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Stream, nil
}

func (f *FakeService) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// FakeStream is a scriptable capture stream for tests.
type FakeStream struct {
	tracks []Track
	audio  chan core.AudioChunk
}

// NewFakeStream builds a stream with the given track kinds.
func NewFakeStream(kinds ...TrackKind) *FakeStream {
	s := &FakeStream{audio: make(chan core.AudioChunk, 64)}
	for _, k := range kinds {
		s.tracks = append(s.tracks, NewFakeTrack(k))
	}
	return s
}

func (s *FakeStream) Tracks() []Track                 { return s.tracks }
func (s *FakeStream) Audio() <-chan core.AudioChunk   { return s.audio }
func (s *FakeStream) Feed(chunk core.AudioChunk)      { s.audio <- chunk }
func (s *FakeStream) CloseAudio()                     { close(s.audio) }
func (s *FakeStream) FakeTracks() []*FakeTrack {
	out := make([]*FakeTrack, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t.(*FakeTrack)
	}
	return out
}

// FakeTrack records Stop calls and lets tests simulate the platform
// "sharing stopped" notification.
type FakeTrack struct {
	kind TrackKind

	mu      sync.Mutex
	stopped bool
	ended   chan struct{}
}

func NewFakeTrack(kind TrackKind) *FakeTrack {
	return &FakeTrack{kind: kind, ended: make(chan struct{})}
}

func (t *FakeTrack) Kind() TrackKind { return t.kind }

func (t *FakeTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *FakeTrack) Ended() <-chan struct{} { return t.ended }

// EndSharing simulates the user revoking sharing through the platform UI.
func (t *FakeTrack) EndSharing() {
	close(t.ended)
}

func (t *FakeTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
