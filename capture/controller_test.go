package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxkit/core"
	events "voxkit/events/capture"
	"voxkit/transcribe"
)

func nextEvent(t *testing.T, c *Controller) core.IEvent {
	t.Helper()
	select {
	case p := <-c.Events():
		return p.Event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for controller event")
		return nil
	}
}

func pcmChunk(seconds float64) core.AudioChunk {
	n := int(seconds * 16000 * 2)
	return core.AudioChunk{
		Data:       make([]byte, n),
		SampleRate: 16000,
		Channels:   1,
		Format:     core.PCM,
	}
}

func TestControllerStartAndStop(t *testing.T) {
	stream := NewFakeStream(TrackKindAudio, TrackKindVideo)
	svc := &FakeService{Stream: stream}
	c := NewController(svc, nil, Config{}, core.NewNopLogger())

	require.NoError(t, c.Start(context.Background()))
	require.IsType(t, &events.StartedEvent{}, nextEvent(t, c))
	assert.True(t, c.Active())

	c.Stop()
	ev := nextEvent(t, c)
	require.IsType(t, &events.StoppedEvent{}, ev)
	assert.Equal(t, "stopped", ev.(*events.StoppedEvent).Reason)
	assert.False(t, c.Active())
	for _, tr := range stream.FakeTracks() {
		assert.True(t, tr.Stopped())
	}

	// Stop is idempotent: no second stopped event, no panic.
	c.Stop()
	assert.Empty(t, c.Events())
}

func TestControllerRejectsStreamWithoutAudio(t *testing.T) {
	stream := NewFakeStream(TrackKindVideo)
	svc := &FakeService{Stream: stream}
	c := NewController(svc, nil, Config{}, core.NewNopLogger())

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindCapture, core.KindOf(err))
	assert.False(t, c.Active())
	// The acquired video track must be released, not leaked.
	assert.True(t, stream.FakeTracks()[0].Stopped())
	require.IsType(t, &events.ErrorEvent{}, nextEvent(t, c))
}

func TestControllerPermissionDenied(t *testing.T) {
	svc := &FakeService{Err: ErrPermissionDenied}
	c := NewController(svc, nil, Config{}, core.NewNopLogger())

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindCapture, core.KindOf(err))
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, c.Active())
}

func TestControllerSharingStoppedByPlatform(t *testing.T) {
	stream := NewFakeStream(TrackKindAudio)
	svc := &FakeService{Stream: stream}
	c := NewController(svc, nil, Config{}, core.NewNopLogger())

	require.NoError(t, c.Start(context.Background()))
	nextEvent(t, c) // started

	stream.FakeTracks()[0].EndSharing()
	ev := nextEvent(t, c)
	require.IsType(t, &events.StoppedEvent{}, ev)
	assert.Equal(t, "sharing stopped", ev.(*events.StoppedEvent).Reason)
	assert.False(t, c.Active())
	assert.True(t, stream.FakeTracks()[0].Stopped())
}

func TestControllerDrainsAudioWithoutTranscriber(t *testing.T) {
	stream := NewFakeStream(TrackKindAudio)
	svc := &FakeService{Stream: stream}
	c := NewController(svc, nil, Config{}, core.NewNopLogger())

	require.NoError(t, c.Start(context.Background()))
	nextEvent(t, c)

	// A muted sink: chunks are consumed and dropped, the stream never backs up.
	for i := 0; i < 200; i++ {
		stream.Feed(pcmChunk(0.1))
	}
	c.Stop()
	require.IsType(t, &events.StoppedEvent{}, nextEvent(t, c))
}

func TestControllerTranscribesSegments(t *testing.T) {
	stream := NewFakeStream(TrackKindAudio)
	svc := &FakeService{Stream: stream}
	tr := &transcribe.FakeTranscriber{Text: "captured speech"}
	c := NewController(svc, tr, Config{SegmentDuration: time.Second}, core.NewNopLogger())

	require.NoError(t, c.Start(context.Background()))
	nextEvent(t, c)

	// 1.2s of audio crosses the 1s segment window.
	for i := 0; i < 4; i++ {
		stream.Feed(pcmChunk(0.3))
	}
	ev := nextEvent(t, c)
	require.IsType(t, &events.TranscriptEvent{}, ev)
	assert.Equal(t, "captured speech", ev.(*events.TranscriptEvent).Text)

	chunks := tr.Chunks()
	require.Len(t, chunks, 1)
	// Four 0.3s chunks merged into one segment.
	assert.InDelta(t, 1.2, chunks[0].DurationSeconds(), 0.001)
}

func TestControllerSkipsBlankTranscripts(t *testing.T) {
	stream := NewFakeStream(TrackKindAudio)
	svc := &FakeService{Stream: stream}
	tr := &transcribe.FakeTranscriber{Text: "   "}
	c := NewController(svc, tr, Config{SegmentDuration: 100 * time.Millisecond}, core.NewNopLogger())

	require.NoError(t, c.Start(context.Background()))
	nextEvent(t, c)

	stream.Feed(pcmChunk(0.2))
	require.Eventually(t, func() bool {
		return len(tr.Chunks()) == 1
	}, time.Second, time.Millisecond)

	c.Stop()
	// Only the stopped event; the blank transcript was suppressed.
	require.IsType(t, &events.StoppedEvent{}, nextEvent(t, c))
}
