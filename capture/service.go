// Package capture wraps a display/tab audio-capture service. The controller
// owns the stream lifecycle: it validates that audio was actually shared,
// keeps the stream alive by draining it, and tears everything down on either
// an explicit stop or the platform's own "sharing stopped" notification.
package capture

import (
	"context"
	"errors"

	"voxkit/core"
)

// ErrUnsupported is returned by factories when the host cannot capture
// display/tab audio.
var ErrUnsupported = errors.New("capture: tab-audio capture not supported on this host")

// ErrPermissionDenied is returned by RequestCapture when the user denies or
// dismisses the consent prompt.
var ErrPermissionDenied = errors.New("capture: permission denied")

// TrackKind distinguishes the media kinds a capture stream may carry.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// Track is one media track of a capture stream. Ended is closed when the
// user revokes sharing through the platform UI; Stop releases the track and
// is idempotent.
type Track interface {
	Kind() TrackKind
	Stop()
	Ended() <-chan struct{}
}

// Stream is a live capture stream. Audio yields captured chunks and is
// closed when the stream ends; a stream left undrained may be suspended by
// the host platform, so the controller always consumes it.
type Stream interface {
	Tracks() []Track
	Audio() <-chan core.AudioChunk
}

// Service is the platform capture contract. RequestCapture blocks on the
// user-consent prompt and returns a live stream, ErrPermissionDenied, or
// ErrUnsupported.
type Service interface {
	RequestCapture(ctx context.Context) (Stream, error)
}

// AudioTracks filters s down to its audio tracks.
func AudioTracks(s Stream) []Track {
	var out []Track
	for _, t := range s.Tracks() {
		if t.Kind() == TrackKindAudio {
			out = append(out, t)
		}
	}
	return out
}
