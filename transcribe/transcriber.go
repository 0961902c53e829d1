// Package transcribe defines the audio-chunk transcription collaborator: an
// external service that turns a recorded audio segment into text. It is used
// only as an alternate producer of finalized utterances feeding the session.
package transcribe

import (
	"context"

	"voxkit/core"
)

// Transcriber converts one recorded audio chunk into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, chunk core.AudioChunk) (string, error)
}
