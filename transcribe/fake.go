package transcribe

import (
	"context"
	"sync"

	"voxkit/core"
)

// FakeTranscriber returns a scripted transcript (or error) and records the
// chunks it was fed.
type FakeTranscriber struct {
	Text string
	Err  error

	mu     sync.Mutex
	chunks []core.AudioChunk
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{Text: text, Err: err}
}

func (f *FakeTranscriber) Transcribe(_ context.Context, chunk core.AudioChunk) (string, error) {
	f.mu.Lock()
	f.chunks = append(f.chunks, chunk)
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

// Chunks returns a copy of everything fed to the transcriber so far.
func (f *FakeTranscriber) Chunks() []core.AudioChunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.AudioChunk, len(f.chunks))
	copy(out, f.chunks)
	return out
}
