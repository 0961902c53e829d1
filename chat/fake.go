package chat

import (
	"context"
	"sync"

	"voxkit/core"
)

// FakeGateway returns a scripted session (or error) on every Open.
type FakeGateway struct {
	Err     error
	Session Session

	mu      sync.Mutex
	opens   int
	lastCtx core.SessionContext
}

func (f *FakeGateway) Open(_ context.Context, sc core.SessionContext) (Session, error) {
	f.mu.Lock()
	f.opens++
	f.lastCtx = sc
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Session, nil
}

func (f *FakeGateway) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *FakeGateway) LastContext() core.SessionContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCtx
}

// FakeSession streams a scripted delta sequence and then terminates with
// either the scripted error or a normal end. With Release set, the stream
// holds until the channel is closed, letting tests pin a turn in flight.
type FakeSession struct {
	Deltas  []string
	Err     error
	Release chan struct{}

	mu     sync.Mutex
	turns  []string
	closed bool
}

func (f *FakeSession) StreamTurn(_ context.Context, text string, outChan chan<- string, endChan chan<- struct{}, errChan chan<- error) {
	f.mu.Lock()
	f.turns = append(f.turns, text)
	f.mu.Unlock()

	if f.Release != nil {
		<-f.Release
	}
	for _, d := range f.Deltas {
		outChan <- d
	}
	if f.Err != nil {
		errChan <- f.Err
		return
	}
	endChan <- struct{}{}
}

func (f *FakeSession) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakeSession) Turns() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.turns))
	copy(out, f.turns)
	return out
}

func (f *FakeSession) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
