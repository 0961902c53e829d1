// Package chat defines the contract to the hosted chat-completion endpoint.
// Implementations live under services/; the session orchestrator only ever
// talks to these interfaces.
package chat

import (
	"context"

	"voxkit/core"
)

// Gateway opens logical chat sessions primed with a system instruction and
// optional priming parts. A credential problem surfaces as a
// core.ErrorKindConfiguration error and must not be retried.
type Gateway interface {
	Open(ctx context.Context, sessionCtx core.SessionContext) (Session, error)
}

// Session is one logical chat session. Exactly one exists at a time; it is
// exclusively owned by the conversation orchestrator and replaced, never
// mutated, on initialize/new-session.
//
// StreamTurn streams the completion for text. Deltas are sent on outChan in
// arrival order; afterwards exactly one of endChan (normal termination) or
// errChan (transport failure, core.ErrorKindTransport) fires. outChan must be
// unbuffered by the caller so a delta is always consumed before the
// completion signal can be observed. There is no cancellation primitive: a
// started turn runs to completion or to a transport error.
type Session interface {
	StreamTurn(ctx context.Context, text string, outChan chan<- string, endChan chan<- struct{}, errChan chan<- error)
	Close() error
}
