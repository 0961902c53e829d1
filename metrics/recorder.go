// Package metrics computes token estimates, per-turn latency, and running
// session cost from text lengths and timestamps. It has no dependencies on
// the rest of the pipeline.
package metrics

import (
	"sync"
	"time"
)

// Pricing holds the fixed per-million-token prices used for the running cost
// estimate.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// EstimateTokens approximates the token count of text as ceil(len/4).
// EstimateTokens("") == 0.
func EstimateTokens(text string) int {
	return EstimateBytes(len(text))
}

// EstimateBytes approximates the token count of n raw bytes, same ratio as
// text. Used for inline binary priming parts.
func EstimateBytes(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}

// Snapshot is a point-in-time copy of the recorder state. TimeToFirstChunk
// and TotalResponseTime are zero until observed for the current turn.
type Snapshot struct {
	TimeToFirstChunk  time.Duration
	TotalResponseTime time.Duration

	LastPromptTokens      int
	LastResponseTokens    int
	SessionPromptTokens   int
	SessionResponseTokens int

	EstimatedCost float64 // dollars
}

// Recorder accumulates metrics across the turns of one logical session.
// Cumulative counters grow only when a turn completes; the cost is always
// recomputed from the then-current counters, never incremented independently,
// so a replay of recorded turns re-derives the same value.
type Recorder struct {
	mu      sync.Mutex
	pricing Pricing
	snap    Snapshot
}

func NewRecorder(pricing Pricing) *Recorder {
	return &Recorder{pricing: pricing}
}

// ResetSession starts a fresh session whose prompt counter begins at the
// priming-context token estimate.
func (r *Recorder) ResetSession(primingTokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = Snapshot{SessionPromptTokens: primingTokens}
	r.snap.EstimatedCost = r.costLocked()
}

// StartTurn records the prompt estimate for a new turn and clears the
// per-turn latency fields.
func (r *Recorder) StartTurn(prompt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.LastPromptTokens = EstimateTokens(prompt)
	r.snap.TimeToFirstChunk = 0
	r.snap.TotalResponseTime = 0
}

// FirstChunk records the latency from turn submission to the first streamed
// delta. Only the first call per turn is kept.
func (r *Recorder) FirstChunk(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap.TimeToFirstChunk == 0 {
		r.snap.TimeToFirstChunk = d
	}
}

// CompleteTurn folds a finished turn into the cumulative counters and
// recomputes the running cost.
func (r *Recorder) CompleteTurn(fullText string, total time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.TotalResponseTime = total
	r.snap.LastResponseTokens = EstimateTokens(fullText)
	r.snap.SessionPromptTokens += r.snap.LastPromptTokens
	r.snap.SessionResponseTokens += r.snap.LastResponseTokens
	r.snap.EstimatedCost = r.costLocked()
}

// Snapshot returns a copy of the current state.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

func (r *Recorder) costLocked() float64 {
	return float64(r.snap.SessionPromptTokens)/1e6*r.pricing.InputPerMillion +
		float64(r.snap.SessionResponseTokens)/1e6*r.pricing.OutputPerMillion
}
