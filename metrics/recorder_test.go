package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 3, EstimateTokens("Hi there!"))
}

func TestEstimateTokensMonotonic(t *testing.T) {
	prev := 0
	for n := 0; n <= 64; n++ {
		got := EstimateTokens(strings.Repeat("x", n))
		require.GreaterOrEqual(t, got, prev, "length %d", n)
		prev = got
	}
}

func TestRecorderCostFormula(t *testing.T) {
	pricing := Pricing{InputPerMillion: 0.10, OutputPerMillion: 0.40}
	r := NewRecorder(pricing)
	r.ResetSession(100)

	r.StartTurn(strings.Repeat("p", 400)) // 100 prompt tokens
	r.FirstChunk(25 * time.Millisecond)
	r.CompleteTurn(strings.Repeat("r", 800), 90*time.Millisecond) // 200 response tokens

	snap := r.Snapshot()
	assert.Equal(t, 100, snap.LastPromptTokens)
	assert.Equal(t, 200, snap.LastResponseTokens)
	assert.Equal(t, 200, snap.SessionPromptTokens)
	assert.Equal(t, 200, snap.SessionResponseTokens)
	assert.Equal(t, 25*time.Millisecond, snap.TimeToFirstChunk)
	assert.Equal(t, 90*time.Millisecond, snap.TotalResponseTime)

	want := float64(snap.SessionPromptTokens)/1e6*pricing.InputPerMillion +
		float64(snap.SessionResponseTokens)/1e6*pricing.OutputPerMillion
	assert.InDelta(t, want, snap.EstimatedCost, 1e-12)

	// A second turn keeps the cost re-derivable from the counters alone.
	r.StartTurn("four")
	r.CompleteTurn("Hi there!", 10*time.Millisecond)
	snap = r.Snapshot()
	assert.Equal(t, 201, snap.SessionPromptTokens)
	assert.Equal(t, 203, snap.SessionResponseTokens)
	want = float64(snap.SessionPromptTokens)/1e6*pricing.InputPerMillion +
		float64(snap.SessionResponseTokens)/1e6*pricing.OutputPerMillion
	assert.InDelta(t, want, snap.EstimatedCost, 1e-12)
}

func TestRecorderFirstChunkKeepsFirstValue(t *testing.T) {
	r := NewRecorder(Pricing{})
	r.StartTurn("hello")
	r.FirstChunk(10 * time.Millisecond)
	r.FirstChunk(50 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, r.Snapshot().TimeToFirstChunk)
}

func TestRecorderResetSession(t *testing.T) {
	r := NewRecorder(Pricing{InputPerMillion: 1, OutputPerMillion: 1})
	r.StartTurn("some prompt text")
	r.CompleteTurn("some response text", time.Second)
	require.NotZero(t, r.Snapshot().SessionResponseTokens)

	r.ResetSession(42)
	snap := r.Snapshot()
	assert.Equal(t, 42, snap.SessionPromptTokens)
	assert.Equal(t, 0, snap.SessionResponseTokens)
	assert.Equal(t, 0, snap.LastPromptTokens)
	assert.Equal(t, 0, snap.LastResponseTokens)
	assert.Zero(t, snap.TimeToFirstChunk)
	assert.InDelta(t, 42.0/1e6, snap.EstimatedCost, 1e-12)
}
