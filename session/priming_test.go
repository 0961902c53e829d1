package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxkit/core"
)

func TestPrimingBuilderTextAndImages(t *testing.T) {
	b := NewPrimingBuilder(0)
	b.AddText("session notes")
	require.NoError(t, b.Add([]byte("plain body"), "text/plain; charset=utf-8"))
	require.NoError(t, b.Add([]byte{0x89, 0x50, 0x4e, 0x47}, "image/png"))

	parts := b.Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, "session notes", parts[0].Text)
	assert.Equal(t, "plain body", parts[1].Text)
	assert.True(t, parts[1].IsText())
	assert.False(t, parts[2].IsText())
	assert.Equal(t, "image/png", parts[2].MIMEType)
}

func TestPrimingBuilderRejectsOversizedAttachment(t *testing.T) {
	b := NewPrimingBuilder(16)
	err := b.Add(make([]byte, 17), "text/plain")
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
	assert.Empty(t, b.Parts())
}

func TestPrimingBuilderRejectsUnknownType(t *testing.T) {
	b := NewPrimingBuilder(0)
	err := b.Add([]byte("%PDF-1.7"), "application/pdf")
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
}

type upperExtractor struct{ err error }

func (e upperExtractor) Extract(data []byte) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "EXTRACTED:" + string(data), nil
}

func TestPrimingBuilderRegisteredExtractor(t *testing.T) {
	b := NewPrimingBuilder(0)
	b.RegisterExtractor("application/x-notes", upperExtractor{})

	require.NoError(t, b.Add([]byte("hello"), "Application/X-Notes; v=2"))
	parts := b.Parts()
	require.Len(t, parts, 1)
	assert.Equal(t, "EXTRACTED:hello", parts[0].Text)
}

func TestPrimingBuilderExtractorFailureIsValidation(t *testing.T) {
	b := NewPrimingBuilder(0)
	b.RegisterExtractor("application/x-notes", upperExtractor{err: errors.New("corrupt")})

	err := b.Add([]byte("x"), "application/x-notes")
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
	assert.Empty(t, b.Parts())
}
