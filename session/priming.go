package session

import (
	"strings"

	"voxkit/core"
)

// DefaultMaxAttachmentBytes caps a single priming attachment.
const DefaultMaxAttachmentBytes = 8 << 20

// TextExtractor converts an attachment's bytes to priming text. Extractors
// are registered per media type on the PrimingBuilder; formats without one
// fall back to the built-in handling.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// PlainTextExtractor passes bytes through as UTF-8 text. It is what the
// builder uses for text/* attachments; registering it under another media
// type opts that type into the same treatment.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(data []byte) (string, error) {
	return string(data), nil
}

// PrimingBuilder assembles the priming parts of a session context from raw
// attachments. Images stay inline binary; text and registered extractable
// types become text blobs; everything else is rejected as a validation error
// before any network call happens.
type PrimingBuilder struct {
	maxBytes   int
	extractors map[string]TextExtractor
	parts      []core.PrimingPart
}

// NewPrimingBuilder builds a PrimingBuilder. maxBytes <= 0 selects
// DefaultMaxAttachmentBytes.
func NewPrimingBuilder(maxBytes int) *PrimingBuilder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	return &PrimingBuilder{
		maxBytes:   maxBytes,
		extractors: make(map[string]TextExtractor),
	}
}

// RegisterExtractor installs a text extractor for an exact media type.
func (b *PrimingBuilder) RegisterExtractor(mimeType string, e TextExtractor) {
	b.extractors[normalizeMIME(mimeType)] = e
}

// AddText appends a text-blob priming part directly.
func (b *PrimingBuilder) AddText(text string) {
	b.parts = append(b.parts, core.TextPart(text))
}

// Add validates and converts one attachment. Oversized data and media types
// with no conversion path are core.ErrorKindValidation errors.
func (b *PrimingBuilder) Add(data []byte, mimeType string) error {
	if len(data) > b.maxBytes {
		return core.Errorf(core.ErrorKindValidation, "priming.add",
			"attachment of %d bytes exceeds the %d byte limit", len(data), b.maxBytes)
	}
	mt := normalizeMIME(mimeType)

	if ex, ok := b.extractors[mt]; ok {
		text, err := ex.Extract(data)
		if err != nil {
			return core.NewError(core.ErrorKindValidation, "priming.add", err)
		}
		b.parts = append(b.parts, core.TextPart(text))
		return nil
	}

	switch {
	case strings.HasPrefix(mt, "image/"):
		b.parts = append(b.parts, core.InlinePart(data, mt))
	case strings.HasPrefix(mt, "text/"):
		b.parts = append(b.parts, core.TextPart(string(data)))
	default:
		return core.Errorf(core.ErrorKindValidation, "priming.add",
			"no conversion path for attachment type %q", mimeType)
	}
	return nil
}

// Parts returns a copy of the accumulated priming parts.
func (b *PrimingBuilder) Parts() []core.PrimingPart {
	out := make([]core.PrimingPart, len(b.parts))
	copy(out, b.parts)
	return out
}

// normalizeMIME lowercases a media type and drops any parameters.
func normalizeMIME(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
