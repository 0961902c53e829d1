package core

import "time"

// AudioEncodingFormat identifies the encoding of raw audio bytes.
type AudioEncodingFormat int

const (
	PCM  AudioEncodingFormat = iota // 16-bit little-endian pulse-code modulation
	ULAW                            // µ-law companded
	ALAW                            // A-law companded
)

func (f AudioEncodingFormat) String() string {
	switch f {
	case ULAW:
		return "ulaw"
	case ALAW:
		return "alaw"
	default:
		return "pcm"
	}
}

// AudioChunk is one slice of captured audio plus the metadata needed to
// interpret it.
type AudioChunk struct {
	Data       []byte
	SampleRate int
	Channels   int
	Format     AudioEncodingFormat
	Timestamp  time.Time
}

// DurationSeconds returns the chunk's play length. Companded formats carry
// one byte per sample; PCM carries two.
func (c AudioChunk) DurationSeconds() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	bytesPerSample := 2
	if c.Format == ULAW || c.Format == ALAW {
		bytesPerSample = 1
	}
	totalSamples := len(c.Data) / (bytesPerSample * c.Channels)
	return float64(totalSamples) / float64(c.SampleRate)
}
