package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxkit/core"
)

func TestDecodeToPCMPassesPCMThrough(t *testing.T) {
	in := core.AudioChunk{
		Data:       []byte{1, 2, 3, 4},
		SampleRate: 16000,
		Channels:   1,
		Format:     core.PCM,
	}
	out, err := DecodeToPCM(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeToPCMExpandsCompanded(t *testing.T) {
	for _, format := range []core.AudioEncodingFormat{core.ULAW, core.ALAW} {
		in := core.AudioChunk{
			Data:       make([]byte, 160),
			SampleRate: 8000,
			Channels:   1,
			Format:     format,
		}
		out, err := DecodeToPCM(in)
		require.NoError(t, err)
		assert.Equal(t, core.PCM, out.Format)
		// Companded bytes expand 1:2 into 16-bit samples.
		assert.Len(t, out.Data, 320)
		assert.Equal(t, 8000, out.SampleRate)
	}
}

func TestDecodeToPCMRejectsUnknownEncoding(t *testing.T) {
	_, err := DecodeToPCM(core.AudioChunk{Format: core.AudioEncodingFormat(99)})
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
}

func TestWAVFromPCMHeader(t *testing.T) {
	pcm := make([]byte, 320)
	wav := WAVFromPCM(pcm, 16000, 1)

	require.Len(t, wav, 44+320)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, "data", string(wav[36:40]))

	assert.EqualValues(t, 36+320, binary.LittleEndian.Uint32(wav[4:8]))
	assert.EqualValues(t, 1, binary.LittleEndian.Uint16(wav[20:22]), "PCM format tag")
	assert.EqualValues(t, 1, binary.LittleEndian.Uint16(wav[22:24]))
	assert.EqualValues(t, 16000, binary.LittleEndian.Uint32(wav[24:28]))
	assert.EqualValues(t, 32000, binary.LittleEndian.Uint32(wav[28:32]), "byte rate")
	assert.EqualValues(t, 2, binary.LittleEndian.Uint16(wav[32:34]), "block align")
	assert.EqualValues(t, 16, binary.LittleEndian.Uint16(wav[34:36]))
	assert.EqualValues(t, 320, binary.LittleEndian.Uint32(wav[40:44]))
}

func TestWAVFromChunkDecodesFirst(t *testing.T) {
	wav, err := WAVFromChunk(core.AudioChunk{
		Data:       make([]byte, 80),
		SampleRate: 8000,
		Channels:   1,
		Format:     core.ULAW,
	})
	require.NoError(t, err)
	// 80 µ-law bytes become 160 PCM bytes behind the 44-byte header.
	assert.Len(t, wav, 44+160)
	assert.EqualValues(t, 160, binary.LittleEndian.Uint32(wav[40:44]))
}
