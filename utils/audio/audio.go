// Package audio holds small codec helpers shared by the capture and
// transcription paths: companded-to-PCM decoding and WAV container framing
// for HTTP transcription uploads.
package audio

import (
	"encoding/binary"

	"github.com/zaf/g711"

	"voxkit/core"
)

// DecodeToPCM converts a chunk to 16-bit little-endian PCM. PCM input passes
// through untouched; µ-law and A-law are expanded with g711.
func DecodeToPCM(chunk core.AudioChunk) (core.AudioChunk, error) {
	switch chunk.Format {
	case core.PCM:
		return chunk, nil
	case core.ULAW:
		chunk.Data = g711.DecodeUlaw(chunk.Data)
	case core.ALAW:
		chunk.Data = g711.DecodeAlaw(chunk.Data)
	default:
		return core.AudioChunk{}, core.Errorf(core.ErrorKindValidation, "audio.decode",
			"unknown audio encoding %d", chunk.Format)
	}
	chunk.Format = core.PCM
	return chunk, nil
}

// WAVFromPCM wraps 16-bit little-endian PCM samples in a canonical 44-byte
// RIFF/WAVE header. The result is a complete file image suitable for
// multipart upload.
func WAVFromPCM(pcm []byte, sampleRate, channels int) []byte {
	const headerSize = 44
	dataSize := len(pcm)
	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)
	return buf
}

// WAVFromChunk decodes a chunk to PCM and frames it as a WAV file image.
func WAVFromChunk(chunk core.AudioChunk) ([]byte, error) {
	pcm, err := DecodeToPCM(chunk)
	if err != nil {
		return nil, err
	}
	return WAVFromPCM(pcm.Data, pcm.SampleRate, pcm.Channels), nil
}
