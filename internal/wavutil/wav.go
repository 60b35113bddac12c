// Package wavutil builds and inspects the WAV files produced by the speech
// pipeline. Gemini TTS returns raw 16-bit PCM; EncodePCM16 wraps it in a
// standard 44-byte RIFF header so downstream tools (ffmpeg, audio players)
// can read it, and Duration derives playback length from that same header.
package wavutil

import (
	"encoding/binary"
	"fmt"
)

// DefaultSampleRate is the sample rate of Gemini TTS output (24 kHz mono).
const DefaultSampleRate = 24000

const headerSize = 44

// EncodePCM16 wraps raw little-endian 16-bit mono PCM samples in a WAV
// (RIFF) container at the given sample rate.
func EncodePCM16(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	buf := make([]byte, headerSize+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                   // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[headerSize:], pcm)
	return buf
}

// Duration returns the playback length of a WAV file in seconds.
// Only the canonical PCM layout written by EncodePCM16 (and by Gemini's
// own WAV responses) is supported.
func Duration(wav []byte) (float64, error) {
	if len(wav) < headerSize {
		return 0, fmt.Errorf("wav too short: %d bytes", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	format := binary.LittleEndian.Uint16(wav[20:22])
	if format != 1 {
		return 0, fmt.Errorf("unsupported audio format %d (want PCM)", format)
	}

	byteRate := binary.LittleEndian.Uint32(wav[28:32])
	if byteRate == 0 {
		return 0, fmt.Errorf("invalid byte rate 0")
	}

	dataLen := binary.LittleEndian.Uint32(wav[40:44])
	if int(dataLen) > len(wav)-headerSize {
		dataLen = uint32(len(wav) - headerSize)
	}

	return float64(dataLen) / float64(byteRate), nil
}

// Concat joins several WAV files written by EncodePCM16 into one. All
// inputs must share the layout EncodePCM16 produces; sample data is
// concatenated and re-wrapped under a single header at the first file's
// sample rate.
func Concat(wavs ...[]byte) ([]byte, error) {
	if len(wavs) == 0 {
		return nil, fmt.Errorf("no wav inputs")
	}
	if len(wavs) == 1 {
		if _, err := Duration(wavs[0]); err != nil {
			return nil, err
		}
		return wavs[0], nil
	}

	var pcm []byte
	var sampleRate int
	for i, wav := range wavs {
		if _, err := Duration(wav); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		rate := int(binary.LittleEndian.Uint32(wav[24:28]))
		if i == 0 {
			sampleRate = rate
		} else if rate != sampleRate {
			return nil, fmt.Errorf("input %d sample rate %d differs from %d", i, rate, sampleRate)
		}
		pcm = append(pcm, wav[headerSize:]...)
	}

	return EncodePCM16(pcm, sampleRate), nil
}
