package audio

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
)

// DecodePCM extracts mono 16-bit little-endian PCM sample bytes and the
// sample rate from a RIFF/WAVE byte slice, such as one produced by
// NewWavBuffer or returned from a TTS provider.
func DecodePCM(wavBytes []byte) (pcm []byte, sampleRate int, err error) {
	dec := wav.NewDecoder(bytes.NewReader(wavBytes))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("audio: not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: decode PCM buffer: %w", err)
	}

	out := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out, buf.Format.SampleRate, nil
}
