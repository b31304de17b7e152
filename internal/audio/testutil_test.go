package audio

import (
	"bytes"
	"encoding/binary"
)

// makeWAV builds a 16-bit PCM WAV file. Each sample value is its index.
func makeWAV(channels, sampleRate, frames int) []byte {
	var pcm bytes.Buffer
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			_ = binary.Write(&pcm, binary.LittleEndian, int16(i))
		}
	}

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(4+8+16+8+8+pcm.Len()+2))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate*channels*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))

	// An odd-sized chunk before data exercises the word alignment.
	b.WriteString("LIST")
	_ = binary.Write(&b, binary.LittleEndian, uint32(3))
	b.Write([]byte{'a', 'b', 'c', 0})

	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(pcm.Len()))
	b.Write(pcm.Bytes())
	return b.Bytes()
}

// leftSamples returns the left channel of stereo s16le data.
func leftSamples(data []byte) []int16 {
	out := make([]int16, 0, len(data)/frameSize)
	for i := 0; i+frameSize <= len(data); i += frameSize {
		out = append(out, int16(binary.LittleEndian.Uint16(data[i:i+2])))
	}
	return out
}
