package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// Output format of every decoded clip and of the oto context.
const (
	SampleRate   = 44100
	ChannelCount = 2
	frameSize    = ChannelCount * 2 // 16-bit samples
)

// PCM is decoded audio: interleaved signed 16-bit little endian stereo.
type PCM struct {
	Data       []byte
	SampleRate int
}

// Frames is the number of stereo frames in the clip.
func (p *PCM) Frames() int {
	return len(p.Data) / frameSize
}

// Duration is the clip's length at normal rate.
func (p *PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}

type codec int

const (
	codecUnknown codec = iota
	codecMP3
	codecWAV
)

// sniffCodec looks at magic bytes first and falls back to the extension.
func sniffCodec(data []byte, name string) codec {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return codecWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return codecMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return codecMP3
	}

	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".mp3":
		return codecMP3
	case ".wav", ".wave":
		return codecWAV
	}
	return codecUnknown
}

// Decode turns an encoded clip into PCM. name is only used to guess the
// format when the content has no recognisable header.
func Decode(data []byte, name string) (*PCM, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty clip", ErrUnsupportedFormat)
	}

	switch sniffCodec(data, name) {
	case codecMP3:
		return decodeMP3(data)
	case codecWAV:
		return decodeWAV(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

func decodeMP3(data []byte) (*PCM, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %v", ErrUnsupportedFormat, err)
	}

	// go-mp3 always produces 16-bit stereo.
	pcm, err := io.ReadAll(dec)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}
	pcm = pcm[:len(pcm)-len(pcm)%frameSize]
	return &PCM{Data: pcm, SampleRate: dec.SampleRate()}, nil
}

type wavFormat struct {
	audioFormat   uint16
	channels      uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// decodeWAV walks the RIFF chunks for "fmt " and "data". Only 16-bit PCM,
// mono or stereo, is accepted.
func decodeWAV(wav []byte) (*PCM, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}

	var (
		format *wavFormat
		body   []byte
	)

	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		start := pos + 8
		end := start + chunkSize
		if end > len(wav) || end < start {
			end = len(wav)
		}

		switch chunkID {
		case "fmt ":
			if end-start < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedFormat)
			}
			c := wav[start:end]
			format = &wavFormat{
				audioFormat:   binary.LittleEndian.Uint16(c[0:2]),
				channels:      binary.LittleEndian.Uint16(c[2:4]),
				sampleRate:    binary.LittleEndian.Uint32(c[4:8]),
				bitsPerSample: binary.LittleEndian.Uint16(c[14:16]),
			}
		case "data":
			body = wav[start:end]
		}

		pos = end
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	switch {
	case format == nil:
		return nil, fmt.Errorf("%w: fmt chunk not found in WAV", ErrUnsupportedFormat)
	case body == nil:
		return nil, fmt.Errorf("%w: data chunk not found in WAV", ErrUnsupportedFormat)
	case format.audioFormat != 1 && format.audioFormat != 0xFFFE:
		return nil, fmt.Errorf("%w: WAV encoding %d is not PCM", ErrUnsupportedFormat, format.audioFormat)
	case format.bitsPerSample != 16:
		return nil, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, format.bitsPerSample)
	case format.sampleRate == 0:
		return nil, fmt.Errorf("%w: WAV sample rate is zero", ErrUnsupportedFormat)
	}

	switch format.channels {
	case 2:
		data := make([]byte, len(body)-len(body)%frameSize)
		copy(data, body)
		return &PCM{Data: data, SampleRate: int(format.sampleRate)}, nil
	case 1:
		samples := len(body) / 2
		data := make([]byte, samples*frameSize)
		for i := 0; i < samples; i++ {
			s := body[i*2 : i*2+2]
			copy(data[i*frameSize:], s)
			copy(data[i*frameSize+2:], s)
		}
		return &PCM{Data: data, SampleRate: int(format.sampleRate)}, nil
	default:
		return nil, fmt.Errorf("%w: %d-channel WAV", ErrUnsupportedFormat, format.channels)
	}
}
