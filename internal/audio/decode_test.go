package audio

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWAV(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		rate     int
		frames   int
	}{
		{"stereo", 2, 44100, 441},
		{"mono", 1, 22050, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm, err := Decode(makeWAV(tt.channels, tt.rate, tt.frames), "clip.wav")
			require.NoError(t, err)
			assert.Equal(t, tt.rate, pcm.SampleRate)
			assert.Equal(t, tt.frames, pcm.Frames())

			left := leftSamples(pcm.Data)
			assert.Equal(t, int16(0), left[0])
			assert.Equal(t, int16(tt.frames-1), left[len(left)-1])
		})
	}
}

func TestDecodeMonoDuplicatesChannels(t *testing.T) {
	pcm, err := Decode(makeWAV(1, 44100, 3), "")
	require.NoError(t, err)
	// frame 2: left == right == 2
	assert.Equal(t, []byte{2, 0, 2, 0}, pcm.Data[8:12])
}

func TestDecodeDuration(t *testing.T) {
	pcm, err := Decode(makeWAV(2, 44100, 44100), "x.wav")
	require.NoError(t, err)
	assert.Equal(t, time.Second, pcm.Duration())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		file string
	}{
		{"empty", nil, "a.wav"},
		{"unknown", []byte("hello world"), "a.txt"},
		{"truncated riff", []byte("RIFF\x00\x00\x00\x00WAVE"), "a.wav"},
		{"riff without wave", []byte("RIFF\x00\x00\x00\x00AVI LIST"), "a.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, tt.file)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedFormat), "got %v", err)
		})
	}
}

func TestSniffCodec(t *testing.T) {
	assert.Equal(t, codecWAV, sniffCodec(makeWAV(1, 8000, 1), "x.mp3"))
	assert.Equal(t, codecMP3, sniffCodec([]byte("ID3\x04"), "x"))
	assert.Equal(t, codecMP3, sniffCodec([]byte{0xFF, 0xFB, 0x90}, ""))
	assert.Equal(t, codecMP3, sniffCodec([]byte("...."), "https://x/a.MP3?v=2"))
	assert.Equal(t, codecWAV, sniffCodec([]byte("...."), "a.wav"))
	assert.Equal(t, codecUnknown, sniffCodec([]byte("...."), "a.ogg"))
}

func readAll(t *testing.T, r io.Reader, chunk int) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, chunk)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
	}
}

func TestRateReader(t *testing.T) {
	pcm, err := Decode(makeWAV(2, SampleRate, 100), "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		rate   float64
		frames int
		third  int16
	}{
		{"normal", 1, 100, 2},
		{"double", 2, 50, 4},
		{"half", 0.5, 200, 1},
		{"three quarters", 0.75, 134, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRateReader(pcm, tt.rate)
			left := leftSamples(readAll(t, r, 64*frameSize))
			assert.Len(t, left, tt.frames)
			assert.Equal(t, tt.third, left[2])
		})
	}
}

func TestRateReaderResamples(t *testing.T) {
	pcm, err := Decode(makeWAV(1, SampleRate/2, 50), "")
	require.NoError(t, err)

	r := newRateReader(pcm, 1)
	assert.Equal(t, 100, r.remaining())
	left := leftSamples(readAll(t, r, 7*frameSize))
	assert.Len(t, left, 100)
	assert.Equal(t, []int16{0, 0, 1, 1}, left[:4])
}

func TestRateReaderSetRate(t *testing.T) {
	pcm, err := Decode(makeWAV(2, SampleRate, 100), "")
	require.NoError(t, err)

	r := newRateReader(pcm, 1)
	buf := make([]byte, 10*frameSize)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 10*frameSize, n)

	r.setRate(2)
	r.setRate(0) // ignored
	assert.Equal(t, 45, r.remaining())

	_, err = r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.ErrShortBuffer)
}
