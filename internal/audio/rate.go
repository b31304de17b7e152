package audio

import (
	"io"
	"sync"
)

// rateReader sits between decoded PCM and oto. It steps through source
// frames by a fractional increment, which both converts the clip's sample
// rate to the output rate and applies the playback rate. Faster rates skip
// frames; slower rates repeat them.
type rateReader struct {
	mu    sync.Mutex
	pcm   *PCM
	pos   float64 // in source frames
	rate  float64
	ratio float64 // source rate / output rate
}

func newRateReader(pcm *PCM, rate float64) *rateReader {
	if rate <= 0 {
		rate = 1
	}
	return &rateReader{
		pcm:   pcm,
		rate:  rate,
		ratio: float64(pcm.SampleRate) / float64(SampleRate),
	}
}

func (r *rateReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := r.pcm.Frames()
	if int(r.pos) >= frames {
		return 0, io.EOF
	}

	outFrames := len(p) / frameSize
	if outFrames == 0 {
		return 0, io.ErrShortBuffer
	}

	step := r.rate * r.ratio
	written := 0
	for i := 0; i < outFrames; i++ {
		idx := int(r.pos)
		if idx >= frames {
			break
		}
		copy(p[written:written+frameSize], r.pcm.Data[idx*frameSize:(idx+1)*frameSize])
		written += frameSize
		r.pos += step
	}
	return written, nil
}

func (r *rateReader) setRate(rate float64) {
	if rate <= 0 {
		return
	}
	r.mu.Lock()
	r.rate = rate
	r.mu.Unlock()
}

// remaining is how many output frames are left at the current rate.
func (r *rateReader) remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	left := float64(r.pcm.Frames()) - r.pos
	if left <= 0 {
		return 0
	}
	return int(left / (r.rate * r.ratio))
}
