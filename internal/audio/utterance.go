package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// ErrNoSpeech reports a capture window that never crossed the speech threshold.
var ErrNoSpeech = errors.New("no speech detected")

// UtteranceOptions bounds one voice command recording.
type UtteranceOptions struct {
	SampleRate int
	// MaxDuration caps the recording regardless of speech activity.
	MaxDuration time.Duration
	// Silence ends the recording once speech has started.
	Silence time.Duration
	// Threshold is the RMS level, in s16 units, that counts as speech.
	Threshold float64
}

func (o UtteranceOptions) withDefaults() UtteranceOptions {
	if o.SampleRate <= 0 {
		o.SampleRate = SampleRate
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 6 * time.Second
	}
	if o.Silence <= 0 {
		o.Silence = 900 * time.Millisecond
	}
	if o.Threshold <= 0 {
		o.Threshold = 500
	}
	return o
}

// CollectUtterance drains s16 mono chunks until trailing silence after speech,
// the maximum duration, or the end of the stream.
func CollectUtterance(ctx context.Context, chunks <-chan []byte, opts UtteranceOptions) ([]byte, error) {
	opts = opts.withDefaults()
	bytesPerSecond := opts.SampleRate * 2
	maxBytes := int(opts.MaxDuration.Seconds() * float64(bytesPerSecond))
	silenceBytes := int(opts.Silence.Seconds() * float64(bytesPerSecond))

	var (
		pcm     []byte
		heard   bool
		silence int
	)

	for {
		select {
		case <-ctx.Done():
			return pcm, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return finishUtterance(pcm, heard)
			}
			pcm = append(pcm, chunk...)

			if rms(chunk) >= opts.Threshold {
				heard = true
				silence = 0
			} else if heard {
				silence += len(chunk)
			}

			if heard && silence >= silenceBytes {
				return pcm, nil
			}
			if len(pcm) >= maxBytes {
				return finishUtterance(pcm, heard)
			}
		}
	}
}

func finishUtterance(pcm []byte, heard bool) ([]byte, error) {
	if !heard {
		return pcm, ErrNoSpeech
	}
	return pcm, nil
}

func rms(chunk []byte) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(chunk[2*i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
