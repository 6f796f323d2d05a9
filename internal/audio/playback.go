package audio

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/jfreymuth/pulse"
)

// Player plays mono signed 16-bit PCM.
type Player interface {
	Play(ctx context.Context, samples []int16, sampleRate int) error
}

// PulsePlayer plays PCM through the default Pulse sink.
type PulsePlayer struct {
	// MediaName labels the stream in mixer UIs.
	MediaName string
}

// Play blocks until samples drain or ctx is done. Cancellation cuts playback
// short at the next buffer boundary and returns ctx.Err().
func (p PulsePlayer) Play(ctx context.Context, samples []int16, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	mediaName := p.MediaName
	if mediaName == "" {
		mediaName = "drishti speech"
	}

	client, err := connect("audio-speakers")
	if err != nil {
		return err
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(mediaName),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play pcm stream: %w", err)
	}
	return ctx.Err()
}

// Samples decodes little-endian s16 PCM bytes. A trailing odd byte is dropped.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}
