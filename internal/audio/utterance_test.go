package audio

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func toneChunk(amplitude int16) []byte {
	chunk := make([]byte, chunkBytes)
	for i := 0; i < len(chunk)/2; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		binary.LittleEndian.PutUint16(chunk[2*i:], uint16(v))
	}
	return chunk
}

func feed(chunks ...[]byte) <-chan []byte {
	ch := make(chan []byte, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func TestCollectUtteranceStopsAfterTrailingSilence(t *testing.T) {
	opts := UtteranceOptions{Silence: 40 * time.Millisecond, MaxDuration: time.Second}

	// 20ms chunks: two silent, two loud, two silent ends the utterance, the rest is ignored.
	chunks := feed(
		toneChunk(0), toneChunk(0),
		toneChunk(4000), toneChunk(4000),
		toneChunk(0), toneChunk(0),
		toneChunk(4000), toneChunk(4000),
	)

	pcm, err := CollectUtterance(context.Background(), chunks, opts)
	require.NoError(t, err)
	require.Len(t, pcm, 6*chunkBytes)
}

func TestCollectUtteranceCapsAtMaxDuration(t *testing.T) {
	opts := UtteranceOptions{Silence: time.Second, MaxDuration: 60 * time.Millisecond}

	chunks := feed(toneChunk(4000), toneChunk(4000), toneChunk(4000), toneChunk(4000), toneChunk(4000))
	pcm, err := CollectUtterance(context.Background(), chunks, opts)
	require.NoError(t, err)
	require.Len(t, pcm, 3*chunkBytes)
}

func TestCollectUtteranceReportsNoSpeech(t *testing.T) {
	pcm, err := CollectUtterance(context.Background(), feed(toneChunk(10), toneChunk(0)), UtteranceOptions{})
	require.ErrorIs(t, err, ErrNoSpeech)
	require.Len(t, pcm, 2*chunkBytes)
}

func TestCollectUtteranceHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CollectUtterance(ctx, make(chan []byte), UtteranceOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRMS(t *testing.T) {
	require.Zero(t, rms(nil))
	require.InDelta(t, 1000, rms(toneChunk(1000)), 0.001)
}
