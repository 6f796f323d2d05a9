package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/drishti-ai/drishti/internal/audio"
)

// ChunkSource is a running microphone stream.
type ChunkSource interface {
	Chunks() <-chan []byte
	Stop() error
}

// Transcriber converts one utterance to text.
type Transcriber interface {
	Recognize(ctx context.Context, pcm []byte) (string, error)
}

// ListenerOptions configures microphone selection and utterance bounds.
type ListenerOptions struct {
	Input     string
	Utterance audio.UtteranceOptions
}

// Listener records one utterance per session and recognizes it once.
type Listener struct {
	opts        ListenerOptions
	transcriber Transcriber
	logger      *slog.Logger

	open func(ctx context.Context) (ChunkSource, error)
}

// NewListener returns a listener recording from the configured Pulse source.
func NewListener(opts ListenerOptions, transcriber Transcriber, logger *slog.Logger) *Listener {
	l := &Listener{opts: opts, transcriber: transcriber, logger: logger}
	l.open = l.openPulse
	return l
}

// WithSource replaces the microphone source; used by tests and tools.
func (l *Listener) WithSource(open func(ctx context.Context) (ChunkSource, error)) *Listener {
	l.open = open
	return l
}

func (l *Listener) openPulse(ctx context.Context) (ChunkSource, error) {
	selection, err := audio.SelectMicrophone(ctx, l.opts.Input)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && l.logger != nil {
		l.logger.Warn(selection.Warning)
	}
	recording, err := audio.Record(ctx, selection.Microphone)
	if err != nil {
		return nil, err
	}
	if l.logger != nil {
		l.logger.Debug("listening", "microphone", selection.Microphone.String())
	}
	return recording, nil
}

// ListenSession is one in-flight recognition.
type ListenSession struct {
	cancel context.CancelFunc
	done   chan struct{}

	transcript string
	err        error
}

// Start begins recording immediately and returns the session.
func (l *Listener) Start(ctx context.Context) *ListenSession {
	ctx, cancel := context.WithCancel(ctx)
	s := &ListenSession{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		defer cancel()
		s.transcript, s.err = l.listen(ctx)
	}()
	return s
}

func (l *Listener) listen(ctx context.Context) (string, error) {
	source, err := l.open(ctx)
	if err != nil {
		return "", fmt.Errorf("open microphone: %w", err)
	}

	pcm, err := audio.CollectUtterance(ctx, source.Chunks(), l.opts.Utterance)
	_ = source.Stop()
	switch {
	case errors.Is(err, audio.ErrNoSpeech):
		return "", fmt.Errorf("%w: %w", ErrNoMatch, err)
	case err != nil:
		return "", err
	}

	return l.transcriber.Recognize(ctx, pcm)
}

// Stop cancels recording and recognition. It is safe to call repeatedly.
func (s *ListenSession) Stop() {
	s.cancel()
}

// Done is closed when the session has finished.
func (s *ListenSession) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns the transcript.
func (s *ListenSession) Wait() (string, error) {
	<-s.done
	return s.transcript, s.err
}
