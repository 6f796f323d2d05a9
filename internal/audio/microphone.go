// Package audio records voice commands and plays speech through PulseAudio.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// SampleRate is the capture and playback rate used for speech.
	SampleRate = 16000

	// chunkBytes is 20ms of s16 mono audio.
	chunkBytes      = SampleRate / 50 * 2
	applicationName = "drishti"
	invalidIndex    = ^uint32(0)
)

// ErrNoMicrophone means Pulse exposes no recordable source.
var ErrNoMicrophone = errors.New("no microphone found")

// Microphone is one Pulse input source that can record speech.
type Microphone struct {
	ID          string
	Description string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the source can record right now.
func (m Microphone) Usable() bool {
	return m.Available && !m.Muted
}

// String formats the source for logs and doctor output.
func (m Microphone) String() string {
	desc, id := strings.TrimSpace(m.Description), strings.TrimSpace(m.ID)
	switch {
	case desc == "":
		return id
	case id == "":
		return desc
	}
	return fmt.Sprintf("%s (%s)", desc, id)
}

// Selection is the microphone to record from. Warning is set when the
// configured input was skipped in favour of the default source.
type Selection struct {
	Microphone Microphone
	Warning    string
}

func connect(icon string) (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(applicationName),
		pulse.ClientApplicationIconName(icon),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListMicrophones returns the Pulse sources, leaving out sink monitors so
// speech output is never recorded as a command.
func ListMicrophones(context.Context) ([]Microphone, error) {
	client, err := connect("audio-input-microphone")
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return microphonesFrom(infos, defaultSource.ID()), nil
}

func microphonesFrom(infos pulseproto.GetSourceInfoListReply, defaultID string) []Microphone {
	mics := make([]Microphone, 0, len(infos))
	for _, info := range infos {
		if info == nil || info.MonitorSourceIndex != invalidIndex {
			continue
		}
		mics = append(mics, Microphone{
			ID:          info.SourceName,
			Description: info.Device,
			Available:   activePortAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultID,
		})
	}
	return mics
}

// activePortAvailable treats unknown (0) and yes (2) as available.
func activePortAvailable(info *pulseproto.GetSourceInfoReply) bool {
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			return port.Available != 1
		}
	}
	return true
}

// SelectMicrophone resolves speech.input against the live sources.
func SelectMicrophone(ctx context.Context, input string) (Selection, error) {
	mics, err := ListMicrophones(ctx)
	if err != nil {
		return Selection{}, err
	}
	return choose(mics, input)
}

// choose picks the first usable source matching input by id or description.
// "default" or an empty input means the Pulse default. A configured source
// that is muted or unplugged yields the default with a warning.
func choose(mics []Microphone, input string) (Selection, error) {
	if len(mics) == 0 {
		return Selection{}, ErrNoMicrophone
	}
	term := strings.ToLower(strings.TrimSpace(input))

	var fallback *Microphone
	for i := range mics {
		if mics[i].Default {
			fallback = &mics[i]
			break
		}
	}

	if term != "" && term != "default" {
		var matched *Microphone
		for i := range mics {
			if !matches(mics[i], term) {
				continue
			}
			if mics[i].Usable() {
				return Selection{Microphone: mics[i]}, nil
			}
			if matched == nil {
				matched = &mics[i]
			}
		}
		if matched == nil {
			return Selection{}, fmt.Errorf("speech.input %q did not match any microphone", input)
		}
		if fallback == nil || !fallback.Usable() {
			return Selection{}, fmt.Errorf("microphone %q is %s and the default source is unusable", matched.ID, reason(*matched))
		}
		return Selection{
			Microphone: *fallback,
			Warning:    fmt.Sprintf("microphone %q is %s; using default %q", matched.ID, reason(*matched), fallback.ID),
		}, nil
	}

	if fallback == nil {
		return Selection{}, errors.New("default audio source is not a microphone")
	}
	if !fallback.Usable() {
		return Selection{}, fmt.Errorf("default microphone %q is %s", fallback.ID, reason(*fallback))
	}
	return Selection{Microphone: *fallback}, nil
}

func matches(m Microphone, term string) bool {
	return strings.Contains(strings.ToLower(m.ID), term) ||
		strings.Contains(strings.ToLower(m.Description), term)
}

func reason(m Microphone) string {
	if m.Muted {
		return "muted"
	}
	return "unavailable"
}

// Recording streams 20ms PCM chunks from one microphone.
type Recording struct {
	client *pulse.Client
	stream *pulse.RecordStream
	chunks chan []byte
	done   chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool
	writers sync.WaitGroup
}

// Record starts a 16kHz mono s16 stream from mic. It stops when ctx ends.
func Record(ctx context.Context, mic Microphone) (*Recording, error) {
	client, err := connect("audio-input-microphone")
	if err != nil {
		return nil, err
	}
	source, err := client.SourceByID(mic.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open microphone %q: %w", mic.ID, err)
	}

	r := newRecording()
	r.client = client
	stream, err := client.NewRecord(
		pulse.NewWriter(sinkFunc(r.write), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(chunkBytes),
		pulse.RecordMediaName("drishti voice command"),
	)
	if err != nil {
		_ = r.Stop()
		return nil, fmt.Errorf("start recording: %w", err)
	}
	r.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = r.Stop()
		case <-r.done:
		}
	}()
	return r, nil
}

func newRecording() *Recording {
	return &Recording{chunks: make(chan []byte, 128), done: make(chan struct{})}
}

// Chunks yields fixed-size PCM and is closed by Stop.
func (r *Recording) Chunks() <-chan []byte {
	return r.chunks
}

// Stop ends the stream, emits any partial chunk and closes Chunks. Repeated
// calls are no-ops.
func (r *Recording) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.done)
	r.mu.Unlock()

	if r.stream != nil {
		r.stream.Stop()
		r.stream.Close()
	}
	if r.client != nil {
		r.client.Close()
	}
	r.writers.Wait()

	r.mu.Lock()
	rest := r.pending
	r.pending = nil
	r.mu.Unlock()
	if len(rest) > 0 {
		select {
		case r.chunks <- rest:
		default:
		}
	}
	close(r.chunks)
	return nil
}

// write is the Pulse record callback. It re-slices arbitrary buffers into
// chunkBytes pieces.
func (r *Recording) write(buf []byte) (int, error) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return 0, io.EOF
	}
	r.writers.Add(1)
	defer r.writers.Done()

	r.pending = append(r.pending, buf...)
	var ready [][]byte
	for len(r.pending) >= chunkBytes {
		ready = append(ready, r.pending[:chunkBytes:chunkBytes])
		r.pending = append([]byte(nil), r.pending[chunkBytes:]...)
	}
	r.mu.Unlock()

	for _, chunk := range ready {
		select {
		case r.chunks <- chunk:
		case <-r.done:
			return 0, io.EOF
		}
	}
	return len(buf), nil
}

type sinkFunc func([]byte) (int, error)

func (f sinkFunc) Write(b []byte) (int, error) {
	return f(b)
}
