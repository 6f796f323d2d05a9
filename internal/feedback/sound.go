package feedback

import (
	"math"
	"time"
)

type cueKind int

const (
	cueListening cueKind = iota + 1
	cueComplete
	cueError
	cueHazard
)

const (
	cueSampleRate = 16000
	cueGain       = 0.18
	hazardHz      = 1320
	hazardGain    = 0.24
	rumbleHz      = 90
	rumbleGain    = 0.5

	noteGap = 22 * time.Millisecond
	rampMax = 5 * time.Millisecond
)

// note is one segment of a cue. A zero pitch is a rest.
type note struct {
	hz     float64
	length time.Duration
	gain   float64
}

func rest(d time.Duration) note { return note{length: d} }

// phrase joins notes at cue gain with a short rest between them.
func phrase(notes ...note) []note {
	out := make([]note, 0, 2*len(notes))
	for i, n := range notes {
		if i > 0 {
			out = append(out, rest(noteGap))
		}
		if n.gain == 0 {
			n.gain = cueGain
		}
		out = append(out, n)
	}
	return out
}

var (
	listeningCue = phrase(note{hz: 880, length: 70 * time.Millisecond}, note{hz: 1175, length: 70 * time.Millisecond})
	completeCue  = phrase(note{hz: 740, length: 65 * time.Millisecond}, note{hz: 988, length: 90 * time.Millisecond})
	errorCue     = phrase(note{hz: 480, length: 75 * time.Millisecond}, note{hz: 360, length: 90 * time.Millisecond})

	// defaultHazardRhythm is used when no haptic pattern is configured.
	defaultHazardRhythm = []time.Duration{90 * time.Millisecond, 22 * time.Millisecond, 90 * time.Millisecond, 22 * time.Millisecond, 90 * time.Millisecond}
)

// rhythm maps a vibration pattern onto notes: even entries sound at hz,
// odd entries rest.
func rhythm(pattern []time.Duration, hz, gain float64) []note {
	notes := make([]note, 0, len(pattern))
	for i, d := range pattern {
		if i%2 == 1 {
			notes = append(notes, rest(d))
			continue
		}
		notes = append(notes, note{hz: hz, length: d, gain: gain})
	}
	return notes
}

// cueNotes returns the notes for kind. The hazard cue follows pattern.
func cueNotes(kind cueKind, pattern []time.Duration) []note {
	switch kind {
	case cueListening:
		return listeningCue
	case cueComplete:
		return completeCue
	case cueError:
		return errorCue
	case cueHazard:
		if len(pattern) == 0 {
			pattern = defaultHazardRhythm
		}
		return rhythm(pattern, hazardHz, hazardGain)
	}
	return nil
}

// render turns notes into s16 PCM at cueSampleRate.
func render(notes []note) []int16 {
	total := 0
	for _, n := range notes {
		total += sampleCount(n.length)
	}
	pcm := make([]int16, 0, total)
	for _, n := range notes {
		if n.hz <= 0 || n.gain <= 0 {
			pcm = append(pcm, make([]int16, sampleCount(n.length))...)
			continue
		}
		pcm = append(pcm, sine(n)...)
	}
	return pcm
}

// sine renders one note with a linear fade at each end.
func sine(n note) []int16 {
	count := sampleCount(n.length)
	if count == 0 {
		return nil
	}
	ramp := min(max(count/10, 1), sampleCount(rampMax))

	pcm := make([]int16, count)
	step := 2 * math.Pi * n.hz / cueSampleRate
	for i := range pcm {
		edge := min(i, count-1-i)
		level := 1.0
		if edge < ramp {
			level = float64(edge) / float64(ramp)
		}
		pcm[i] = int16(math.Round(math.Sin(step*float64(i)) * n.gain * level * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
