// Package beat implements the step-sequencer engine: the grid pattern model,
// the procedural pattern composer, the offline synthesizer, and the WAV
// encoder. Patterns arrive as JSON from the browser grid or from the
// composer and leave as rendered 16-bit PCM.
package beat

import (
	"errors"
	"fmt"
)

// Tempo bounds in beats per minute.
const (
	MinTempo = 40
	MaxTempo = 240
)

// Drum row names. Each row is a boolean hit grid.
const (
	DrumKick    = "kick"
	DrumSnare   = "snare"
	DrumHihat   = "hihat"
	DrumOpenhat = "openhat"
	DrumClap    = "clap"
)

// Note track names. Each track carries per-step note lists plus a parallel
// merge array for ties.
const (
	TrackBass = "bass"
	TrackLead = "lead"
)

// Static errors.
var (
	ErrTempoOutOfRange = errors.New("tempo out of range")
	ErrBadStepCount    = errors.New("steps must be 8, 16, or 32")
	ErrUnknownDrum     = errors.New("unknown drum row")
	ErrUnknownTrack    = errors.New("unknown note track")
	ErrRowLength       = errors.New("row length does not match step count")
	ErrMergeLength     = errors.New("merge length does not match step count")
)

var validStepCounts = map[int]bool{
	8:  true,
	16: true,
	32: true,
}

var validDrums = map[string]bool{
	DrumKick:    true,
	DrumSnare:   true,
	DrumHihat:   true,
	DrumOpenhat: true,
	DrumClap:    true,
}

var validTracks = map[string]bool{
	TrackBass: true,
	TrackLead: true,
}

// NoteTrack is one melodic row of the grid. Steps holds the note names
// triggered at each step; Merge marks steps whose notes are tied to the
// previous step and sustain instead of re-attacking. An empty Merge array
// means no ties.
type NoteTrack struct {
	Name  string     `json:"name"`
	Steps [][]string `json:"steps"`
	Merge []bool     `json:"merge,omitempty"`
}

// Pattern is the full state of the sequencer grid.
type Pattern struct {
	Tempo  int               `json:"tempo"`
	Steps  int               `json:"steps"`
	Drums  map[string][]bool `json:"drums"`
	Tracks []NoteTrack       `json:"tracks"`
}

// Validate checks the pattern against the grid's structural rules: a sane
// tempo, a supported step count, known row names, rows sized to the step
// count, and note names that parse.
func (p *Pattern) Validate() error {
	if p.Tempo < MinTempo || p.Tempo > MaxTempo {
		return fmt.Errorf("%w: %d", ErrTempoOutOfRange, p.Tempo)
	}

	if !validStepCounts[p.Steps] {
		return fmt.Errorf("%w: got %d", ErrBadStepCount, p.Steps)
	}

	for name, row := range p.Drums {
		if !validDrums[name] {
			return fmt.Errorf("%w: %q", ErrUnknownDrum, name)
		}

		if len(row) != p.Steps {
			return fmt.Errorf("%w: drum %q has %d steps", ErrRowLength, name, len(row))
		}
	}

	for _, track := range p.Tracks {
		err := p.validateTrack(track)
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Pattern) validateTrack(track NoteTrack) error {
	if !validTracks[track.Name] {
		return fmt.Errorf("%w: %q", ErrUnknownTrack, track.Name)
	}

	if len(track.Steps) != p.Steps {
		return fmt.Errorf("%w: track %q has %d steps", ErrRowLength, track.Name, len(track.Steps))
	}

	if len(track.Merge) != 0 && len(track.Merge) != p.Steps {
		return fmt.Errorf("%w: track %q has %d merge flags", ErrMergeLength, track.Name, len(track.Merge))
	}

	for _, notes := range track.Steps {
		for _, note := range notes {
			_, err := NoteFrequency(note)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// tied reports whether step i of the track continues the previous step's
// notes instead of re-attacking them. Ties at step 0, on empty steps, and on
// steps whose notes differ from the previous step all play normally.
func (t *NoteTrack) tied(i int) bool {
	if i == 0 || len(t.Merge) == 0 || !t.Merge[i] {
		return false
	}

	if len(t.Steps[i]) == 0 || len(t.Steps[i]) != len(t.Steps[i-1]) {
		return false
	}

	for j, note := range t.Steps[i] {
		if t.Steps[i-1][j] != note {
			return false
		}
	}

	return true
}

// EmptyPattern returns a silent grid with the given step count, ready for
// the browser editor to fill in. Note steps are empty slices, not nil, so
// the JSON the browser receives holds arrays rather than nulls.
func EmptyPattern(tempo, steps int) Pattern {
	drums := make(map[string][]bool, len(validDrums))
	for name := range validDrums {
		drums[name] = make([]bool, steps)
	}

	tracks := []NoteTrack{
		{Name: TrackBass, Steps: emptyNoteSteps(steps), Merge: make([]bool, steps)},
		{Name: TrackLead, Steps: emptyNoteSteps(steps), Merge: make([]bool, steps)},
	}

	return Pattern{
		Tempo:  tempo,
		Steps:  steps,
		Drums:  drums,
		Tracks: tracks,
	}
}

func emptyNoteSteps(steps int) [][]string {
	rows := make([][]string, steps)
	for i := range rows {
		rows[i] = []string{}
	}

	return rows
}
