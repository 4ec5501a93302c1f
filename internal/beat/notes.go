package beat

import (
	"errors"
	"fmt"
	"math"
)

// ErrBadNote is returned for note names outside the "C4" / "F#2" form.
var ErrBadNote = errors.New("unrecognized note name")

// Equal-temperament reference: A4 = 440 Hz = MIDI note 69.
const (
	referenceFrequency = 440.0
	referenceMIDI      = 69
	semitonesPerOctave = 12
	maxOctave          = 8
)

// semitoneOffsets maps a note letter to its semitone offset within the
// octave starting at C.
var semitoneOffsets = map[byte]int{
	'C': 0,
	'D': 2,
	'E': 4,
	'F': 5,
	'G': 7,
	'A': 9,
	'B': 11,
}

var noteLetters = [semitonesPerOctave]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// NoteFrequency converts a note name like "A4" or "C#2" to its frequency in
// hertz. Octaves 0 through 8 are accepted; flats are not.
func NoteFrequency(name string) (float64, error) {
	midi, err := noteToMIDI(name)
	if err != nil {
		return 0, err
	}

	exponent := float64(midi-referenceMIDI) / semitonesPerOctave

	return referenceFrequency * math.Pow(2, exponent), nil
}

func noteToMIDI(name string) (int, error) {
	if len(name) < 2 || len(name) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrBadNote, name)
	}

	letter := name[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}

	offset, ok := semitoneOffsets[letter]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadNote, name)
	}

	idx := 1
	if name[idx] == '#' {
		offset++
		idx++
	}

	if idx != len(name)-1 {
		return 0, fmt.Errorf("%w: %q", ErrBadNote, name)
	}

	digit := name[idx]
	if digit < '0' || digit > '0'+maxOctave {
		return 0, fmt.Errorf("%w: %q", ErrBadNote, name)
	}

	octave := int(digit - '0')

	return (octave+1)*semitonesPerOctave + offset, nil
}

// transposeNote shifts a note name by the given number of semitones,
// clamping to the supported octave range.
func transposeNote(name string, semitones int) (string, error) {
	midi, err := noteToMIDI(name)
	if err != nil {
		return "", err
	}

	midi += semitones

	lowest := semitonesPerOctave
	highest := (maxOctave+2)*semitonesPerOctave - 1

	if midi < lowest {
		midi = lowest
	}

	if midi > highest {
		midi = highest
	}

	octave := midi/semitonesPerOctave - 1
	letter := noteLetters[midi%semitonesPerOctave]

	return fmt.Sprintf("%s%d", letter, octave), nil
}
