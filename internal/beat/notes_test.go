package beat_test

import (
	"testing"

	"github.com/book-expert/beatlab/internal/beat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteFrequencyKnownPitches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want float64
	}{
		{name: "A4", want: 440.0},
		{name: "A3", want: 220.0},
		{name: "A5", want: 880.0},
		{name: "C4", want: 261.6256},
		{name: "E2", want: 82.4069},
		{name: "F#3", want: 184.9972},
	}

	for _, tt := range tests {
		got, err := beat.NoteFrequency(tt.name)
		require.NoError(t, err, "note %q", tt.name)
		assert.InDelta(t, tt.want, got, 0.001, "note %q", tt.name)
	}
}

func TestNoteFrequencyAcceptsLowercase(t *testing.T) {
	t.Parallel()

	upper, err := beat.NoteFrequency("G#2")
	require.NoError(t, err)

	lower, err := beat.NoteFrequency("g#2")
	require.NoError(t, err)

	assert.InDelta(t, upper, lower, 0.0001)
}

func TestNoteFrequencyRejectsMalformedNames(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "C", "H4", "C#", "C##4", "Cb4", "A9", "4C", "A-1"} {
		_, err := beat.NoteFrequency(name)
		assert.ErrorIs(t, err, beat.ErrBadNote, "note %q", name)
	}
}
