package beat_test

import (
	"math/rand"
	"testing"

	"github.com/book-expert/beatlab/internal/beat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenresSortedAndKnown(t *testing.T) {
	t.Parallel()

	genres := beat.Genres()
	assert.Equal(t, []string{"boombap", "drill", "house", "trap"}, genres)
}

func TestComposeProducesValidPatterns(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))

	for _, genre := range append(beat.Genres(), "default", "polka") {
		for range 20 {
			pattern := beat.Compose(genre, rng)

			require.NoError(t, pattern.Validate(), "genre %q", genre)
			assert.Equal(t, 16, pattern.Steps, "genre %q", genre)
		}
	}
}

func TestComposeTempoStaysInGenreRange(t *testing.T) {
	t.Parallel()

	ranges := map[string][2]int{
		"trap":    {130, 160},
		"boombap": {88, 104},
		"house":   {120, 128},
		"drill":   {138, 148},
	}

	rng := rand.New(rand.NewSource(2))

	for genre, bounds := range ranges {
		for range 50 {
			pattern := beat.Compose(genre, rng)

			assert.GreaterOrEqual(t, pattern.Tempo, bounds[0], "genre %q", genre)
			assert.LessOrEqual(t, pattern.Tempo, bounds[1], "genre %q", genre)
		}
	}
}

func TestComposeDeterministicForSeed(t *testing.T) {
	t.Parallel()

	first := beat.Compose("trap", rand.New(rand.NewSource(42)))
	second := beat.Compose("trap", rand.New(rand.NewSource(42)))

	assert.Equal(t, first, second)
}

func TestComposeUnknownGenreFallsBack(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))

	for range 20 {
		pattern := beat.Compose("vaporwave", rng)

		require.NoError(t, pattern.Validate())
		assert.GreaterOrEqual(t, pattern.Tempo, 95)
		assert.LessOrEqual(t, pattern.Tempo, 140)
	}
}

func TestComposeBassFollowsKick(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(4))
	pattern := beat.Compose("house", rng)

	bass := pattern.Tracks[0]
	for step, hit := range pattern.Drums[beat.DrumKick] {
		if hit {
			assert.NotEmpty(t, bass.Steps[step], "kick step %d has no bass note", step)
		}
	}
}
