package beat

import (
	"math/rand"
	"sort"
	"time"
)

// composeSteps is the grid size the composer writes. The browser editor can
// still resize afterwards.
const composeSteps = 16

// Probabilities used while laying out a random pattern.
const (
	ghostKickChance = 0.25
	leadNoteChance  = 0.30
	bassTieChance   = 0.35
	bassWalkChance  = 0.40
)

// rhythm templates are 16-step rows written as strings, one character per
// step, "x" marking a hit.
type genreProfile struct {
	tempoMin int
	tempoMax int
	kick     []string
	snare    []string
	hihat    []string
	openhat  []string
	clap     []string
	roots    []string
}

var genreProfiles = map[string]genreProfile{
	"trap": {
		tempoMin: 130,
		tempoMax: 160,
		kick: []string{
			"x..x..x...x..x..",
			"x.....x.x.....x.",
			"x..x...x..x....x",
		},
		snare: []string{
			"....x.......x...",
			"....x......x..x.",
		},
		hihat: []string{
			"xxxxxxxxxxxxxxxx",
			"x.xxx.xxx.xxx.xx",
			"xx.xxx.xxxx.xxxx",
		},
		openhat: []string{
			"......x.......x.",
			"..............x.",
		},
		clap: []string{
			"....x.......x...",
		},
		roots: []string{"C2", "D2", "F2", "G2", "A2"},
	},
	"boombap": {
		tempoMin: 88,
		tempoMax: 104,
		kick: []string{
			"x.x.....x..x....",
			"x.....x...x...x.",
		},
		snare: []string{
			"....x.......x...",
		},
		hihat: []string{
			"x.x.x.x.x.x.x.x.",
			"x.x.x.xxx.x.x.x.",
		},
		openhat: []string{
			"..............x.",
		},
		clap: []string{},
		roots: []string{"E2", "F2", "G2", "A2"},
	},
	"house": {
		tempoMin: 120,
		tempoMax: 128,
		kick: []string{
			"x...x...x...x...",
		},
		snare: []string{
			"....x.......x...",
		},
		hihat: []string{
			"..x...x...x...x.",
			"xxxxxxxxxxxxxxxx",
		},
		openhat: []string{
			"..x...x...x...x.",
		},
		clap: []string{
			"....x.......x...",
		},
		roots: []string{"A1", "C2", "D2", "E2"},
	},
	"drill": {
		tempoMin: 138,
		tempoMax: 148,
		kick: []string{
			"x.....x...x.x...",
			"x..x.....x..x...",
		},
		snare: []string{
			"......x.......x.",
			"....x.....x...x.",
		},
		hihat: []string{
			"x.xx.xx.x.xx.xx.",
			"xxxxxxxxxxxxxxxx",
		},
		openhat: []string{
			"........x.......",
		},
		clap: []string{},
		roots: []string{"C2", "C#2", "D#2", "F2"},
	},
	"default": {
		tempoMin: 95,
		tempoMax: 140,
		kick: []string{
			"x...x...x...x...",
			"x..x....x..x....",
		},
		snare: []string{
			"....x.......x...",
		},
		hihat: []string{
			"x.x.x.x.x.x.x.x.",
			"xxxxxxxxxxxxxxxx",
		},
		openhat: []string{
			"..............x.",
		},
		clap: []string{
			"....x.......x...",
		},
		roots: []string{"C2", "E2", "G2", "A2"},
	},
}

// minor pentatonic intervals, used to walk the 808 away from the root and to
// sprinkle lead notes two octaves above it.
var pentatonicOffsets = []int{0, 3, 5, 7, 10}

// Genres lists the composer's known styles, sorted for stable UI dropdowns.
func Genres() []string {
	names := make([]string, 0, len(genreProfiles))

	for name := range genreProfiles {
		if name == "default" {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Compose lays out a random pattern in the given genre: a random tempo from
// the genre's range, drum rows picked from the genre's rhythm templates, an
// 808 line anchored on the kick, and a sparse lead. Unknown genres use the
// default tables. Passing a nil rng seeds one from the clock; a caller-owned
// rng makes the result reproducible.
func Compose(genre string, rng *rand.Rand) Pattern {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	profile, ok := genreProfiles[genre]
	if !ok {
		profile = genreProfiles["default"]
	}

	pattern := EmptyPattern(
		profile.tempoMin+rng.Intn(profile.tempoMax-profile.tempoMin+1),
		composeSteps,
	)

	pattern.Drums[DrumKick] = pickTemplate(profile.kick, rng)
	pattern.Drums[DrumSnare] = pickTemplate(profile.snare, rng)
	pattern.Drums[DrumHihat] = pickTemplate(profile.hihat, rng)
	pattern.Drums[DrumOpenhat] = pickTemplate(profile.openhat, rng)
	pattern.Drums[DrumClap] = pickTemplate(profile.clap, rng)

	// An occasional extra kick keeps patterns from sounding copy-pasted.
	if rng.Float64() < ghostKickChance {
		pattern.Drums[DrumKick][rng.Intn(composeSteps)] = true
	}

	root := profile.roots[rng.Intn(len(profile.roots))]
	layBassLine(&pattern, root, rng)
	layLeadLine(&pattern, root, rng)

	return pattern
}

// pickTemplate parses one randomly chosen template string into a hit row. An
// empty template list yields a silent row.
func pickTemplate(templates []string, rng *rand.Rand) []bool {
	row := make([]bool, composeSteps)
	if len(templates) == 0 {
		return row
	}

	template := templates[rng.Intn(len(templates))]
	for i := 0; i < len(template) && i < composeSteps; i++ {
		row[i] = template[i] == 'x'
	}

	return row
}

// layBassLine anchors the 808 on the kick hits, occasionally walking to a
// pentatonic neighbor and occasionally tying a note through the next step.
func layBassLine(pattern *Pattern, root string, rng *rand.Rand) {
	track := &pattern.Tracks[0]

	for step, hit := range pattern.Drums[DrumKick] {
		if !hit {
			continue
		}

		note := root

		if rng.Float64() < bassWalkChance {
			offset := pentatonicOffsets[rng.Intn(len(pentatonicOffsets))]

			walked, err := transposeNote(root, offset)
			if err == nil {
				note = walked
			}
		}

		track.Steps[step] = []string{note}

		next := step + 1
		if next < pattern.Steps && !pattern.Drums[DrumKick][next] && rng.Float64() < bassTieChance {
			track.Steps[next] = []string{note}
			track.Merge[next] = true
		}
	}
}

// layLeadLine sprinkles short pentatonic notes two octaves above the root on
// steps that do not already carry a kick.
func layLeadLine(pattern *Pattern, root string, rng *rand.Rand) {
	track := &pattern.Tracks[1]

	high, err := transposeNote(root, 2*semitonesPerOctave)
	if err != nil {
		high = "C4"
	}

	for step := range track.Steps {
		if pattern.Drums[DrumKick][step] || rng.Float64() >= leadNoteChance {
			continue
		}

		offset := pentatonicOffsets[rng.Intn(len(pentatonicOffsets))]

		note, noteErr := transposeNote(high, offset)
		if noteErr != nil {
			continue
		}

		track.Steps[step] = []string{note}
	}
}
