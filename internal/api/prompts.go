package api

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	carriageReturn = "\r\n"
	lineFeed       = "\n"
	maxHookLength  = 80
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// genreDescriptors maps each genre to a short composition description
// covering instrumentation and production style.
var genreDescriptors = map[string]string{
	"trap":    "hard-hitting trap beat with booming 808 bass, rapid hi-hat rolls and dark atmospheric pads",
	"boombap": "classic boom bap hip hop with dusty drum breaks, warm upright bass and chopped soul samples",
	"drill":   "menacing drill beat with sliding 808s, sparse icy keys and skittering hi-hats",
	"house":   "four-on-the-floor house groove with punchy kick, shuffling hats and warm analog chords",
	"pop":     "polished pop production with bright synths, tight drums and a catchy chord progression",
	"rnb":     "smooth rnb groove with lush electric piano, crisp snaps and deep sub bass",
	"lofi":    "lofi hip hop beat with vinyl crackle, mellow jazz chords and soft boom bap drums",
	"rock":    "driving rock track with electric guitar riffs, live drums and a solid bass foundation",
}

// moodDescriptors maps each mood to an atmosphere phrase.
var moodDescriptors = map[string]string{
	"dark":       "dark and brooding atmosphere",
	"uplifting":  "uplifting and triumphant energy",
	"chill":      "laid-back late-night feel",
	"aggressive": "aggressive high-energy delivery",
	"melancholy": "melancholic and introspective tone",
	"romantic":   "warm romantic undertones",
	"energetic":  "bouncy energetic drive",
}

// buildMusicPrompt turns genre and mood picks into a one-line instrumental
// composition prompt.
func buildMusicPrompt(genre, mood string) string {
	parts := []string{genreDescription(genre)}

	if moodPart := moodDescription(mood); moodPart != "" {
		parts = append(parts, moodPart)
	}

	parts = append(parts, "instrumental, no vocals")

	return strings.Join(parts, ", ")
}

// buildVocalPrompt describes a full song whose lead vocal carries the lyrics'
// opening hook, for the compose-then-isolate path.
func buildVocalPrompt(genre, mood, lyrics string) string {
	parts := []string{genreDescription(genre)}

	if moodPart := moodDescription(mood); moodPart != "" {
		parts = append(parts, moodPart)
	}

	base := strings.Join(parts, ", ")

	return fmt.Sprintf(
		"%s, clearly sung lead vocals carrying the hook %q, radio-ready mix",
		base,
		lyricHook(lyrics),
	)
}

// genreDescription falls back to a generic description so unknown genres
// still produce a usable prompt.
func genreDescription(genre string) string {
	genre = strings.ToLower(strings.TrimSpace(genre))
	if genre == "" {
		return "modern instrumental beat with punchy drums and deep bass"
	}

	if description, ok := genreDescriptors[genre]; ok {
		return description
	}

	return genre + " style beat, professional studio production"
}

func moodDescription(mood string) string {
	mood = strings.ToLower(strings.TrimSpace(mood))
	if mood == "" {
		return ""
	}

	if description, ok := moodDescriptors[mood]; ok {
		return description
	}

	return mood + " mood"
}

// lyricHook extracts the first non-empty lyric line, shortened to a length
// that fits in a prompt.
func lyricHook(lyrics string) string {
	for _, line := range strings.Split(lyrics, lineFeed) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if len(line) <= maxHookLength {
			return line
		}

		cut := strings.LastIndex(line[:maxHookLength], " ")
		if cut <= 0 {
			cut = maxHookLength
		}

		return line[:cut]
	}

	return ""
}

// normalizeLyrics flattens line endings, collapses runs of spaces inside each
// line, and squeezes repeated blank lines down to single stanza breaks.
func normalizeLyrics(raw string) string {
	raw = strings.ReplaceAll(raw, carriageReturn, lineFeed)

	lines := strings.Split(raw, lineFeed)
	out := make([]string, 0, len(lines))
	blankRun := 0

	for _, line := range lines {
		line = whitespacePattern.ReplaceAllString(strings.TrimSpace(line), " ")

		if line == "" {
			blankRun++

			continue
		}

		if blankRun > 0 && len(out) > 0 {
			out = append(out, "")
		}

		blankRun = 0

		out = append(out, line)
	}

	return strings.Join(out, lineFeed)
}
