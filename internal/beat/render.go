package beat

import (
	"fmt"
	"math"
)

const (
	renderChannels = 2
	stepsPerBeat   = 4

	// Peak-normalization target, about -1 dBFS.
	normalizeTarget = 0.891
)

// stereo placement per voice: left gain, right gain, and an overall level.
type placement struct {
	left  float64
	right float64
	gain  float64
}

var drumOrder = []string{DrumKick, DrumSnare, DrumHihat, DrumOpenhat, DrumClap}

var drumPlacements = map[string]placement{
	DrumKick:    {left: 0.71, right: 0.71, gain: 0.90},
	DrumSnare:   {left: 0.71, right: 0.71, gain: 0.80},
	DrumHihat:   {left: 0.55, right: 0.80, gain: 0.45},
	DrumOpenhat: {left: 0.50, right: 0.85, gain: 0.40},
	DrumClap:    {left: 0.80, right: 0.55, gain: 0.70},
}

var trackPlacements = map[string]placement{
	TrackBass: {left: 0.71, right: 0.71, gain: 0.85},
	TrackLead: {left: 0.65, right: 0.75, gain: 0.30},
}

// FramesPerStep converts a tempo into the length of one sixteenth-note step.
func FramesPerStep(tempo int) int {
	return SampleRate * 60 / (tempo * stepsPerBeat)
}

// Render synthesizes the pattern offline into interleaved stereo 16-bit PCM
// at 44.1 kHz. The buffer covers every step plus one beat of headroom so
// tail decays are not cut off, and is peak-normalized before conversion.
// Rendering is deterministic: the same pattern yields the same bytes.
func Render(p Pattern) ([]int16, error) {
	err := p.Validate()
	if err != nil {
		return nil, fmt.Errorf("cannot render pattern: %w", err)
	}

	framesPerStep := FramesPerStep(p.Tempo)
	totalFrames := framesPerStep * (p.Steps + stepsPerBeat)
	mix := make([]float64, totalFrames*renderChannels)
	noise := newNoiseSource(noiseSeed)

	for _, name := range drumOrder {
		row := p.Drums[name]
		if row == nil {
			continue
		}

		spot := drumPlacements[name]

		for step, hit := range row {
			if !hit {
				continue
			}

			addVoice(mix, synthDrum(name, noise), step*framesPerStep, spot)
		}
	}

	for _, track := range p.Tracks {
		renderTrack(mix, &track, framesPerStep, p.Steps)
	}

	return quantize(mix), nil
}

// RenderWAV renders the pattern and wraps it in a WAV container, returning
// the encoded bytes and the audio duration in seconds.
func RenderWAV(p Pattern) ([]byte, float64, error) {
	samples, err := Render(p)
	if err != nil {
		return nil, 0, err
	}

	duration := float64(len(samples)/renderChannels) / SampleRate

	return EncodeWAV(samples, SampleRate, renderChannels), duration, nil
}

func synthDrum(name string, noise *noiseSource) []float64 {
	switch name {
	case DrumKick:
		return synthKick()
	case DrumSnare:
		return synthSnare(noise)
	case DrumHihat:
		return synthClosedHat(noise)
	case DrumOpenhat:
		return synthOpenHat(noise)
	case DrumClap:
		return synthClap(noise)
	default:
		return nil
	}
}

// renderTrack walks a note track, grouping tied steps into single sustained
// notes. A run starts at any step carrying notes that is not itself a tie
// continuation and extends through every following tied step.
func renderTrack(mix []float64, track *NoteTrack, framesPerStep, steps int) {
	spot, ok := trackPlacements[track.Name]
	if !ok {
		return
	}

	for step := 0; step < steps; step++ {
		if len(track.Steps[step]) == 0 || track.tied(step) {
			continue
		}

		runLen := 1
		for step+runLen < steps && track.tied(step+runLen) {
			runLen++
		}

		sustain := float64(runLen*framesPerStep) / SampleRate

		for _, note := range track.Steps[step] {
			freq, err := NoteFrequency(note)
			if err != nil {
				continue
			}

			addVoice(mix, synthNote(track.Name, freq, sustain), step*framesPerStep, spot)
		}
	}
}

func synthNote(trackName string, freq, sustain float64) []float64 {
	if trackName == TrackBass {
		return synth808(freq, sustain)
	}

	return synthLead(freq, sustain)
}

// addVoice mixes a mono voice into the interleaved stereo buffer at the
// given start frame, clipping the tail at the buffer edge.
func addVoice(mix []float64, voice []float64, startFrame int, spot placement) {
	for i, sample := range voice {
		idx := (startFrame + i) * renderChannels
		if idx+1 >= len(mix) {
			return
		}

		mix[idx] += sample * spot.gain * spot.left
		mix[idx+1] += sample * spot.gain * spot.right
	}
}

// quantize peak-normalizes the float mix to the target level and converts it
// to int16, hard-clipping anything that still lands outside the range.
func quantize(mix []float64) []int16 {
	peak := 0.0

	for _, sample := range mix {
		if abs := math.Abs(sample); abs > peak {
			peak = abs
		}
	}

	scale := 1.0
	if peak > 0 {
		scale = normalizeTarget / peak
	}

	out := make([]int16, len(mix))

	for i, sample := range mix {
		value := sample * scale * math.MaxInt16

		switch {
		case value > math.MaxInt16:
			out[i] = math.MaxInt16
		case value < math.MinInt16:
			out[i] = math.MinInt16
		default:
			out[i] = int16(value)
		}
	}

	return out
}
