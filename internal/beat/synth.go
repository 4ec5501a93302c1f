package beat

import "math"

// SampleRate is the offline render rate in hertz.
const SampleRate = 44100

// Fixed seed for the render's noise source. Rendering the same pattern twice
// produces identical bytes.
const noiseSeed = 0x9E3779B97F4A7C15

const twoPi = 2 * math.Pi

// noiseSource is a small xorshift generator for percussion noise. math/rand
// is avoided here so a render never depends on global generator state.
type noiseSource struct {
	state uint64
}

func newNoiseSource(seed uint64) *noiseSource {
	if seed == 0 {
		seed = 1
	}

	return &noiseSource{state: seed}
}

// next returns a sample in [-1, 1).
func (n *noiseSource) next() float64 {
	n.state ^= n.state << 13
	n.state ^= n.state >> 7
	n.state ^= n.state << 17

	return float64(int64(n.state)) / float64(math.MaxInt64)
}

func frames(seconds float64) int {
	return int(seconds * SampleRate)
}

// synthKick renders one kick hit: a sine whose pitch falls from around 120 Hz
// to its 40 Hz floor with an exponential amplitude decay.
func synthKick() []float64 {
	out := make([]float64, frames(0.25))
	phase := 0.0

	for i := range out {
		t := float64(i) / SampleRate
		freq := 40 + 80*math.Exp(-t*35)
		phase += twoPi * freq / SampleRate
		out[i] = math.Sin(phase) * math.Exp(-t*12)
	}

	return out
}

// synthSnare renders one snare hit: a noise burst over a short 185 Hz tone.
func synthSnare(ns *noiseSource) []float64 {
	out := make([]float64, frames(0.18))

	for i := range out {
		t := float64(i) / SampleRate
		noise := ns.next() * math.Exp(-t*28) * 0.8
		tone := math.Sin(twoPi*185*t) * math.Exp(-t*35) * 0.5
		out[i] = noise + tone
	}

	return out
}

// synthHat renders a hi-hat as first-difference (high-passed) noise. The
// decay constant separates closed from open hats.
func synthHat(ns *noiseSource, seconds, decay float64) []float64 {
	out := make([]float64, frames(seconds))
	prev := 0.0

	for i := range out {
		t := float64(i) / SampleRate
		sample := ns.next()
		out[i] = (sample - prev) * math.Exp(-t*decay)
		prev = sample
	}

	return out
}

func synthClosedHat(ns *noiseSource) []float64 {
	return synthHat(ns, 0.07, 70)
}

func synthOpenHat(ns *noiseSource) []float64 {
	return synthHat(ns, 0.35, 9)
}

// synthClap renders three staggered noise bursts followed by a short tail,
// the usual trick for a clap's smeared attack.
func synthClap(ns *noiseSource) []float64 {
	out := make([]float64, frames(0.25))
	burstGap := frames(0.011)
	burstLen := frames(0.008)
	tailStart := frames(0.030)

	for i := range out {
		t := float64(i) / SampleRate
		amp := 0.0

		for burst := 0; burst < 3; burst++ {
			start := burst * burstGap
			if i >= start && i < start+burstLen {
				amp = 0.9
			}
		}

		if i >= tailStart {
			amp = math.Exp(-(t - 0.030) * 25)
		}

		out[i] = ns.next() * amp
	}

	return out
}

// synth808 renders a bass note: a sine gliding down to its target pitch with
// soft saturation, held for the sustain and released over 120 ms.
func synth808(freq, sustain float64) []float64 {
	release := 0.12
	out := make([]float64, frames(sustain+release))
	phase := 0.0

	for i := range out {
		t := float64(i) / SampleRate
		glide := freq * (1 + math.Exp(-t*90))
		phase += twoPi * glide / SampleRate

		env := 1.0
		if t < 0.004 {
			env = t / 0.004
		}

		if t > sustain {
			env = math.Exp(-(t - sustain) * 18)
		}

		out[i] = math.Tanh(1.8*math.Sin(phase)) * env
	}

	return out
}

// synthLead renders a melody note from two slightly detuned saws with a fast
// attack and a short release.
func synthLead(freq, sustain float64) []float64 {
	release := 0.06
	out := make([]float64, frames(sustain+release))

	for i := range out {
		t := float64(i) / SampleRate
		a := saw(freq * t)
		b := saw(freq * 1.003 * t)

		env := 1.0

		switch {
		case t < 0.008:
			env = t / 0.008
		case t > sustain:
			env = 0.6 * math.Exp(-(t-sustain)*35)
		case t > 0.05:
			env = 0.6
		}

		out[i] = (a + b) * 0.5 * env
	}

	return out
}

// saw maps a phase in cycles to a sawtooth in [-1, 1].
func saw(cycles float64) float64 {
	_, frac := math.Modf(cycles)

	return 2*frac - 1
}
