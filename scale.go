package sonify

import (
	"fmt"
	"math"
)

// pentatonicRatios are the pitches of the major pentatonic scale relative to
// the root of the octave.
var pentatonicRatios = [...]float64{1, 1.125, 1.25, 1.5, 1.6875}

var noteNames = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Quantize snaps freq to the nearest pitch of the scale. Octaves are counted
// from MinFreq. Non-positive or non-finite input returns MinFreq.
func Quantize(freq float64, s Scale) float64 {
	if !(freq > 0) || math.IsInf(freq, 0) {
		return MinFreq
	}
	switch s {
	case Chromatic:
		semitones := math.Round(12 * math.Log2(freq/MinFreq))
		return MinFreq * math.Pow(2, semitones/12)
	default:
		octave := math.Floor(math.Log2(freq / MinFreq))
		base := MinFreq * math.Pow(2, octave)
		ratio := freq / base
		best, bestDist := pentatonicRatios[0], math.Inf(1)
		for _, r := range pentatonicRatios {
			if d := math.Abs(ratio - r); d < bestDist {
				best, bestDist = r, d
			}
		}
		if math.Abs(ratio-2) < bestDist {
			return base * 2
		}
		return base * best
	}
}

// MapFrequency maps y linearly from [lo, hi] onto [MinFreq, MaxFreq] and
// quantizes the result. If lo == hi every value maps to the middle of the
// band.
func MapFrequency(y, lo, hi float64, s Scale) float64 {
	return Quantize(RawFrequency(y, lo, hi), s)
}

// RawFrequency is MapFrequency without the quantization step.
func RawFrequency(y, lo, hi float64) float64 {
	if hi == lo {
		return (MinFreq + MaxFreq) / 2
	}
	return MinFreq + clamp((y-lo)/(hi-lo), 0, 1)*(MaxFreq-MinFreq)
}

// WithFrequencies returns a copy of the sequence with Frequency set on every
// sample.
func (s Sequence) WithFrequencies(scale Scale) Sequence {
	ret := s.Copy()
	if len(ret) == 0 {
		return ret
	}
	r := yRange(ret)
	for i := range ret {
		ret[i].Frequency = MapFrequency(ret[i].Y, r[0], r[1], scale)
	}
	return ret
}

// MIDINote returns the nearest MIDI note number of freq (A4 = 440 Hz = 69).
func MIDINote(freq float64) int {
	if !(freq > 0) {
		return 0
	}
	n := int(math.Round(69 + 12*math.Log2(freq/440)))
	return max(0, min(127, n))
}

// NoteName returns the scientific pitch name of the nearest note, e.g. "A4".
func NoteName(freq float64) string {
	n := MIDINote(freq)
	return fmt.Sprintf("%s%d", noteNames[n%12], n/12-1)
}

func yRange(seq Sequence) [2]float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range seq {
		lo = math.Min(lo, s.Y)
		hi = math.Max(hi, s.Y)
	}
	return [2]float64{lo, hi}
}

// RawFrequencies returns the unquantized frequency of every sample.
func (s Sequence) RawFrequencies() []float64 {
	r := yRange(s)
	ret := make([]float64, len(s))
	for i, sample := range s {
		ret[i] = RawFrequency(sample.Y, r[0], r[1])
	}
	return ret
}
