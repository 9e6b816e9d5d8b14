package sonify

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/viterin/vek"
	"gonum.org/v1/gonum/stat"
)

type (
	// Properties are derived from a sequence and recomputed whenever the
	// sequence changes.
	Properties struct {
		Domain    [2]float64
		Range     [2]float64
		Periodic  bool
		Symmetric bool
		Monotonic bool
		// DominantPeriod is the length, in samples, of the strongest cycle
		// found by a Fourier transform of y. Zero if none was found.
		DominantPeriod float64 `yaml:",omitempty"`
	}

	// Stats summarize a tabular sequence.
	Stats struct {
		Min    float64
		Max    float64
		Mean   float64
		StdDev float64
		Trend  Trend
	}

	Trend int
)

const (
	Mixed Trend = iota
	Rising
	Falling
)

// Heuristic thresholds of the analyzer. Tolerances are fractions of the y
// span plus one.
var (
	SymmetryTolerance   = 0.01
	PeriodTolerance     = 0.05
	PeriodMatchRatio    = 0.85
	MonotonicNoiseFloor = 1e-10
	MinPeriodicSamples  = 20
)

var trendNames = [...]string{"mixed", "rising", "falling"}

func (t Trend) String() string {
	if t < 0 || int(t) >= len(trendNames) {
		return "unknown"
	}
	return trendNames[t]
}

func (t Trend) MarshalYAML() (any, error) { return t.String(), nil }

// Analyze computes the properties of a sequence. domain is the x interval that
// produced it; for function sequences that is [XMin, XMax].
func Analyze(seq Sequence, domain [2]float64) Properties {
	p := Properties{Domain: domain}
	if len(seq) == 0 {
		return p
	}
	ys := seq.Ys()
	p.Range = [2]float64{vek.Min(ys), vek.Max(ys)}
	span := p.Range[1] - p.Range[0]
	p.Symmetric = isSymmetric(ys, span)
	p.Monotonic = isMonotonic(ys)
	p.Periodic = isPeriodic(ys, span)
	p.DominantPeriod = dominantPeriod(ys)
	return p
}

// SequenceDomain returns the [min, max] of the x values.
func SequenceDomain(seq Sequence) [2]float64 {
	if len(seq) == 0 {
		return [2]float64{}
	}
	xs := seq.Xs()
	return [2]float64{vek.Min(xs), vek.Max(xs)}
}

func isSymmetric(ys []float64, span float64) bool {
	tol := SymmetryTolerance * (span + 1)
	n := len(ys)
	for i := 0; i < n/2; i++ {
		if math.Abs(ys[i]-ys[n-1-i]) > tol {
			return false
		}
	}
	return true
}

func isMonotonic(ys []float64) bool {
	dir := 0.0
	for i := 1; i < len(ys); i++ {
		d := ys[i] - ys[i-1]
		if math.Abs(d) < MonotonicNoiseFloor {
			continue
		}
		if dir == 0 {
			dir = math.Copysign(1, d)
			continue
		}
		if math.Copysign(1, d) != dir {
			return false
		}
	}
	return true
}

func isPeriodic(ys []float64, span float64) bool {
	if len(ys) <= MinPeriodicSamples {
		return false
	}
	half := len(ys) / 2
	tol := PeriodTolerance * (span + 1)
	matches := 0
	for i := 0; i < half; i++ {
		if math.Abs(ys[i]-ys[half+i]) <= tol {
			matches++
		}
	}
	return float64(matches) > PeriodMatchRatio*float64(half)
}

func dominantPeriod(ys []float64) float64 {
	n := len(ys)
	if n < 4 {
		return 0
	}
	centered := vek.SubNumber(ys, vek.Mean(ys))
	spectrum := fft.FFTReal(centered)
	best, bestPower := 0, 0.0
	for k := 1; k <= n/2; k++ {
		power := cmplx.Abs(spectrum[k])
		if power > bestPower {
			best, bestPower = k, power
		}
	}
	if best == 0 || bestPower < 1e-9*float64(n) {
		return 0
	}
	return float64(n) / float64(best)
}

// TableStats summarizes the y values of a sequence. The trend compares the
// average of the first quarter of the samples to that of the last quarter:
// a difference larger than a quarter of the standard deviation is Rising or
// Falling, anything else Mixed.
func TableStats(seq Sequence) Stats {
	if len(seq) == 0 {
		return Stats{}
	}
	ys := seq.Ys()
	mean, std := stat.PopMeanStdDev(ys, nil)
	if math.IsNaN(std) {
		std = 0
	}
	s := Stats{
		Min:    vek.Min(ys),
		Max:    vek.Max(ys),
		Mean:   mean,
		StdDev: std,
	}
	q := max(1, len(ys)/4)
	first := vek.Mean(ys[:q])
	last := vek.Mean(ys[len(ys)-q:])
	switch margin := 0.25 * std; {
	case last-first > margin:
		s.Trend = Rising
	case first-last > margin:
		s.Trend = Falling
	default:
		s.Trend = Mixed
	}
	return s
}
