package sonify

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type (
	// Sample is one point of a sonified sequence. X is either a domain
	// coordinate or, for categorical table columns, the ordinal position of the
	// row; in the latter case Label holds the original text. Frequency is the
	// quantized pitch computed for playback, zero when not computed yet.
	Sample struct {
		X         float64
		Y         float64
		Frequency float64 `yaml:",omitempty"`
		Label     string  `yaml:",omitempty"`
	}

	// Sequence is an ordered list of samples. The order is the playback order
	// and is never changed once the sequence is built.
	Sequence []Sample

	// DomainSpec describes the sampling of a function: Resolution points
	// spread evenly over [XMin, XMax].
	DomainSpec struct {
		XMin       float64
		XMax       float64
		Resolution int
	}

	Scale int

	// PlaybackParams control how a sequence is played. Duration is the
	// nominal length of the whole sequence at speed 1.
	PlaybackParams struct {
		Speed    float64
		Volume   float64
		Scale    Scale
		Duration time.Duration
	}

	// Evaluator evaluates a symbolic expression with x bound to the given
	// value.
	Evaluator interface {
		Evaluate(expression string, x float64) (float64, error)
	}

	// EvaluatorFunc adapts a plain function to an Evaluator.
	EvaluatorFunc func(expression string, x float64) (float64, error)

	// TableParser splits raw tabular text into rows of cells.
	TableParser interface {
		Parse(text string) ([][]string, error)
	}

	// Transport is the clock that fires scheduled callbacks. Schedule times
	// are relative to the moment Start was called; callbacks receive their
	// scheduled time. CancelAll drops every pending callback.
	Transport interface {
		Start() error
		Stop()
		Schedule(at time.Duration, callback func(at time.Duration)) Handle
		CancelAll()
	}

	Handle int

	// Voice is a monophonic tone generator with its effect chain. Volume is
	// linear in [0, 1]; voices convert it to their native units.
	Voice interface {
		TriggerAttackRelease(frequency float64, length time.Duration, at time.Duration)
		SetVolume(volume float64)
		Dispose() error
	}

	// Synther acquires voices for playback sessions.
	Synther interface {
		Name() string
		Voice(volume float64) (Voice, error)
	}
)

const (
	Pentatonic Scale = iota
	Chromatic
)

const (
	MinFreq = 130.81 // C3
	MaxFreq = 1046.50 // C6

	MinResolution = 10
	MaxResolution = 500

	// MinY and MaxY bound function values so that a single spike cannot
	// squash the rest of the curve into one pitch.
	MinY = -10
	MaxY = 10
)

var ErrInvalidDomain = errors.New("domain must satisfy xMin < xMax")

var scaleNames = [...]string{"pentatonic", "chromatic"}

func (s Scale) String() string {
	if s < 0 || int(s) >= len(scaleNames) {
		return fmt.Sprintf("Scale(%d)", int(s))
	}
	return scaleNames[s]
}

// ParseScale parses a scale name as printed by Scale.String.
func ParseScale(name string) (Scale, error) {
	for i, n := range scaleNames {
		if n == name {
			return Scale(i), nil
		}
	}
	return Pentatonic, fmt.Errorf("unknown scale %q", name)
}

func (s Scale) MarshalYAML() (any, error) { return s.String(), nil }

func (s *Scale) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	v, err := ParseScale(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (f EvaluatorFunc) Evaluate(expression string, x float64) (float64, error) {
	return f(expression, x)
}

// Validate checks the invariants of the domain. Resolution is not checked
// here, use ClampResolution for that.
func (d DomainSpec) Validate() error {
	if !(d.XMin < d.XMax) || math.IsInf(d.XMin, 0) || math.IsInf(d.XMax, 0) {
		return ErrInvalidDomain
	}
	return nil
}

func ClampResolution(n int) int {
	return max(min(n, MaxResolution), MinResolution)
}

// Timing returns the spacing between consecutive notes and the length of
// each note when n samples are played with these parameters.
func (p PlaybackParams) Timing(n int) (spacing, length, total time.Duration) {
	if n <= 0 || p.Speed <= 0 {
		return 0, 0, 0
	}
	total = time.Duration(float64(p.Duration) / p.Speed)
	spacing = total / time.Duration(n)
	length = max(50*time.Millisecond, spacing*8/10)
	return spacing, length, total
}

// GainToDecibels converts a linear gain to decibels. Zero gain maps to
// negative infinity.
func GainToDecibels(gain float64) float64 {
	if gain <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(gain)
}

func DecibelsToGain(db float64) float64 {
	if math.IsInf(db, -1) {
		return 0
	}
	return math.Pow(10, db/20)
}

// Ys returns the y values of the sequence.
func (s Sequence) Ys() []float64 {
	ret := make([]float64, len(s))
	for i, sample := range s {
		ret[i] = sample.Y
	}
	return ret
}

// Xs returns the x values of the sequence.
func (s Sequence) Xs() []float64 {
	ret := make([]float64, len(s))
	for i, sample := range s {
		ret[i] = sample.X
	}
	return ret
}

func (s Sequence) Copy() Sequence {
	ret := make(Sequence, len(s))
	copy(ret, s)
	return ret
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
