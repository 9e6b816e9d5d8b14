package sonify

import "math"

// BuildFunction samples expression over the domain. The result always has
// exactly d.Resolution samples with evenly spaced, strictly increasing x. When
// the evaluator fails or returns a non-finite value, the previous y (or 0 for
// the first sample) is used instead; all y values are clamped to [MinY,
// MaxY]. A broken expression thus plots as a flat line instead of failing.
func BuildFunction(ev Evaluator, expression string, d DomainSpec) Sequence {
	n := d.Resolution
	if n < 2 {
		n = 2
	}
	step := (d.XMax - d.XMin) / float64(n-1)
	ret := make(Sequence, n)
	prev := 0.0
	for i := range ret {
		x := d.XMin + float64(i)*step
		y, err := ev.Evaluate(expression, x)
		if err != nil || math.IsNaN(y) || math.IsInf(y, 0) {
			y = prev
		}
		y = clamp(y, MinY, MaxY)
		ret[i] = Sample{X: x, Y: y}
		prev = y
	}
	return ret
}
