package sonify_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonigraph/sonify"
)

func seqOf(ys ...float64) sonify.Sequence {
	ret := make(sonify.Sequence, len(ys))
	for i, y := range ys {
		ret[i] = sonify.Sample{X: float64(i), Y: y}
	}
	return ret
}

func TestAnalyzeSymmetric(t *testing.T) {
	p := sonify.Analyze(seqOf(4, 1, 0, 1, 4), [2]float64{-2, 2})
	require.True(t, p.Symmetric)
	require.False(t, p.Monotonic)
	require.Equal(t, [2]float64{0, 4}, p.Range)
	require.Equal(t, [2]float64{-2, 2}, p.Domain)
}

func TestAnalyzeMonotonicIgnoresNoise(t *testing.T) {
	require.True(t, sonify.Analyze(seqOf(1, 2, 2, 3, 3+1e-12, 3, 5), [2]float64{}).Monotonic)
	require.True(t, sonify.Analyze(seqOf(5, 4, 4, 1), [2]float64{}).Monotonic)
	require.False(t, sonify.Analyze(seqOf(1, 2, 1.5), [2]float64{}).Monotonic)
	require.True(t, sonify.Analyze(seqOf(7, 7, 7), [2]float64{}).Monotonic, "a constant sequence is monotonic")
}

func TestAnalyzePeriodicNeedsMoreThan20Samples(t *testing.T) {
	ys := make([]float64, 20)
	for i := range ys {
		ys[i] = float64(i % 2)
	}
	require.False(t, sonify.Analyze(seqOf(ys...), [2]float64{}).Periodic)
	ys = append(ys, 0, 1, 0, 1)
	require.True(t, sonify.Analyze(seqOf(ys...), [2]float64{}).Periodic)
}

func TestAnalyzeRampIsNotPeriodic(t *testing.T) {
	ys := make([]float64, 100)
	for i := range ys {
		ys[i] = float64(i)
	}
	p := sonify.Analyze(seqOf(ys...), [2]float64{})
	require.False(t, p.Periodic)
	require.True(t, p.Monotonic)
}

func TestAnalyzeEmpty(t *testing.T) {
	p := sonify.Analyze(nil, [2]float64{1, 2})
	require.Equal(t, sonify.Properties{Domain: [2]float64{1, 2}}, p)
}

func TestSequenceDomain(t *testing.T) {
	seq := sonify.Sequence{{X: 3}, {X: -1}, {X: 7}}
	require.Equal(t, [2]float64{-1, 7}, sonify.SequenceDomain(seq))
}

func TestTableStats(t *testing.T) {
	s := sonify.TableStats(seqOf(10, 12, 8))
	require.Equal(t, 8.0, s.Min)
	require.Equal(t, 12.0, s.Max)
	require.InDelta(t, 10, s.Mean, 1e-12)
	require.InDelta(t, math.Sqrt(8.0/3), s.StdDev, 1e-12)
	require.Equal(t, sonify.Falling, s.Trend)
}

func TestTableStatsTrend(t *testing.T) {
	require.Equal(t, sonify.Rising, sonify.TableStats(seqOf(1, 2, 3, 4, 5, 6, 7, 8)).Trend)
	require.Equal(t, sonify.Falling, sonify.TableStats(seqOf(8, 7, 6, 5, 4, 3, 2, 1)).Trend)
	require.Equal(t, sonify.Mixed, sonify.TableStats(seqOf(1, 9, 5, 5, 5, 5, 9, 1)).Trend)
	require.Equal(t, sonify.Mixed, sonify.TableStats(seqOf(3, 3, 3, 3)).Trend)
}
