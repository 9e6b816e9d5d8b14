package sonify_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonigraph/sonify"
)

var scales = []sonify.Scale{sonify.Pentatonic, sonify.Chromatic}

func TestQuantizeIdempotent(t *testing.T) {
	for _, s := range scales {
		for f := 20.0; f < 5000; f *= 1.013 {
			q := sonify.Quantize(f, s)
			require.InEpsilon(t, q, sonify.Quantize(q, s), 1e-9, "scale %v, freq %v", s, f)
		}
	}
}

func TestQuantizeChromatic(t *testing.T) {
	require.InDelta(t, sonify.MinFreq, sonify.Quantize(sonify.MinFreq, sonify.Chromatic), 1e-9)
	// A3 is 9 semitones above C3
	a3 := sonify.MinFreq * math.Pow(2, 9.0/12)
	require.InDelta(t, a3, sonify.Quantize(a3*1.01, sonify.Chromatic), 1e-9)
	require.InDelta(t, a3, sonify.Quantize(a3*0.99, sonify.Chromatic), 1e-9)
}

func TestQuantizePentatonic(t *testing.T) {
	base := sonify.MinFreq * 2
	require.InDelta(t, base*1.25, sonify.Quantize(base*1.3, sonify.Pentatonic), 1e-9)
	require.InDelta(t, base*1.5, sonify.Quantize(base*1.45, sonify.Pentatonic), 1e-9)
	require.InDelta(t, base*1.6875, sonify.Quantize(base*1.8, sonify.Pentatonic), 1e-9)
	// closer to the next root than to 1.6875
	require.InDelta(t, base*2, sonify.Quantize(base*1.9, sonify.Pentatonic), 1e-9)
}

func TestQuantizeInvalidInput(t *testing.T) {
	for _, s := range scales {
		require.Equal(t, sonify.MinFreq, sonify.Quantize(0, s))
		require.Equal(t, sonify.MinFreq, sonify.Quantize(-10, s))
		require.Equal(t, sonify.MinFreq, sonify.Quantize(math.NaN(), s))
		require.Equal(t, sonify.MinFreq, sonify.Quantize(math.Inf(1), s))
	}
}

func TestMapFrequencyMonotonic(t *testing.T) {
	for _, s := range scales {
		prev := 0.0
		for y := -3.0; y <= 3; y += 0.01 {
			f := sonify.MapFrequency(y, -3, 3, s)
			require.GreaterOrEqual(t, f, prev, "scale %v, y %v", s, y)
			prev = f
		}
	}
}

func TestMapFrequencyBand(t *testing.T) {
	require.Equal(t, sonify.MinFreq, sonify.RawFrequency(-1, -1, 1))
	require.Equal(t, sonify.MaxFreq, sonify.RawFrequency(1, -1, 1))
	mid := (sonify.MinFreq + sonify.MaxFreq) / 2
	require.Equal(t, mid, sonify.RawFrequency(5, 5, 5))
	require.Equal(t, sonify.Quantize(mid, sonify.Chromatic), sonify.MapFrequency(5, 5, 5, sonify.Chromatic))
}

func TestWithFrequenciesDoesNotModifyOriginal(t *testing.T) {
	seq := seqOf(0, 1, 2)
	annotated := seq.WithFrequencies(sonify.Chromatic)
	for _, s := range seq {
		require.Zero(t, s.Frequency)
	}
	require.InDelta(t, sonify.MinFreq, annotated[0].Frequency, 1e-9)
	require.InDelta(t, sonify.Quantize(sonify.MaxFreq, sonify.Chromatic), annotated[2].Frequency, 1e-9)
}

func TestNoteName(t *testing.T) {
	require.Equal(t, 69, sonify.MIDINote(440))
	require.Equal(t, "A4", sonify.NoteName(440))
	require.Equal(t, "C3", sonify.NoteName(sonify.MinFreq))
	require.Equal(t, "C6", sonify.NoteName(sonify.MaxFreq))
}

func TestParseScale(t *testing.T) {
	for _, s := range scales {
		p, err := sonify.ParseScale(s.String())
		require.NoError(t, err)
		require.Equal(t, s, p)
	}
	_, err := sonify.ParseScale("dorian")
	require.Error(t, err)
}

func TestTiming(t *testing.T) {
	p := sonify.PlaybackParams{Speed: 2, Duration: 10e9}
	spacing, length, total := p.Timing(100)
	require.Equal(t, int64(5e9), int64(total))
	require.Equal(t, int64(50e6), int64(spacing))
	require.Equal(t, int64(50e6), int64(length), "note length never goes below 50ms")
	spacing, length, _ = sonify.PlaybackParams{Speed: 1, Duration: 10e9}.Timing(10)
	require.Equal(t, int64(1e9), int64(spacing))
	require.Equal(t, int64(800e6), int64(length))
}

func TestGainConversion(t *testing.T) {
	require.InDelta(t, 0, sonify.GainToDecibels(1), 1e-12)
	require.InDelta(t, -6.0206, sonify.GainToDecibels(0.5), 1e-4)
	require.True(t, math.IsInf(sonify.GainToDecibels(0), -1))
	require.Equal(t, 0.0, sonify.DecibelsToGain(math.Inf(-1)))
	require.InDelta(t, 0.5, sonify.DecibelsToGain(sonify.GainToDecibels(0.5)), 1e-12)
}
