package engine

import (
	"math"
	"time"

	"github.com/sonigraph/sonify"
	"go.uber.org/zap"
)

type (
	Int struct {
		IntData
	}

	IntData interface {
		Value() int
		Range() intRange

		setValue(int)
	}

	intRange struct {
		Min, Max int
	}

	Float struct {
		FloatData
	}

	FloatData interface {
		Value() float64
		Range() floatRange

		setValue(float64)
	}

	floatRange struct {
		Min, Max float64
	}

	Resolution Model
	Speed      Model
	Volume     Model
	Duration   Model
)

var (
	SpeedRange    = floatRange{0.1, 10}
	VolumeRange   = floatRange{0, 1}
	DurationRange = floatRange{1, 120} // seconds
)

func (v Int) Add(delta int) (ok bool) {
	return v.Set(v.Value() + delta)
}

// Set clamps value to the range and stores it. It returns false if the stored
// value did not change.
func (v Int) Set(value int) (ok bool) {
	value = v.Range().Clamp(value)
	if value == v.Value() {
		return false
	}
	v.setValue(value)
	return true
}

func (r intRange) Clamp(value int) int {
	return max(min(value, r.Max), r.Min)
}

// Set clamps value to the range and stores it. NaN is rejected. It returns
// false if the stored value did not change.
func (v Float) Set(value float64) (ok bool) {
	if math.IsNaN(value) {
		return false
	}
	value = v.Range().Clamp(value)
	if value == v.Value() {
		return false
	}
	v.setValue(value)
	return true
}

func (r floatRange) Clamp(value float64) float64 {
	return math.Max(math.Min(value, r.Max), r.Min)
}

// Model methods

func (m *Model) Resolution() *Resolution { return (*Resolution)(m) }
func (m *Model) Speed() *Speed           { return (*Speed)(m) }
func (m *Model) Volume() *Volume         { return (*Volume)(m) }
func (m *Model) Duration() *Duration     { return (*Duration)(m) }

// Resolution is the number of samples of a function plot. Changing it switches
// the model to function mode.

func (v *Resolution) Int() Int { return Int{v} }
func (v *Resolution) Value() int {
	if f, ok := v.source.(*FunctionSource); ok {
		return f.Domain.Resolution
	}
	return v.prefs.Function.Domain.Resolution
}
func (v *Resolution) Range() intRange {
	return intRange{sonify.MinResolution, sonify.MaxResolution}
}
func (v *Resolution) setValue(value int) {
	m := (*Model)(v)
	m.function().Domain.Resolution = value
}

// Speed divides the duration. A live session is retimed from its next note
// on.

func (v *Speed) Float() Float      { return Float{v} }
func (v *Speed) Value() float64    { return v.params.Speed }
func (v *Speed) Range() floatRange { return SpeedRange }
func (v *Speed) setValue(val float64) {
	v.params.Speed = val
	v.player.Retime(v.params)
}

// Volume is applied to the voice of a live session immediately.

func (v *Volume) Float() Float      { return Float{v} }
func (v *Volume) Value() float64    { return v.params.Volume }
func (v *Volume) Range() floatRange { return VolumeRange }
func (v *Volume) setValue(val float64) {
	v.params.Volume = val
	v.player.SetVolume(val)
	v.logger.Debug("volume changed", zap.Float64("volume", val))
}

// Duration is the nominal length of the whole sequence in seconds, at speed 1.

func (v *Duration) Float() Float      { return Float{v} }
func (v *Duration) Value() float64    { return v.params.Duration.Seconds() }
func (v *Duration) Range() floatRange { return DurationRange }
func (v *Duration) setValue(val float64) {
	v.params.Duration = time.Duration(val * float64(time.Second))
	v.player.Retime(v.params)
}
