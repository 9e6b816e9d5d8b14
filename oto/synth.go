package oto

import (
	"math"
	"sync"
	"time"

	"github.com/sonigraph/sonify"
)

type (
	// Synth renders a monophonic sine voice followed by a small reverb and a
	// gain stage. A new note moves the sounding one into its release, so at
	// most a few release tails overlap. Synth is safe for concurrent use:
	// notes are triggered from the transport while the audio device pulls
	// samples through Read.
	Synth struct {
		mu         sync.Mutex
		sampleRate int
		rendered   int64
		gainDB     float64
		notes      []note
		reverb     reverb
		buf        []float32
	}

	note struct {
		freq    float64
		phase   float64
		start   int64
		release int64 // sample at which the release starts
	}

	comb struct {
		buf      []float32
		pos      int
		feedback float32
	}

	allpass struct {
		buf  []float32
		pos  int
		gain float32
	}

	reverb struct {
		combs     []comb
		allpasses []allpass
		wet       float32
	}
)

const (
	attackTime  = 10 * time.Millisecond
	releaseTime = 60 * time.Millisecond
	maxNotes    = 8
	noteGain    = 0.4
)

// combDelays and allpassDelays are in milliseconds.
var (
	combDelays    = []float64{29.7, 37.1, 41.1, 43.7}
	allpassDelays = []float64{5.0, 1.7}
)

func NewSynth(sampleRate int, volume float64) *Synth {
	s := &Synth{sampleRate: sampleRate, gainDB: sonify.GainToDecibels(volume)}
	s.reverb.wet = 0.25
	for _, d := range combDelays {
		s.reverb.combs = append(s.reverb.combs, comb{buf: make([]float32, s.samples(d*1e-3)), feedback: 0.7})
	}
	for _, d := range allpassDelays {
		s.reverb.allpasses = append(s.reverb.allpasses, allpass{buf: make([]float32, s.samples(d*1e-3)), gain: 0.5})
	}
	return s
}

// TriggerAttackRelease starts a note at transport time at, or right away if
// that moment has already been rendered.
func (s *Synth) TriggerAttackRelease(frequency float64, length time.Duration, at time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := max(s.rendered, int64(s.samples(at.Seconds())))
	for i := range s.notes {
		if s.notes[i].release > start {
			s.notes[i].release = start
		}
	}
	if len(s.notes) >= maxNotes {
		s.notes = s.notes[1:]
	}
	s.notes = append(s.notes, note{
		freq:    frequency,
		start:   start,
		release: start + int64(s.samples(length.Seconds())),
	})
}

func (s *Synth) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gainDB = sonify.GainToDecibels(volume)
}

// Volume returns the current gain in decibels.
func (s *Synth) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gainDB
}

// Render fills buffer with the next mono samples.
func (s *Synth) Render(buffer []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gain := float32(sonify.DecibelsToGain(s.gainDB))
	attack := float64(s.samples(attackTime.Seconds()))
	release := float64(s.samples(releaseTime.Seconds()))
	for i := range buffer {
		t := s.rendered + int64(i)
		var v float64
		for j := range s.notes {
			n := &s.notes[j]
			if t < n.start {
				continue
			}
			env := math.Min(1, float64(t-n.start)/attack)
			if t >= n.release {
				env *= 1 - float64(t-n.release)/release
			}
			if env <= 0 {
				continue
			}
			v += env * math.Sin(n.phase)
			n.phase += 2 * math.Pi * n.freq / float64(s.sampleRate)
			if n.phase > 2*math.Pi {
				n.phase -= 2 * math.Pi
			}
		}
		buffer[i] = s.reverb.process(float32(v*noteGain)) * gain
	}
	s.rendered += int64(len(buffer))
	// drop notes whose release has finished
	end := s.rendered - int64(release)
	kept := s.notes[:0]
	for _, n := range s.notes {
		if n.release > end {
			kept = append(kept, n)
		}
	}
	s.notes = kept
}

// Read implements io.Reader for the audio device: 32-bit float little-endian
// mono samples.
func (s *Synth) Read(p []byte) (int, error) {
	n := len(p) / 4
	if cap(s.buf) < n {
		s.buf = make([]float32, n)
	}
	buf := s.buf[:n]
	s.Render(buf)
	FloatBufferToLE(buf, p[:0])
	return n * 4, nil
}

// Active returns the number of notes that are still sounding.
func (s *Synth) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func (s *Synth) samples(seconds float64) int {
	return max(1, int(math.Round(seconds*float64(s.sampleRate))))
}

func (r *reverb) process(in float32) float32 {
	var wet float32
	for i := range r.combs {
		wet += r.combs[i].process(in)
	}
	wet /= float32(len(r.combs))
	for i := range r.allpasses {
		wet = r.allpasses[i].process(wet)
	}
	return in*(1-r.wet) + wet*r.wet
}

func (c *comb) process(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.feedback
	c.pos = (c.pos + 1) % len(c.buf)
	return out
}

func (a *allpass) process(in float32) float32 {
	delayed := a.buf[a.pos]
	out := -in*a.gain + delayed
	a.buf[a.pos] = in + delayed*a.gain
	a.pos = (a.pos + 1) % len(a.buf)
	return out
}
