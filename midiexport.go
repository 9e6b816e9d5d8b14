package sonify

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	midiTicksPerQuarter = 960
	midiBPM             = 120
	midiChannel         = 0
)

// MIDI renders the sequence as a single track Standard MIDI File, using the
// same timing as playback. Frequencies are recomputed with p.Scale and
// rounded to the nearest MIDI note; the velocity follows p.Volume.
func MIDI(seq Sequence, p PlaybackParams) ([]byte, error) {
	if len(seq) == 0 {
		return nil, errors.New("cannot export an empty sequence")
	}
	spacing, length, _ := p.Timing(len(seq))
	if spacing <= 0 {
		return nil, fmt.Errorf("invalid playback parameters: speed %v, duration %v", p.Speed, p.Duration)
	}
	velocity := uint8(math.Round(clamp(p.Volume, 0, 1) * 127))
	if velocity == 0 {
		velocity = 1
	}
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(midiTicksPerQuarter)
	var track smf.Track
	track.Add(0, smf.MetaMeter(4, 4))
	track.Add(0, smf.MetaTempo(midiBPM))
	var cursor uint32
	for i, s := range seq.WithFrequencies(p.Scale) {
		key := uint8(MIDINote(s.Frequency))
		on := max(cursor, ticks(time.Duration(i)*spacing))
		off := on + max(1, ticks(min(length, spacing)))
		if i == len(seq)-1 {
			off = on + max(1, ticks(length))
		}
		track.Add(on-cursor, midi.NoteOn(midiChannel, key, velocity))
		track.Add(off-on, midi.NoteOff(midiChannel, key))
		cursor = off
	}
	track.Close(0)
	if err := sm.Add(track); err != nil {
		return nil, fmt.Errorf("could not add track: %w", err)
	}
	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("could not write midi: %w", err)
	}
	return buf.Bytes(), nil
}

func ticks(d time.Duration) uint32 {
	return uint32(math.Round(d.Seconds() * midiTicksPerQuarter * midiBPM / 60))
}
