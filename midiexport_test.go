package sonify_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/sonigraph/sonify"
)

func TestMIDIExport(t *testing.T) {
	seq := seqOf(0, 1, 2, 3)
	params := sonify.PlaybackParams{Speed: 1, Volume: 1, Scale: sonify.Chromatic, Duration: 2 * time.Second}
	data, err := sonify.MIDI(seq, params)
	require.NoError(t, err)
	s, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, s.Tracks, 1)
	var keys []uint8
	for _, ev := range s.Tracks[0] {
		var ch, key, vel uint8
		if midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
			keys = append(keys, key)
			require.Equal(t, uint8(127), vel)
		}
	}
	require.Len(t, keys, 4)
	require.Equal(t, uint8(48), keys[0])
	require.Equal(t, uint8(84), keys[3])
	for i := 1; i < len(keys); i++ {
		require.Greater(t, keys[i], keys[i-1])
	}
}

func TestMIDIExportEmpty(t *testing.T) {
	_, err := sonify.MIDI(nil, sonify.PlaybackParams{Speed: 1, Duration: time.Second})
	require.Error(t, err)
}
