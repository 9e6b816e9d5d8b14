package engine_test

import (
	"testing"
	"time"

	"github.com/sonigraph/sonify"
	"github.com/sonigraph/sonify/engine"
	"github.com/sonigraph/sonify/transport"
	"github.com/stretchr/testify/require"
)

func ramp(n int) sonify.Sequence {
	seq := make(sonify.Sequence, n)
	for i := range seq {
		seq[i] = sonify.Sample{X: float64(i), Y: float64(i)}
	}
	return seq
}

func TestPlayerSessions(t *testing.T) {
	transport := newSpyTransport()
	synther := &spySynther{}
	broker := engine.NewBroker()
	p := engine.NewPlayer(broker, transport, synther, nil)
	params := sonify.PlaybackParams{Speed: 1, Volume: 0.5, Duration: time.Second}

	first, err := p.Play(ramp(4), params)
	require.NoError(t, err)
	require.True(t, p.Active(first))
	require.Equal(t, 5, transport.Pending(), "four notes and the completion")
	require.Equal(t, 0.5, synther.last().volume)

	second, err := p.Play(ramp(4), params)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.False(t, p.Active(first))
	require.Equal(t, 1, synther.voices[0].disposed, "the first voice is released by the second play")

	transport.Advance(time.Second + engine.CompletionDelay)
	require.False(t, p.Active(second))
	require.Len(t, synther.voices[1].triggers, 4)
	require.Equal(t, 1, synther.voices[1].disposed)
	require.Equal(t, 2, transport.stopped, "transport stopped once per session")

	var msgs []engine.MsgToModel
	for {
		msg, ok := engine.TimeoutReceive(broker.ToModel, 10*time.Millisecond)
		if !ok {
			break
		}
		msgs = append(msgs, msg)
	}
	require.Len(t, msgs, 5)
	for i, msg := range msgs[:4] {
		require.Equal(t, second, msg.Session)
		require.Equal(t, engine.MsgPlayhead, msg.Kind)
		require.Equal(t, i, msg.Index)
		require.Equal(t, synther.voices[1].triggers[i].freq, msg.Frequency)
	}
	require.Equal(t, engine.MsgFinished, msgs[4].Kind)
}

func drain(broker *engine.Broker) (msgs []engine.MsgToModel) {
	for {
		msg, ok := engine.TimeoutReceive(broker.ToModel, 10*time.Millisecond)
		if !ok {
			return msgs
		}
		msgs = append(msgs, msg)
	}
}

func TestPlayerNotesFireInIndexOrder(t *testing.T) {
	tr := newSpyTransport()
	synther := &spySynther{}
	broker := engine.NewBroker()
	p := engine.NewPlayer(broker, tr, synther, nil)
	params := sonify.PlaybackParams{Speed: 1, Volume: 1, Duration: time.Second, Scale: sonify.Chromatic}
	id, err := p.Play(ramp(5), params)
	require.NoError(t, err)

	// note callbacks arrive as 2, 0, 1, 4, 3; the completion stays pending
	tr.FireOrder(2, 0, 1, 4, 3)
	require.True(t, p.Active(id))
	v := synther.last()
	require.Len(t, v.triggers, 5, "every note fires exactly once")
	for i := 1; i < len(v.triggers); i++ {
		require.LessOrEqual(t, v.triggers[i-1].freq, v.triggers[i].freq)
		require.LessOrEqual(t, v.triggers[i-1].at, v.triggers[i].at)
	}
	msgs := drain(broker)
	require.Len(t, msgs, 5)
	for i, msg := range msgs {
		require.Equal(t, i, msg.Index)
	}

	// a retime after the late callbacks does not replay anything
	p.Retime(sonify.PlaybackParams{Speed: 2, Duration: time.Second})
	require.Equal(t, 1, tr.Pending(), "only the completion is left")
	tr.Advance(time.Hour)
	require.False(t, p.Active(id))
	require.Len(t, v.triggers, 5)
}

func TestPlayerRealtimeDenseSequence(t *testing.T) {
	params := sonify.PlaybackParams{Speed: 10, Volume: 1, Duration: time.Second, Scale: sonify.Chromatic}
	spacing, _, _ := params.Timing(500)
	require.Less(t, spacing, time.Millisecond)
	for run := 0; run < 5; run++ {
		synther := &spySynther{}
		broker := engine.NewBroker()
		p := engine.NewPlayer(broker, transport.NewRealtime(), synther, nil)
		id, err := p.Play(ramp(500), params)
		require.NoError(t, err)
		require.Eventually(t, func() bool { return !p.Active(id) }, 5*time.Second, 5*time.Millisecond)

		v := synther.last()
		require.Len(t, v.triggers, 500)
		for i := 1; i < len(v.triggers); i++ {
			require.Less(t, v.triggers[i-1].at, v.triggers[i].at, "run %d note %d", run, i)
		}
		msgs := drain(broker)
		require.Len(t, msgs, 501)
		for i, msg := range msgs[:500] {
			require.Equal(t, engine.MsgPlayhead, msg.Kind)
			require.Equal(t, i, msg.Index, "run %d", run)
		}
		require.Equal(t, engine.MsgFinished, msgs[500].Kind)
	}
}

func TestPlayerRejectsEmptySequence(t *testing.T) {
	transport := newSpyTransport()
	p := engine.NewPlayer(engine.NewBroker(), transport, &spySynther{}, nil)
	_, err := p.Play(nil, sonify.PlaybackParams{Speed: 1, Duration: time.Second})
	require.Error(t, err)
	_, err = p.Play(ramp(3), sonify.PlaybackParams{Speed: 0, Duration: time.Second})
	require.Error(t, err)
	require.Zero(t, transport.Pending())
}

func TestPlayerIdleCalls(t *testing.T) {
	p := engine.NewPlayer(engine.NewBroker(), newSpyTransport(), &spySynther{}, nil)
	require.False(t, p.Stop())
	p.SetVolume(1)
	p.SetScale(sonify.Chromatic)
	p.Retime(sonify.PlaybackParams{Speed: 2, Duration: time.Second})
	require.False(t, p.Active(1))
}

func TestTrySend(t *testing.T) {
	c := make(chan int, 1)
	require.True(t, engine.TrySend(c, 1))
	require.False(t, engine.TrySend(c, 2))
	v, ok := engine.TimeoutReceive(c, time.Millisecond)
	require.True(t, ok)
	require.Equal(t, 1, v)
	_, ok = engine.TimeoutReceive(c, time.Millisecond)
	require.False(t, ok)
}
