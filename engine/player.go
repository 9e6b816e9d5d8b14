package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sonigraph/sonify"
	"go.uber.org/zap"
)

type (
	// Player schedules the notes of a sequence on a transport and plays them
	// on a voice acquired from the synther. At most one session is live at a
	// time. All scheduled callbacks check under mu that their session is still
	// the live one, so after Stop returns no note is triggered and no playhead
	// message is sent for the stopped session. Retime reschedules the notes
	// that have not fired yet; callbacks of an earlier timing are ignored.
	// Notes fire strictly in index order even if the transport delivers their
	// callbacks out of order: a late callback for an earlier note is dropped
	// and an early one for a later note fires the skipped notes first.
	//
	// The transport must not invoke callbacks synchronously from Schedule.
	Player struct {
		transport sonify.Transport
		synther   sonify.Synther
		broker    *Broker
		logger    *zap.Logger

		mu       sync.Mutex
		session  *session // the live session, nil when stopped
		sessions int      // counter for session ids
		scale    sonify.Scale
	}

	session struct {
		id     int
		epoch  int
		voice  sonify.Voice
		freqs  []float64 // unquantized, quantized when the note fires
		length time.Duration
		next   int           // index of the next note to fire
		lastAt time.Duration // transport time of the last fired note
	}
)

// CompletionDelay is the time after the last note's onset slot at which a
// session is considered finished.
const CompletionDelay = 100 * time.Millisecond

var errEmptySequence = errors.New("cannot play an empty sequence")

func NewPlayer(broker *Broker, transport sonify.Transport, synther sonify.Synther, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		transport: transport,
		synther:   synther,
		broker:    broker,
		logger:    logger,
	}
}

// Play stops any live session and starts a new one for seq. It returns once
// all the notes are scheduled. If no voice can be acquired, nothing is
// scheduled and the error is returned.
func (p *Player) Play(seq sonify.Sequence, params sonify.PlaybackParams) (id int, err error) {
	if len(seq) == 0 {
		return 0, errEmptySequence
	}
	spacing, length, _ := params.Timing(len(seq))
	if spacing <= 0 {
		return 0, fmt.Errorf("invalid playback parameters: speed %v, duration %v", params.Speed, params.Duration)
	}
	p.Stop()
	voice, err := p.synther.Voice(params.Volume)
	if err != nil {
		return 0, fmt.Errorf("could not acquire a voice from %s: %w", p.synther.Name(), err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions++
	s := &session{
		id:     p.sessions,
		voice:  voice,
		freqs:  seq.RawFrequencies(),
		length: length,
	}
	p.scale = params.Scale
	if err := p.transport.Start(); err != nil {
		if derr := voice.Dispose(); derr != nil {
			p.logger.Warn("could not dispose voice", zap.Error(derr))
		}
		return 0, fmt.Errorf("could not start transport: %w", err)
	}
	p.session = s
	p.schedule(s, 0, spacing)
	p.logger.Info("playback started",
		zap.Int("session", s.id),
		zap.Int("notes", len(s.freqs)),
		zap.Duration("spacing", spacing),
		zap.Duration("length", length),
		zap.Stringer("scale", p.scale))
	return s.id, nil
}

// Retime applies new speed and duration to the live session without
// restarting it: the notes that have not fired yet are rescheduled with the new
// spacing, counted from the last fired note.
func (p *Player) Retime(params sonify.PlaybackParams) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.session
	if s == nil {
		return
	}
	spacing, length, _ := params.Timing(len(s.freqs))
	if spacing <= 0 {
		return
	}
	p.transport.CancelAll()
	s.epoch++
	s.length = length
	p.schedule(s, s.next, spacing)
	p.logger.Debug("playback retimed", zap.Int("session", s.id), zap.Int("next", s.next), zap.Duration("spacing", spacing))
}

// Stop cancels every pending callback and releases the voice of the live
// session. It returns false if nothing was playing. Stop is safe to call at any
// time, also from a playhead listener.
func (p *Player) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return false
	}
	p.logger.Info("playback stopped", zap.Int("session", p.session.id))
	p.stop()
	return true
}

// Active reports whether the session with the given id is still playing.
func (p *Player) Active(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil && p.session.id == id
}

// SetVolume changes the volume of the live voice, if any.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		p.session.voice.SetVolume(volume)
	}
}

// SetScale changes the scale used for the notes that have not fired yet.
func (p *Player) SetScale(scale sonify.Scale) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scale = scale
}

// schedule must be called with mu held. Notes from index first on are placed
// spacing apart; note first fires spacing after the last fired note, or at
// zero if no note has fired yet.
func (p *Player) schedule(s *session, first int, spacing time.Duration) {
	origin := time.Duration(0)
	if first > 0 {
		origin = s.lastAt + spacing - time.Duration(first)*spacing
	}
	epoch := s.epoch
	for i := first; i < len(s.freqs); i++ {
		p.transport.Schedule(origin+time.Duration(i)*spacing, func(at time.Duration) { p.note(s, epoch, i, at) })
	}
	end := origin + time.Duration(len(s.freqs))*spacing + CompletionDelay
	p.transport.Schedule(end, func(time.Duration) { p.finish(s, epoch) })
}

// note fires the notes of s up to and including i, in index order. A note
// that has already fired is never fired again, so next and lastAt only move
// forward.
func (p *Player) note(s *session, epoch, i int, at time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != s || s.epoch != epoch || i < s.next {
		return
	}
	if i > s.next {
		p.logger.Debug("catching up on late notes", zap.Int("session", s.id), zap.Int("from", s.next), zap.Int("to", i))
	}
	for ; s.next <= i; s.next++ {
		freq := sonify.Quantize(s.freqs[s.next], p.scale)
		s.voice.TriggerAttackRelease(freq, s.length, at)
		TrySend(p.broker.ToModel, MsgToModel{Session: s.id, Kind: MsgPlayhead, Index: s.next, Frequency: freq})
	}
	s.lastAt = max(s.lastAt, at)
}

func (p *Player) finish(s *session, epoch int) {
	p.mu.Lock()
	if p.session != s || s.epoch != epoch {
		p.mu.Unlock()
		return
	}
	p.logger.Info("playback finished", zap.Int("session", s.id))
	p.stop()
	p.mu.Unlock()
	TrySend(p.broker.ToModel, MsgToModel{Session: s.id, Kind: MsgFinished, Index: -1})
}

// stop must be called with mu held.
func (p *Player) stop() {
	p.transport.CancelAll()
	p.transport.Stop()
	if err := p.session.voice.Dispose(); err != nil {
		p.logger.Warn("could not dispose voice", zap.Int("session", p.session.id), zap.Error(err))
	}
	p.session = nil
}
