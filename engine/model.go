package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sonigraph/sonify"
	"go.uber.org/zap"
)

type (
	// Model is the state of a sonification session: the current source, the
	// sequence built from it with its analysis, the playback parameters and
	// the playback state. It is not safe for concurrent use.
	Model struct {
		source   Source
		seq      sonify.Sequence
		props    sonify.Properties
		stats    *sonify.Stats // only for table sources
		state    State
		playhead int
		session  int // id of the player session, valid while Playing

		params sonify.PlaybackParams
		prefs  Preferences

		evaluator sonify.Evaluator
		parser    sonify.TableParser
		player    *Player
		broker    *Broker
		listener  Listener
		logger    *zap.Logger
	}

	State int

	// Listener is notified from Update and Wait about playback progress. It
	// may call back into the model, e.g. to stop playback.
	Listener interface {
		PlayheadMoved(index int, sample sonify.Sample)
		PlaybackFinished()
	}
)

const (
	Idle State = iota
	Plotted
	Playing
)

// PollInterval is how often Wait checks that the player is still playing, in
// case the completion message was lost.
var PollInterval = 50 * time.Millisecond

var (
	ErrNotPlotted     = errors.New("nothing to play, plot a function or import a table first")
	ErrAlreadyPlaying = errors.New("already playing")
	ErrInvalidRange   = sonify.ErrInvalidDomain
	ErrNoParser       = errors.New("no table parser configured")
)

var stateNames = [...]string{"idle", "plotted", "playing"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// NewModel returns a model in function mode with the expression and domain of
// prefs, in the Idle state. parser may be nil if tables are only imported with
// ImportRows.
func NewModel(player *Player, evaluator sonify.Evaluator, parser sonify.TableParser, prefs Preferences, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Model{
		evaluator: evaluator,
		parser:    parser,
		player:    player,
		broker:    player.broker,
		logger:    logger,
		prefs:     prefs,
		playhead:  -1,
	}
	m.params = sonify.PlaybackParams{
		Speed:    SpeedRange.Clamp(prefs.Playback.Speed),
		Volume:   VolumeRange.Clamp(prefs.Playback.Volume),
		Scale:    prefs.Playback.Scale,
		Duration: time.Duration(DurationRange.Clamp(prefs.Playback.Duration.Seconds()) * float64(time.Second)),
	}
	m.source = m.defaultFunction()
	return m
}

func (m *Model) SetListener(l Listener) { m.listener = l }

func (m *Model) State() State                  { return m.state }
func (m *Model) Source() Source                { return m.source }
func (m *Model) Params() sonify.PlaybackParams { return m.params }
func (m *Model) Properties() sonify.Properties { return m.props }

// Playhead is the index of the sample sounding last, or -1 when not playing
// or before the first note.
func (m *Model) Playhead() int { return m.playhead }

// Sequence returns the current sequence with the frequencies of the current
// scale. The caller must not modify it. The model never writes into a slice
// it has returned: playback that changes a frequency works on a copy, so a
// sequence obtained earlier keeps its values.
func (m *Model) Sequence() sonify.Sequence { return m.seq }

// Stats returns the summary of a table sequence; ok is false for functions
// and when nothing is plotted.
func (m *Model) Stats() (stats sonify.Stats, ok bool) {
	if m.stats == nil {
		return sonify.Stats{}, false
	}
	return *m.stats, true
}

// SetFunction sets the expression to plot, switching to function mode if a
// table was loaded.
func (m *Model) SetFunction(expression string) (ok bool) {
	f := m.function()
	if f.Expression == expression {
		return false
	}
	f.Expression, f.Preset = expression, ""
	return true
}

// SetRange sets the x interval of the function, switching to function mode if
// a table was loaded. The interval is rejected unless xMin < xMax.
func (m *Model) SetRange(xMin, xMax float64) error {
	if err := (sonify.DomainSpec{XMin: xMin, XMax: xMax}).Validate(); err != nil {
		return fmt.Errorf("%w: got [%v, %v]", ErrInvalidRange, xMin, xMax)
	}
	f := m.function()
	f.Domain.XMin, f.Domain.XMax = xMin, xMax
	return nil
}

// SetResolution clamps n to [MinResolution, MaxResolution].
func (m *Model) SetResolution(n int) (ok bool) { return m.Resolution().Int().Set(n) }
func (m *Model) SetSpeed(v float64) (ok bool)  { return m.Speed().Float().Set(v) }
func (m *Model) SetVolume(v float64) (ok bool) { return m.Volume().Float().Set(v) }

// SetDuration clamps d to [1s, 120s].
func (m *Model) SetDuration(d time.Duration) (ok bool) {
	return m.Duration().Float().Set(d.Seconds())
}

// SelectPreset loads the expression of the preset and, if it has one, its
// domain. The resolution is kept.
func (m *Model) SelectPreset(p sonify.Preset) {
	f := m.function()
	f.Expression, f.Preset = p.Expression, p.ID
	if p.Domain != nil && p.Domain.Validate() == nil {
		f.Domain.XMin, f.Domain.XMax = p.Domain.XMin, p.Domain.XMax
	}
}

// SetScale changes the scale of the sequence. A live session uses the new
// scale from its next note on.
func (m *Model) SetScale(s sonify.Scale) (ok bool) {
	if s != sonify.Pentatonic && s != sonify.Chromatic {
		return false
	}
	if s == m.params.Scale {
		return false
	}
	m.params.Scale = s
	m.player.SetScale(s)
	if len(m.seq) > 0 {
		m.seq = m.seq.WithFrequencies(s)
	}
	m.logger.Debug("scale changed", zap.Stringer("scale", s))
	return true
}

// Plot rebuilds the sequence from the current source. A function is always
// plotted, even if the expression is broken; a table can fail only if the
// selected columns no longer have valid rows.
func (m *Model) Plot() error {
	switch src := m.source.(type) {
	case *FunctionSource:
		if err := src.Domain.Validate(); err != nil {
			return err
		}
		seq := sonify.BuildFunction(m.evaluator, src.Expression, src.Domain)
		props := sonify.Analyze(seq, [2]float64{src.Domain.XMin, src.Domain.XMax})
		m.install(seq, props, nil)
		m.logger.Info("function plotted",
			zap.String("expression", src.Expression),
			zap.Float64("xmin", src.Domain.XMin),
			zap.Float64("xmax", src.Domain.XMax),
			zap.Int("samples", len(seq)))
	case *TableSource:
		seq, err := sonify.BuildTable(src.Table, src.XColumn, src.YColumn)
		if err != nil {
			return err
		}
		m.installTable(seq)
	}
	return nil
}

// ImportTable parses text with the model's parser and imports the rows. See
// ImportRows.
func (m *Model) ImportTable(text, fileName string) error {
	if m.parser == nil {
		return ErrNoParser
	}
	rows, err := m.parser.Parse(text)
	if err != nil {
		m.logger.Warn("import rejected", zap.String("file", fileName), zap.Error(err))
		return fmt.Errorf("could not parse %s: %w", fileName, err)
	}
	return m.ImportRows(rows, fileName)
}

// ImportRows switches to table mode and plots the default columns of the
// rows. If the rows do not make a table with at least one valid sample, the
// import is rejected and the model is left as it was.
func (m *Model) ImportRows(rows [][]string, fileName string) error {
	return m.importRows(rows, fileName, sonify.Table.DefaultColumns)
}

// ImportColumns is ImportRows with an explicit column pair. The import is
// rejected if the pair is out of range or yields no valid sample.
func (m *Model) ImportColumns(rows [][]string, fileName string, xCol, yCol int) error {
	return m.importRows(rows, fileName, func(sonify.Table) (int, int) { return xCol, yCol })
}

func (m *Model) importRows(rows [][]string, fileName string, columns func(sonify.Table) (x, y int)) error {
	t, err := sonify.NewTable(rows, fileName)
	if err != nil {
		m.logger.Warn("import rejected", zap.String("file", fileName), zap.Error(err))
		return fmt.Errorf("could not import %s: %w", fileName, err)
	}
	x, y := columns(t)
	seq, err := sonify.BuildTable(t, x, y)
	if err != nil {
		m.logger.Warn("import rejected", zap.String("file", fileName), zap.Int("x", x), zap.Int("y", y), zap.Error(err))
		return fmt.Errorf("could not import %s: %w", fileName, err)
	}
	m.discard()
	m.source = &TableSource{Table: t, XColumn: x, YColumn: y}
	m.installTable(seq)
	return nil
}

// SelectColumns replots the table with other columns. It is a no-op outside
// table mode, for out of range indices and for a y column without numbers.
func (m *Model) SelectColumns(xCol, yCol int) (ok bool) {
	src, isTable := m.source.(*TableSource)
	if !isTable || !src.Table.ValidColumn(xCol) || !src.Table.ValidColumn(yCol) {
		return false
	}
	if src.XColumn == xCol && src.YColumn == yCol {
		return false
	}
	seq, err := sonify.BuildTable(src.Table, xCol, yCol)
	if err != nil {
		m.logger.Warn("columns rejected", zap.Int("x", xCol), zap.Int("y", yCol), zap.Error(err))
		return false
	}
	src.XColumn, src.YColumn = xCol, yCol
	m.installTable(seq)
	return true
}

// ClearTable drops the table and returns to the default function.
func (m *Model) ClearTable() (ok bool) {
	if _, isTable := m.source.(*TableSource); !isTable {
		return false
	}
	m.discard()
	m.source = m.defaultFunction()
	m.logger.Info("table cleared")
	return true
}

// Play starts playing the current sequence. It returns once the notes are
// scheduled; progress is reported through Update or Wait. A session that has
// ended on its own is finished first, as if Update had been called.
func (m *Model) Play() error {
	m.Update()
	switch m.state {
	case Idle:
		return ErrNotPlotted
	case Playing:
		return ErrAlreadyPlaying
	}
	id, err := m.player.Play(m.seq, m.params)
	if err != nil {
		m.logger.Error("could not start playback", zap.Error(err))
		return err
	}
	m.session = id
	m.state = Playing
	m.playhead = -1
	return nil
}

// Stop stops playback. It returns false if nothing was playing.
func (m *Model) Stop() (ok bool) {
	m.player.Stop()
	if m.state != Playing {
		return false
	}
	m.state = Plotted
	m.playhead = -1
	return true
}

// MIDI exports the current sequence with the current playback parameters.
func (m *Model) MIDI() ([]byte, error) {
	if m.state == Idle {
		return nil, ErrNotPlotted
	}
	return sonify.MIDI(m.seq, m.params)
}

// Update applies the pending player messages without blocking.
func (m *Model) Update() {
	for {
		select {
		case msg := <-m.broker.ToModel:
			m.handle(msg)
		default:
			if m.state == Playing && !m.player.Active(m.session) {
				m.finished()
			}
			return
		}
	}
}

// Wait applies player messages until playback ends. If ctx is done first,
// playback is stopped and the context error returned.
func (m *Model) Wait(ctx context.Context) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for m.state == Playing {
		select {
		case msg := <-m.broker.ToModel:
			m.handle(msg)
		case <-ticker.C:
			m.Update()
		case <-ctx.Done():
			m.Stop()
			return ctx.Err()
		}
	}
	return nil
}

func (m *Model) handle(msg MsgToModel) {
	if m.state != Playing || msg.Session != m.session {
		return
	}
	switch msg.Kind {
	case MsgPlayhead:
		if msg.Index < 0 || msg.Index >= len(m.seq) {
			return
		}
		m.playhead = msg.Index
		if m.seq[msg.Index].Frequency != msg.Frequency {
			m.seq = m.seq.Copy()
			m.seq[msg.Index].Frequency = msg.Frequency
		}
		if m.listener != nil {
			m.listener.PlayheadMoved(msg.Index, m.seq[msg.Index])
		}
	case MsgFinished:
		m.finished()
	}
}

func (m *Model) finished() {
	m.state = Plotted
	m.playhead = -1
	if m.listener != nil {
		m.listener.PlaybackFinished()
	}
}

// function returns the function source, replacing a table source with the
// default function first.
func (m *Model) function() *FunctionSource {
	if f, ok := m.source.(*FunctionSource); ok {
		return f
	}
	m.discard()
	f := m.defaultFunction()
	m.source = f
	m.logger.Info("switched to function mode")
	return f
}

func (m *Model) defaultFunction() *FunctionSource {
	d := m.prefs.Function.Domain
	d.Resolution = sonify.ClampResolution(d.Resolution)
	return &FunctionSource{Expression: m.prefs.Function.Expression, Domain: d}
}

// discard stops playback and forgets the sequence.
func (m *Model) discard() {
	m.Stop()
	m.seq, m.props, m.stats = nil, sonify.Properties{}, nil
	m.state = Idle
}

func (m *Model) installTable(seq sonify.Sequence) {
	stats := sonify.TableStats(seq)
	m.install(seq, sonify.Analyze(seq, sonify.SequenceDomain(seq)), &stats)
	src := m.source.(*TableSource)
	m.logger.Info("table plotted",
		zap.String("file", src.Table.FileName),
		zap.String("x", src.Table.Headers[src.XColumn]),
		zap.String("y", src.Table.Headers[src.YColumn]),
		zap.Int("samples", len(seq)),
		zap.Stringer("trend", stats.Trend))
}

// install replaces the sequence, stopping playback first.
func (m *Model) install(seq sonify.Sequence, props sonify.Properties, stats *sonify.Stats) {
	m.Stop()
	m.seq = seq.WithFrequencies(m.params.Scale)
	m.props = props
	m.stats = stats
	m.state = Plotted
	m.playhead = -1
}
