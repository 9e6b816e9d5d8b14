package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sonigraph/sonify"
	"github.com/sonigraph/sonify/engine"
	"github.com/sonigraph/sonify/expr"
	"github.com/sonigraph/sonify/oto"
	"github.com/sonigraph/sonify/table"
	"github.com/sonigraph/sonify/transport"
	"github.com/sonigraph/sonify/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	expression := flag.String("e", "", "Expression of x to plot, e.g. \"sin(x)*x\". Uses the Lua math syntax.")
	preset := flag.String("p", "", "Plot a built-in preset; see -presets.")
	listPresets := flag.Bool("presets", false, "List the built-in presets and exit.")
	xMin := flag.Float64("xmin", 0, "Start of the x range.")
	xMax := flag.Float64("xmax", 0, "End of the x range.")
	resolution := flag.Int("n", 0, "Number of samples of a function plot, clamped to [10, 500].")
	csvFile := flag.String("csv", "", "Import a CSV file instead of plotting a function.")
	parquetFile := flag.String("parquet", "", "Import a Parquet file instead of plotting a function.")
	xCol := flag.Int("x", -1, "Column index used as x for tables.")
	yCol := flag.Int("y", -1, "Column index used as y for tables.")
	speed := flag.Float64("speed", 0, "Playback speed, clamped to [0.1, 10].")
	volume := flag.Float64("volume", 0, "Volume, clamped to [0, 1].")
	scale := flag.String("scale", "", "Scale the pitches snap to: pentatonic or chromatic.")
	duration := flag.Duration("d", 0, "Length of the whole sequence at speed 1, clamped to [1s, 2m].")
	play := flag.Bool("play", false, "Play the sequence (default behaviour when no other output is defined).")
	midiOut := flag.String("midi", "", "Write the sequence as a Standard MIDI File.")
	dumpOut := flag.String("dump", "", "Write the sequence and its analysis as YAML; - for standard output.")
	quiet := flag.Bool("q", false, "Do not print the report.")
	logLevel := flag.String("log", "warn", "Log level: debug, info, warn, error or off.")
	lang := flag.String("lang", "en", "Language of the number formatting in the report.")
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		return 0
	}
	if *help {
		flag.Usage()
		return 0
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	defer logger.Sync()

	tmpl, err := loadTemplates(language.Make(*lang))
	if err != nil {
		logger.Error("could not load templates", zap.Error(err))
		return 1
	}
	if *listPresets {
		if err := printPresets(os.Stdout, tmpl); err != nil {
			logger.Error("could not print presets", zap.Error(err))
			return 1
		}
		return 0
	}
	if *dumpOut == "-" {
		*quiet = true
	}
	if *midiOut == "" && *dumpOut == "" {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play
	}

	prefs := engine.MakePreferences()
	if prefs.YmlError != nil {
		logger.Warn("ignoring malformed preferences", zap.Error(prefs.YmlError))
	}
	lua := expr.NewLua()
	defer lua.Close()
	var synther sonify.Synther = silent{}
	var audio *oto.Context
	if *play {
		audio, err = oto.NewContext()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto audio context: %v\n", err)
			return 1
		}
		defer audio.Close()
		synther = audio
	}
	player := engine.NewPlayer(engine.NewBroker(), transport.NewRealtime(), synther, logger.Named("player"))
	model := engine.NewModel(player, lua, table.CSV{}, prefs, logger.Named("model"))

	if set["speed"] {
		model.SetSpeed(*speed)
	}
	if set["volume"] {
		model.SetVolume(*volume)
	}
	if set["d"] {
		model.SetDuration(*duration)
	}
	if set["scale"] {
		s, err := sonify.ParseScale(*scale)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		model.SetScale(s)
	}

	if err := load(model, set, options{
		expression: *expression, preset: *preset,
		xMin: *xMin, xMax: *xMax, resolution: *resolution,
		csv: *csvFile, parquet: *parquetFile, xCol: *xCol, yCol: *yCol,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if !*quiet {
		if err := printReport(os.Stdout, tmpl, model); err != nil {
			logger.Error("could not print report", zap.Error(err))
		}
	}
	retval := 0
	if *dumpOut != "" {
		if err := writeDump(*dumpOut, model); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			retval = 1
		}
	}
	if *midiOut != "" {
		if err := writeMIDI(*midiOut, model); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			retval = 1
		}
	}
	if *play {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		model.SetListener(progress{logger: logger.Named("playhead")})
		if err := model.Play(); err != nil {
			fmt.Fprintf(os.Stderr, "could not play: %v\n", err)
			stop()
			return 1
		}
		if err := model.Wait(ctx); err != nil {
			logger.Info("playback interrupted", zap.Error(err))
		}
		stop()
		time.Sleep(engine.CompletionDelay) // let the last release ring out
	}
	return retval
}

type options struct {
	expression, preset string
	xMin, xMax         float64
	resolution         int
	csv, parquet       string
	xCol, yCol         int
}

// load sets up the source of the model from the command line and plots it.
func load(m *engine.Model, set map[string]bool, o options) error {
	switch {
	case o.csv != "":
		b, err := os.ReadFile(o.csv)
		if err != nil {
			return fmt.Errorf("could not read file %v: %w", o.csv, err)
		}
		rows, err := table.CSV{}.Parse(string(b))
		if err != nil {
			return fmt.Errorf("could not parse %v: %w", o.csv, err)
		}
		return importRows(m, rows, filepath.Base(o.csv), o)
	case o.parquet != "":
		f, err := os.Open(o.parquet)
		if err != nil {
			return fmt.Errorf("could not open file %v: %w", o.parquet, err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("could not stat file %v: %w", o.parquet, err)
		}
		rows, err := table.ReadParquet(f, info.Size())
		if err != nil {
			return err
		}
		return importRows(m, rows, filepath.Base(o.parquet), o)
	}
	if o.preset != "" {
		p, ok := sonify.FindPreset(o.preset)
		if !ok {
			return fmt.Errorf("unknown preset %q, see -presets", o.preset)
		}
		m.SelectPreset(p)
	}
	if o.expression != "" {
		m.SetFunction(o.expression)
	}
	if set["xmin"] || set["xmax"] {
		d := m.Source().(*engine.FunctionSource).Domain
		if set["xmin"] {
			d.XMin = o.xMin
		}
		if set["xmax"] {
			d.XMax = o.xMax
		}
		if err := m.SetRange(d.XMin, d.XMax); err != nil {
			return err
		}
	}
	if set["n"] {
		m.SetResolution(o.resolution)
	}
	return m.Plot()
}

// importRows imports a table with the default columns, or with the columns
// given on the command line; a missing one keeps its default of 0 for x and 1
// for y.
func importRows(m *engine.Model, rows [][]string, name string, o options) error {
	if o.xCol < 0 && o.yCol < 0 {
		return m.ImportRows(rows, name)
	}
	x, y := 0, 1
	if o.xCol >= 0 {
		x = o.xCol
	}
	if o.yCol >= 0 {
		y = o.yCol
	}
	if err := m.ImportColumns(rows, name, x, y); err != nil {
		return fmt.Errorf("cannot plot columns %d and %d: %w", x, y, err)
	}
	return nil
}

func writeDump(path string, m *engine.Model) error {
	out, err := yaml.Marshal(newDump(m))
	if err != nil {
		return fmt.Errorf("could not marshal the sequence: %w", err)
	}
	if path == "-" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", path, err)
	}
	return nil
}

func writeMIDI(path string, m *engine.Model) error {
	out, err := m.MIDI()
	if err != nil {
		return fmt.Errorf("could not export midi: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", path, err)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "off" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// progress logs every note as it is played.
type progress struct {
	logger *zap.Logger
}

func (p progress) PlayheadMoved(index int, s sonify.Sample) {
	p.logger.Debug("note",
		zap.Int("index", index),
		zap.Float64("x", s.X),
		zap.Float64("y", s.Y),
		zap.String("pitch", sonify.NoteName(s.Frequency)))
}

func (p progress) PlaybackFinished() { p.logger.Debug("finished") }

// silent is used when nothing is played; it is never asked for a voice.
type silent struct{}

func (silent) Name() string { return "silent" }

func (silent) Voice(float64) (sonify.Voice, error) {
	return nil, errors.New("no audio output")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Sonify plots a function or a table, prints its analysis and plays it as a melody.\nUsage: %s [flags]\n", os.Args[0])
	flag.PrintDefaults()
}
