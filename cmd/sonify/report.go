package main

import (
	"embed"
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/sonigraph/sonify"
	"github.com/sonigraph/sonify/engine"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.txt
var templateFS embed.FS

type (
	report struct {
		Function   *engine.FunctionSource
		Preset     *sonify.Preset
		Table      *sonify.Table
		XHeader    string
		YHeader    string
		Samples    int
		Properties sonify.Properties
		Stats      *sonify.Stats
		Params     sonify.PlaybackParams
		Shape      []string
		Low, High  string
	}

	// dump is what -dump writes.
	dump struct {
		Source     string
		Function   *engine.FunctionSource `yaml:",omitempty"`
		Table      *tableDump             `yaml:",omitempty"`
		Params     sonify.PlaybackParams
		Properties sonify.Properties
		Stats      *sonify.Stats `yaml:",omitempty"`
		Sequence   sonify.Sequence
	}

	tableDump struct {
		File string
		X    string
		Y    string
	}
)

func loadTemplates(lang language.Tag) (*template.Template, error) {
	printer := message.NewPrinter(lang)
	caser := cases.Title(lang)
	funcs := template.FuncMap{
		"num": func(v float64) string {
			return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
		},
		"percent": func(v float64) string {
			return printer.Sprint(number.Percent(v))
		},
		"title": caser.String,
	}
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).Funcs(funcs).ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("could not parse report templates: %w", err)
	}
	return tmpl, nil
}

func newReport(m *engine.Model) report {
	r := report{
		Samples:    len(m.Sequence()),
		Properties: m.Properties(),
		Params:     m.Params(),
	}
	switch src := m.Source().(type) {
	case *engine.FunctionSource:
		r.Function = src
		if p, ok := sonify.FindPreset(src.Preset); ok {
			r.Preset = &p
		}
	case *engine.TableSource:
		r.Table = &src.Table
		r.XHeader = src.Table.Headers[src.XColumn]
		r.YHeader = src.Table.Headers[src.YColumn]
	}
	if stats, ok := m.Stats(); ok {
		r.Stats = &stats
	}
	if r.Properties.Periodic {
		r.Shape = append(r.Shape, "periodic")
	}
	if r.Properties.Symmetric {
		r.Shape = append(r.Shape, "symmetric")
	}
	if r.Properties.Monotonic {
		r.Shape = append(r.Shape, "monotonic")
	}
	lo, hi := sonify.MaxFreq, sonify.MinFreq
	for _, s := range m.Sequence() {
		lo, hi = min(lo, s.Frequency), max(hi, s.Frequency)
	}
	if lo <= hi {
		r.Low, r.High = sonify.NoteName(lo), sonify.NoteName(hi)
	}
	return r
}

func newDump(m *engine.Model) dump {
	d := dump{
		Source:     m.Source().Kind().String(),
		Params:     m.Params(),
		Properties: m.Properties(),
		Sequence:   m.Sequence(),
	}
	switch src := m.Source().(type) {
	case *engine.FunctionSource:
		d.Function = src
	case *engine.TableSource:
		d.Table = &tableDump{
			File: src.Table.FileName,
			X:    src.Table.Headers[src.XColumn],
			Y:    src.Table.Headers[src.YColumn],
		}
	}
	if stats, ok := m.Stats(); ok {
		d.Stats = &stats
	}
	return d
}

func printReport(w io.Writer, tmpl *template.Template, m *engine.Model) error {
	return tmpl.ExecuteTemplate(w, "report", newReport(m))
}

func printPresets(w io.Writer, tmpl *template.Template) error {
	return tmpl.ExecuteTemplate(w, "presets", sonify.Presets())
}
