// Package table reads tabular sources into rows of string cells, ready for
// sonify.NewTable.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSV parses comma separated text. Blank lines are skipped, rows may have
// differing numbers of fields, and if Comma is zero the delimiter is guessed
// from the first line (comma, semicolon or tab).
type CSV struct {
	Comma rune
}

// Parse implements sonify.TableParser.
func (c CSV) Parse(text string) ([][]string, error) {
	return c.Read(strings.NewReader(text))
}

func (c CSV) Read(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = c.Comma
	if reader.Comma == 0 {
		reader.Comma = guessDelimiter(text)
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func guessDelimiter(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
