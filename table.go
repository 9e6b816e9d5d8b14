package sonify

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Table is a parsed tabular source. Rows never include the header row.
type Table struct {
	FileName  string
	Headers   []string
	Rows      [][]string
	HasHeader bool
}

var (
	ErrEmptyTable   = errors.New("table needs at least 2 rows")
	ErrNoValidRows  = errors.New("no row has a numeric value in the selected column")
	ErrColumnRange  = errors.New("column index out of range")
	isoDateRe       = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}`)
	slashedDateRe   = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}|\d{4}/\d{1,2}/\d{1,2})$`)
	looseDateLayout = []string{
		time.RFC3339,
		time.RFC1123,
		time.RFC1123Z,
		time.RFC822,
		time.ANSIC,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"Jan 2 2006",
		"Jan 2, 2006",
		"January 2 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"2 January 2006",
		"Mon Jan 2 2006",
		"Jan 2006",
		"January 2006",
		"2006.01.02",
		"02.01.2006",
	}
)

// NewTable builds a Table from parsed rows. If the first row has at least one
// non-empty cell that is not a number, it is taken as the header row;
// otherwise headers are named "Column 1", "Column 2" and so on. Blank rows
// are dropped. Fewer than 2 rows (header included) is an error.
func NewTable(rows [][]string, fileName string) (Table, error) {
	rows = dropBlankRows(rows)
	if len(rows) < 2 {
		return Table{}, ErrEmptyTable
	}
	t := Table{FileName: fileName}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if isHeaderRow(rows[0]) {
		t.HasHeader = true
		t.Headers = make([]string, width)
		for i := range t.Headers {
			if i < len(rows[0]) && strings.TrimSpace(rows[0][i]) != "" {
				t.Headers[i] = strings.TrimSpace(rows[0][i])
			} else {
				t.Headers[i] = fmt.Sprintf("Column %d", i+1)
			}
		}
		t.Rows = rows[1:]
	} else {
		t.Headers = make([]string, width)
		for i := range t.Headers {
			t.Headers[i] = fmt.Sprintf("Column %d", i+1)
		}
		t.Rows = rows
	}
	return t, nil
}

// ValidColumn reports if i indexes one of the table columns.
func (t Table) ValidColumn(i int) bool {
	return i >= 0 && i < len(t.Headers)
}

// DefaultColumns picks the columns a fresh import is plotted with: the first
// column as x and the second as y. A table whose second column holds no
// numbers is rejected by BuildTable rather than plotted from a later column;
// other pairs are reached with an explicit column selection.
func (t Table) DefaultColumns() (x, y int) {
	if len(t.Headers) < 2 {
		return 0, 0
	}
	return 0, 1
}

// BuildTable turns the selected column pair into a sequence. Rows that are
// too short or whose y cell is not a number are skipped. If the x cell of the
// first usable row looks like a date, the x column is treated as categorical:
// x becomes the ordinal position and Label the raw text. Otherwise x cells are
// parsed as numbers, falling back to ordinal + label per row.
func BuildTable(t Table, xCol, yCol int) (Sequence, error) {
	if !t.ValidColumn(xCol) || !t.ValidColumn(yCol) {
		return nil, ErrColumnRange
	}
	need := max(xCol, yCol) + 1
	var ret Sequence
	categorical := false
	for _, row := range t.Rows {
		if len(row) < need {
			continue
		}
		y, err := parseNumber(row[yCol])
		if err != nil {
			continue
		}
		raw := strings.TrimSpace(row[xCol])
		if len(ret) == 0 {
			categorical = IsDateLike(raw)
		}
		s := Sample{Y: y}
		ordinal := float64(len(ret))
		if categorical {
			s.X, s.Label = ordinal, raw
		} else if x, err := parseNumber(raw); err == nil {
			s.X = x
		} else {
			s.X, s.Label = ordinal, raw
		}
		ret = append(ret, s)
	}
	if len(ret) == 0 {
		return nil, ErrNoValidRows
	}
	return ret, nil
}

// IsDateLike reports if the text looks like a date: an ISO-style
// YYYY-M-D prefix, a slashed date, or anything longer than 4 characters that
// parses with one of the common date layouts.
func IsDateLike(s string) bool {
	s = strings.TrimSpace(s)
	if isoDateRe.MatchString(s) || slashedDateRe.MatchString(s) {
		return true
	}
	if len(s) <= 4 {
		return false
	}
	for _, layout := range looseDateLayout {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func isHeaderRow(row []string) bool {
	for _, c := range row {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, err := parseNumber(c); err != nil {
			return true
		}
	}
	return false
}

func dropBlankRows(rows [][]string) [][]string {
	ret := make([][]string, 0, len(rows))
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				ret = append(ret, r)
				break
			}
		}
	}
	return ret
}
