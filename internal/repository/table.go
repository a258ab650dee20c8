package repository

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// columnSchema maps a canonical column to the header names accepted for it.
type columnSchema map[string][]string

// table is a parsed delimited file: a header plus data rows with the line
// number each row started on.
type table struct {
	header  []string
	rows    [][]string
	lines   []int
	badRows []badRow
}

type badRow struct {
	line   int
	reason string
}

// readTable reads a comma- or semicolon-separated file. The delimiter is
// taken from the header line; Latin-1 content is decoded when the input is
// not valid UTF-8.
func readTable(r io.Reader) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		data = latin1ToUTF8(data)
	}

	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(string(firstLine))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &table{header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				t.badRows = append(t.badRows, badRow{line: pe.StartLine, reason: pe.Err.Error()})
				continue
			}
			return nil, err
		}
		if blankRecord(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		t.rows = append(t.rows, rec)
		t.lines = append(t.lines, line)
	}
	return t, nil
}

// columns resolves canonical names to header indexes. Matching ignores case
// and surrounding blanks. Missing required columns are reported together.
func (t *table) columns(schema columnSchema, required ...string) (map[string]int, error) {
	index := make(map[string]int, len(t.header))
	for i, h := range t.header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	cols := make(map[string]int, len(schema))
	for canonical, aliases := range schema {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				cols[canonical] = i
				break
			}
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s) %s in header %q", strings.Join(missing, ", "), strings.Join(t.header, ","))
	}
	return cols, nil
}

// field returns the trimmed value of a mapped column, or "" when the column
// is unmapped or the row is short.
func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func detectDelimiter(headerLine string) rune {
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		return ';'
	}
	return ','
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func latin1ToUTF8(b []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(b) * 2)
	for _, c := range b {
		buf.WriteRune(rune(c))
	}
	return buf.Bytes()
}
