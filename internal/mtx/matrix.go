// Package mtx parses Matrix Market coordinate files, their row and column
// label files, and cluster-assignment files.
package mtx

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"
)

// Field is the value type declared in a Matrix Market banner
type Field string

const (
	FieldReal    Field = "real"
	FieldInteger Field = "integer"
	FieldPattern Field = "pattern"
)

const bannerPrefix = "%%MatrixMarket"

// Entry is one coordinate line. Row and Col are 1-based.
type Entry struct {
	Row   int
	Col   int
	Value float64
	Line  int
}

// Matrix describes a coordinate matrix file. Its entries are read lazily.
type Matrix struct {
	Path  string
	Rows  int
	Cols  int
	NNZ   int
	Field Field
}

// OpenMatrix reads the banner and dimensions line of a coordinate file.
func OpenMatrix(path string) (*Matrix, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := &Matrix{Path: path, Field: FieldReal}
	if err := m.readHeader(newLineScanner(f)); err != nil {
		return nil, err
	}
	return m, nil
}

// readHeader consumes lines up to and including the dimensions line
func (m *Matrix) readHeader(sc *lineScanner) error {
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, bannerPrefix) {
			if err := m.parseBanner(line, sc.Line()); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, "%") {
			continue
		}
		return m.parseDims(line, sc.Line())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", m.Path, err)
	}
	return malformed(m.Path, 0, "no dimensions line")
}

func (m *Matrix) parseBanner(line string, lineNo int) error {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) != 5 {
		return malformed(m.Path, lineNo, "banner has %d fields, want 5", len(fields))
	}
	if fields[1] != "matrix" || fields[2] != "coordinate" {
		return malformed(m.Path, lineNo, "unsupported format %q %q", fields[1], fields[2])
	}
	switch Field(fields[3]) {
	case FieldReal, FieldInteger, FieldPattern:
		m.Field = Field(fields[3])
	default:
		return malformed(m.Path, lineNo, "unsupported field %q", fields[3])
	}
	if fields[4] != "general" {
		return malformed(m.Path, lineNo, "unsupported symmetry %q", fields[4])
	}
	return nil
}

func (m *Matrix) parseDims(line string, lineNo int) error {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return malformed(m.Path, lineNo, "dimensions line has %d fields, want 3", len(fields))
	}
	dims := make([]int, 3)
	for i, s := range fields {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return malformed(m.Path, lineNo, "invalid dimension %q", s)
		}
		dims[i] = n
	}
	m.Rows, m.Cols, m.NNZ = dims[0], dims[1], dims[2]
	return nil
}

// Entries returns a sequence over the coordinate lines. Each call reopens the
// file. Iteration stops at the first error, which is yielded with a zero Entry.
// The number of entries must match the declared nonzero count.
func (m *Matrix) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		f, err := openFile(m.Path)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		defer f.Close()

		sc := newLineScanner(f)
		hdr := &Matrix{Path: m.Path, Field: FieldReal}
		if err := hdr.readHeader(sc); err != nil {
			yield(Entry{}, err)
			return
		}

		count := 0
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "%") {
				continue
			}
			e, err := hdr.parseEntry(line, sc.Line())
			if err == nil && count >= hdr.NNZ {
				err = malformed(m.Path, sc.Line(), "more entries than the declared %d", hdr.NNZ)
			}
			if err != nil {
				yield(Entry{}, err)
				return
			}
			count++
			if !yield(e, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("failed to read %s: %w", m.Path, err))
			return
		}
		if count != hdr.NNZ {
			yield(Entry{}, malformed(m.Path, 0, "found %d entries, declared %d", count, hdr.NNZ))
		}
	}
}

func (m *Matrix) parseEntry(line string, lineNo int) (Entry, error) {
	fields := strings.Fields(line)
	want := 3
	if m.Field == FieldPattern {
		want = 2
	}
	if len(fields) != want {
		return Entry{}, malformed(m.Path, lineNo, "entry has %d fields, want %d", len(fields), want)
	}

	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return Entry{}, malformed(m.Path, lineNo, "invalid row index %q", fields[0])
	}
	col, err := strconv.Atoi(fields[1])
	if err != nil {
		return Entry{}, malformed(m.Path, lineNo, "invalid column index %q", fields[1])
	}
	if row < 1 || row > m.Rows {
		return Entry{}, malformed(m.Path, lineNo, "row index %d outside [1, %d]", row, m.Rows)
	}
	if col < 1 || col > m.Cols {
		return Entry{}, malformed(m.Path, lineNo, "column index %d outside [1, %d]", col, m.Cols)
	}

	value := 1.0
	if want == 3 {
		value, err = strconv.ParseFloat(fields[2], 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return Entry{}, malformed(m.Path, lineNo, "invalid value %q", fields[2])
		}
	}
	return Entry{Row: row, Col: col, Value: value, Line: lineNo}, nil
}
