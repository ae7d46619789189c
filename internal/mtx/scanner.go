package mtx

import (
	"bufio"
	"io"
	"strings"
)

const maxLineSize = 1 << 20

// lineScanner is a bufio.Scanner that tracks 1-based line numbers
type lineScanner struct {
	sc   *bufio.Scanner
	line int
	text string
}

func newLineScanner(r io.Reader) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineScanner{sc: sc}
}

func (s *lineScanner) Scan() bool {
	if !s.sc.Scan() {
		return false
	}
	s.line++
	s.text = strings.TrimRight(s.sc.Text(), "\r")
	return true
}

func (s *lineScanner) Text() string { return s.text }

func (s *lineScanner) Line() int { return s.line }

func (s *lineScanner) Err() error { return s.sc.Err() }
