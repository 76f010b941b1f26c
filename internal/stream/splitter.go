// Package stream turns chunked byte output from a child process into
// discrete, trimmed text lines tagged with their origin stream.
package stream

import (
	"bytes"
	"strings"
)

// Origin identifies which output stream of the child process a line came from.
type Origin int

const (
	Stdout Origin = iota
	Stderr
)

// String returns the conventional name of the stream.
func (o Origin) String() string {
	if o == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one physical line of child-process output.
type Line struct {
	Origin Origin
	Text   string
}

// LineFunc receives each line synchronously, in arrival order.
type LineFunc func(Line)

// Splitter is an io.Writer that splits arbitrary byte chunks into lines.
// Chunks may end mid-line; the partial fragment is buffered until a
// delimiter arrives or Flush is called. Lines are split on \r\n, \n, or a
// bare \r, and empty lines are discarded after trimming.
type Splitter struct {
	origin Origin
	emit   LineFunc
	buf    []byte
}

// NewSplitter returns a Splitter that tags every line with origin and
// hands it to emit.
func NewSplitter(origin Origin, emit LineFunc) *Splitter {
	return &Splitter{origin: origin, emit: emit}
}

// Write implements io.Writer. It never fails; the returned length always
// covers the whole chunk.
func (s *Splitter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)

	for {
		idx := bytes.IndexAny(s.buf, "\r\n")
		if idx == -1 {
			break
		}

		line := s.buf[:idx]

		// Consume the delimiter, treating \r\n as one.
		next := idx + 1
		if s.buf[idx] == '\r' && next < len(s.buf) && s.buf[next] == '\n' {
			next++
		} else if s.buf[idx] == '\r' && next == len(s.buf) {
			// A trailing \r may be the first half of a \r\n split across
			// chunks. Keep the line buffered until the next chunk decides.
			break
		}

		s.buf = s.buf[next:]
		s.emitLine(string(line))
	}

	return len(p), nil
}

// Flush emits any buffered trailing fragment. Call it once the stream has
// reached EOF so the final unterminated line is not lost.
func (s *Splitter) Flush() {
	if len(s.buf) == 0 {
		return
	}
	line := strings.TrimRight(string(s.buf), "\r\n")
	s.buf = s.buf[:0]
	s.emitLine(line)
}

func (s *Splitter) emitLine(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.emit(Line{Origin: s.origin, Text: text})
}
