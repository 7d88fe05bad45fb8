// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"io"
	"log/slog"
	"strings"
)

// ErrCursorBackwards is returned by Seek when asked to move behind the cursor.
var ErrCursorBackwards = errors.New("cursor cannot move backwards")

// Host carries the host document context through every extraction call.
// It replaces the interpreter handle the host would otherwise hold
// globally.
type Host struct {
	// Path names the host document in diagnostics.
	Path string

	// FirstLine is the host line number of the buffer's first byte
	// (default 1).
	FirstLine int

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

func (h Host) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h.Logger
}

// State is the mutable record threaded through one document scan: the
// read-only source, the cursor, the line context for diagnostics, and
// the accumulator for the block being captured.
type State struct {
	host Host
	src  []byte
	pos  int

	line      int
	lineStart int

	acc strings.Builder
}

// NewState returns a State positioned at the start of src.
func NewState(host Host, src []byte) *State {
	if host.FirstLine <= 0 {
		host.FirstLine = 1
	}
	return &State{
		host: host,
		src:  src,
		line: host.FirstLine,
	}
}

// Host returns the document context.
func (s *State) Host() Host { return s.host }

// Pos returns the cursor offset.
func (s *State) Pos() int { return s.pos }

// Line returns the host line the cursor is on.
func (s *State) Line() int { return s.line }

// Column returns the 1-based byte column of the cursor.
func (s *State) Column() int { return s.pos - s.lineStart + 1 }

// Len returns the buffer length.
func (s *State) Len() int { return len(s.src) }

// AtEOF reports whether the cursor has reached the end of the buffer.
func (s *State) AtEOF() bool { return s.pos >= len(s.src) }

// Seek advances the cursor to pos, keeping line context current.
func (s *State) Seek(pos int) error {
	if pos < s.pos {
		return ErrCursorBackwards
	}
	if pos > len(s.src) {
		pos = len(s.src)
	}
	for s.pos < pos {
		s.advance()
	}
	return nil
}

// peek returns the byte at the cursor plus off, or 0 past the end.
func (s *State) peek(off int) byte {
	if i := s.pos + off; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

// advance moves the cursor one byte.
func (s *State) advance() {
	if s.src[s.pos] == '\n' {
		s.line++
		s.lineStart = s.pos + 1
	}
	s.pos++
}

// take appends the byte at the cursor to the accumulator and advances.
func (s *State) take() {
	s.acc.WriteByte(s.src[s.pos])
	s.advance()
}

// mark captures the cursor and line context so a failed extraction can
// be rolled back to it.
type mark struct {
	pos, line, lineStart int
}

func (s *State) mark() mark {
	return mark{pos: s.pos, line: s.line, lineStart: s.lineStart}
}

// reset restores a mark and discards the accumulator. It only ever moves
// back to a position inside the occurrence being extracted.
func (s *State) reset(m mark) {
	s.pos, s.line, s.lineStart = m.pos, m.line, m.lineStart
	s.acc.Reset()
}

// flush returns the accumulated text as a new string and empties the
// accumulator.
func (s *State) flush() string {
	text := s.acc.String()
	s.acc = strings.Builder{}
	return text
}
