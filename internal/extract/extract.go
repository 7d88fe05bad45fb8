// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract captures the C block that follows a section keyword in a
// host document. The scanner tracks brace depth and suspends counting
// inside string literals, character literals, and comments, so braces in
// those regions never end a block early.
package extract

import (
	"fmt"
	"strings"

	"github.com/pdiddy/cblocks/internal/normalize"
	"github.com/pdiddy/cblocks/pkg/types"
)

// region is the lexical context of the byte under the cursor.
type region int

const (
	inCode region = iota
	inString
	inChar
	inLineComment
	inBlockComment
)

func (r region) String() string {
	switch r {
	case inString:
		return "string literal"
	case inChar:
		return "character literal"
	case inLineComment:
		return "line comment"
	case inBlockComment:
		return "block comment"
	default:
		return "code"
	}
}

// ExtractAt extracts the block for a keyword occurrence whose spelling
// ends at cursor. It returns the block and the offset just past its
// closing brace. On error the cursor is returned unchanged.
func ExtractAt(host Host, src []byte, kind types.KeywordKind, cursor int) (types.Block, int, error) {
	st := NewState(host, src)
	if err := st.Seek(cursor); err != nil {
		return types.Block{}, cursor, err
	}
	block, err := Extract(st, kind)
	if err != nil {
		return types.Block{}, cursor, err
	}
	return block, st.Pos(), nil
}

// Extract captures the block introduced by kind. The cursor must sit
// immediately after the keyword. On success the cursor is past the
// block's closing brace; on failure it is left where it was and no block
// is returned.
func Extract(st *State, kind types.KeywordKind) (types.Block, error) {
	if !kind.Valid() {
		return types.Block{}, ErrNotKeyword
	}

	start := st.mark()
	block := types.Block{
		Kind:   kind,
		Offset: keywordOffset(st, kind),
		Line:   st.line,
	}
	column := block.Offset - st.lineStart + 1

	decl, err := openBlock(st, kind)
	if err != nil {
		st.reset(start)
		return types.Block{}, err
	}
	block.BodyLine = st.line

	text, reason, ok := scanBody(st)
	if !ok {
		st.reset(start)
		return types.Block{}, &ScanError{
			Err:    ErrUnterminatedBlock,
			Kind:   kind,
			Path:   st.host.Path,
			Offset: block.Offset,
			Line:   block.Line,
			Column: column,
			Reason: reason,
		}
	}

	block.Text = text
	block.End = st.pos

	log := st.host.logger()
	if kind == types.KeywordCSub {
		block.Declaration = decl
		sym, err := normalize.Normalize(decl)
		if err != nil {
			log.Warn("csub symbol left unnormalized",
				"path", st.host.Path, "line", block.Line, "declaration", decl, "error", err)
		}
		block.Symbol = sym
	}

	log.Debug("extracted block",
		"path", st.host.Path, "kind", kind.String(), "line", block.Line, "bytes", len(block.Text))
	return block, nil
}

// keywordOffset returns where the keyword that ends at the cursor starts.
// If the bytes before the cursor do not spell the keyword, the cursor
// itself is the best location available.
func keywordOffset(st *State, kind types.KeywordKind) int {
	spelling := kind.String()
	off := st.pos - len(spelling)
	if off >= st.lineStart && string(st.src[off:st.pos]) == spelling {
		return off
	}
	return st.pos
}

// openBlock skips to and consumes the opening brace. For csub the bytes
// skipped form the declaration, which is returned trimmed.
func openBlock(st *State, kind types.KeywordKind) (string, error) {
	declStart := st.pos
	for !st.AtEOF() {
		c := st.peek(0)
		switch {
		case c == '{':
			decl := strings.TrimSpace(string(st.src[declStart:st.pos]))
			st.advance()
			return decl, nil
		case isSpace(c):
			st.advance()
		case kind == types.KeywordCSub && c != ';' && c != '}':
			st.advance()
		default:
			return "", missingDelimiter(st, kind, fmt.Sprintf("found %q", c))
		}
	}
	return "", missingDelimiter(st, kind, "reached end of input")
}

func missingDelimiter(st *State, kind types.KeywordKind, reason string) error {
	return &ScanError{
		Err:    ErrMissingOpeningDelimiter,
		Kind:   kind,
		Path:   st.host.Path,
		Offset: st.pos,
		Line:   st.line,
		Column: st.Column(),
		Reason: reason,
	}
}

// scanBody accumulates the block body after the opening brace, up to the
// matching closing brace, which is consumed but not captured. When the
// buffer runs out first it reports which region was left open.
func scanBody(st *State) (string, string, bool) {
	depth := 1
	mode := inCode
	openedAt := 0

	for !st.AtEOF() {
		c := st.peek(0)
		switch mode {
		case inCode:
			switch c {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					st.advance()
					return st.flush(), "", true
				}
			case '"':
				mode, openedAt = inString, st.line
			case '\'':
				mode, openedAt = inChar, st.line
			case '/':
				switch st.peek(1) {
				case '/':
					mode, openedAt = inLineComment, st.line
					st.take()
				case '*':
					mode, openedAt = inBlockComment, st.line
					st.take()
				}
			}
		case inString, inChar:
			quote := byte('"')
			if mode == inChar {
				quote = '\''
			}
			if c == '\\' && st.pos+1 < st.Len() {
				st.take()
			} else if c == quote {
				mode = inCode
			}
		case inLineComment:
			switch {
			case c == '\\' && st.peek(1) == '\n':
				st.take()
			case c == '\\' && st.peek(1) == '\r' && st.peek(2) == '\n':
				st.take()
				st.take()
			case c == '\n':
				mode = inCode
			}
		case inBlockComment:
			if c == '*' && st.peek(1) == '/' {
				st.take()
				mode = inCode
			}
		}
		st.take()
	}

	switch mode {
	case inString, inChar, inBlockComment:
		return "", fmt.Sprintf("inside %s opened at line %d", mode, openedAt), false
	default:
		return "", fmt.Sprintf("%d unclosed brace(s)", depth), false
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
