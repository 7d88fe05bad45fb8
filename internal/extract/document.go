// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"strings"

	"github.com/pdiddy/cblocks/internal/keyword"
	"github.com/pdiddy/cblocks/pkg/types"
)

// ScanDocument walks a Perl host document and extracts every keyword
// occurrence in order. It stands in for the host tokenizer: comments,
// quoted strings, quote-like operators (q qq qw qr m s tr y), regex
// literals, and POD are skipped, scanning stops at __END__ or __DATA__,
// and identifiers used as variables, method names, sub names, package
// segments, or hash keys are not treated as keywords.
//
// With cfg.OnError set to skip, failed occurrences are recorded in
// Document.Failures and scanning resumes after the keyword. Otherwise the
// first failure is returned together with the blocks found so far.
//
// A host literal that never closes is always recorded as a failure with
// no keyword kind, and scanning resumes just past its opening delimiter.
func ScanDocument(host Host, src []byte, cfg types.ScanConfig) (*types.Document, error) {
	st := NewState(host, src)
	doc := &types.Document{Path: host.Path}
	log := host.logger()

	for !st.AtEOF() {
		c := st.peek(0)
		switch {
		case c == '#' && !(st.pos > 0 && src[st.pos-1] == '$'):
			skipLine(st)
		case c == '"' || c == '\'' || c == '`':
			skipLiteral(st, doc, st.mark(), st.pos+1, "string", func() bool {
				return skipDelimited(st)
			})
		case c == '/' && regexAllowed(src, st.pos):
			skipLiteral(st, doc, st.mark(), st.pos+1, "regex", func() bool {
				if !skipDelimited(st) {
					return false
				}
				skipModifiers(st)
				return true
			})
		case c == '=' && st.pos == st.lineStart && keyword.IsIdentStart(st.peek(1)):
			skipPOD(st)
		case keyword.IsIdentStart(c):
			word, start := readWord(st)
			if (word == "__END__" || word == "__DATA__") && start.pos == st.lineStart {
				return doc, nil
			}

			if quoteOperators[word] && standalone(src, start.pos, st.pos) {
				if delim, ok := operatorDelimiter(src, st.pos); ok {
					skipLiteral(st, doc, start, st.pos, word, func() bool {
						return skipQuoteOperator(st, word, delim)
					})
					continue
				}
			}

			kind := keyword.Identify(word)
			if kind == types.KeywordNone || !standalone(src, start.pos, st.pos) {
				continue
			}

			block, err := Extract(st, kind)
			if err != nil {
				var se *ScanError
				if cfg.OnError == types.OnErrorSkip && errors.As(err, &se) {
					log.Warn("skipping keyword occurrence", "error", se.Error())
					doc.Failures = append(doc.Failures, se.Failure())
					continue
				}
				return doc, err
			}
			doc.Blocks = append(doc.Blocks, block)
		default:
			st.advance()
		}
	}
	return doc, nil
}

// readWord consumes an identifier and returns it with the mark of its
// first byte.
func readWord(st *State) (string, mark) {
	start := st.mark()
	for !st.AtEOF() && keyword.IsIdentByte(st.peek(0)) {
		st.advance()
	}
	return string(st.src[start.pos:st.pos]), start
}

// skipLiteral runs skip over a host literal starting at start. If the
// literal runs to the end of the document, the failure is recorded, the
// cursor returns to start, and scanning resumes at resume.
func skipLiteral(st *State, doc *types.Document, start mark, resume int, what string, skip func() bool) {
	if skip() {
		return
	}
	st.reset(start)
	se := &ScanError{
		Err:    ErrUnterminatedLiteral,
		Path:   st.host.Path,
		Offset: st.pos,
		Line:   st.line,
		Column: st.Column(),
		Reason: what,
	}
	st.host.logger().Warn("host literal runs to end of document", "error", se.Error())
	doc.Failures = append(doc.Failures, se.Failure())
	st.Seek(resume)
}

// lookahead bounds how far past an identifier standalone looks for "::",
// "=>", or "}".
const lookahead = 16

// standalone reports whether the identifier src[start:end] is used as a
// bare word rather than as a variable, method, sub name, package segment,
// or hash key.
func standalone(src []byte, start, end int) bool {
	if start > 0 {
		switch src[start-1] {
		case '$', '@', '%', '&', '*', ':':
			return false
		case '>':
			if start > 1 && src[start-2] == '-' {
				return false
			}
		}
	}
	if previousWord(src, start) == "sub" {
		return false
	}

	rest := strings.TrimLeft(string(src[end:min(end+lookahead, len(src))]), " \t")
	switch {
	case strings.HasPrefix(rest, "::"), strings.HasPrefix(rest, "=>"):
		return false
	case start > 0 && src[start-1] == '{' && strings.HasPrefix(rest, "}"):
		return false
	}
	return true
}

// previousWord returns the identifier that ends at the last non-space byte
// before pos, or "" if that byte is not part of an identifier.
func previousWord(src []byte, pos int) string {
	end := pos
	for end > 0 && isSpace(src[end-1]) {
		end--
	}
	start := end
	for start > 0 && keyword.IsIdentByte(src[start-1]) {
		start--
	}
	return string(src[start:end])
}

// quoteOperators are the Perl words that take delimited arguments.
var quoteOperators = map[string]bool{
	"q": true, "qq": true, "qw": true, "qr": true,
	"m": true, "s": true, "tr": true, "y": true,
}

// regexWords are the words after which a "/" starts a regex rather than
// a division.
var regexWords = map[string]bool{
	"split": true, "grep": true, "map": true, "join": true, "return": true,
	"and": true, "or": true, "not": true, "if": true, "unless": true,
	"while": true, "until": true, "when": true, "push": true, "unshift": true,
}

// regexAllowed reports whether a "/" at pos opens a regex. It does when
// the previous token is an operator, an opening bracket, or a word that
// takes an expression.
func regexAllowed(src []byte, pos int) bool {
	i := pos
	for i > 0 && isSpace(src[i-1]) {
		i--
	}
	if i == 0 {
		return true
	}
	prev := src[i-1]
	if keyword.IsIdentByte(prev) {
		word := previousWord(src, i)
		if before := i - len(word) - 1; before >= 0 && strings.IndexByte("$@%&", src[before]) >= 0 {
			return false
		}
		return regexWords[word]
	}
	return strings.IndexByte("(,=~!{;[|&?:", prev) >= 0
}

// operatorDelimiter finds the opening delimiter of a quote-like operator
// whose name ends at pos. A "#" delimits only when it follows the name
// directly; after whitespace it starts a comment.
func operatorDelimiter(src []byte, pos int) (int, bool) {
	if pos < len(src) && src[pos] == '#' {
		return pos, true
	}
	i := pos
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	if i >= len(src) {
		return 0, false
	}
	d := src[i]
	if keyword.IsIdentByte(d) || strings.IndexByte("#=,;)]}>", d) >= 0 {
		return 0, false
	}
	return i, true
}

func closingDelimiter(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	}
	return open
}

// skipQuoteOperator moves past the arguments of a quote-like operator
// whose opening delimiter is at delim. Substitutions and transliterations
// take two arguments: with bracketing delimiters the second has its own
// pair, otherwise it reuses the closing delimiter of the first.
func skipQuoteOperator(st *State, op string, delim int) bool {
	st.Seek(delim)
	open := st.peek(0)
	if !skipDelimited(st) {
		return false
	}
	if op == "s" || op == "tr" || op == "y" {
		if closingDelimiter(open) != open {
			for !st.AtEOF() && isSpace(st.peek(0)) {
				st.advance()
			}
			if st.AtEOF() || !skipDelimited(st) {
				return false
			}
		} else if !skipBody(st, open, open) {
			return false
		}
	}
	skipModifiers(st)
	return true
}

// skipDelimited moves past a delimited host literal whose opening
// delimiter is at the cursor. It reports false if the document ends first.
func skipDelimited(st *State) bool {
	open := st.peek(0)
	st.advance()
	return skipBody(st, open, closingDelimiter(open))
}

// skipBody moves past the closing delimiter of a literal whose opener has
// been consumed. Bracketing delimiters nest; a backslash escapes the next
// byte.
func skipBody(st *State, open, close byte) bool {
	depth := 1
	for !st.AtEOF() {
		c := st.peek(0)
		st.advance()
		switch {
		case c == '\\' && !st.AtEOF():
			st.advance()
		case c == close:
			depth--
			if depth == 0 {
				return true
			}
		case c == open:
			depth++
		}
	}
	return false
}

func skipModifiers(st *State) {
	for !st.AtEOF() {
		c := st.peek(0)
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return
		}
		st.advance()
	}
}

func skipLine(st *State) {
	for !st.AtEOF() && st.peek(0) != '\n' {
		st.advance()
	}
}

// skipPOD moves past a POD section: from a line starting with "=word" to
// the end of the next line starting with "=cut".
func skipPOD(st *State) {
	for !st.AtEOF() {
		atCut := st.pos == st.lineStart &&
			strings.HasPrefix(string(st.src[st.pos:min(st.pos+4, len(st.src))]), "=cut")
		skipLine(st)
		if !st.AtEOF() {
			st.advance()
		}
		if atCut {
			return
		}
	}
}
