// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"fmt"

	"github.com/pdiddy/cblocks/pkg/types"
)

var (
	// ErrMissingOpeningDelimiter means no "{" followed the keyword.
	ErrMissingOpeningDelimiter = errors.New("missing opening delimiter")

	// ErrUnterminatedBlock means the buffer ended inside the block.
	ErrUnterminatedBlock = errors.New("unterminated block")

	// ErrUnterminatedLiteral means a host string, regex, or quote-like
	// operator ran to the end of the document.
	ErrUnterminatedLiteral = errors.New("unterminated host literal")

	// ErrNotKeyword is returned when Extract is called with KeywordNone.
	ErrNotKeyword = errors.New("not a section keyword")
)

// ScanError locates an extraction failure in the host document. It wraps
// one of the sentinel errors above.
type ScanError struct {
	Err error

	// Kind is KeywordNone for host literal failures.
	Kind types.KeywordKind
	Path string

	// Offset is where scanning stopped for a missing delimiter, and the
	// keyword start for an unterminated block.
	Offset int
	Line   int
	Column int

	// Reason adds detail, e.g. "inside string literal opened at line 4".
	Reason string
}

func (e *ScanError) Error() string {
	loc := fmt.Sprintf("%d:%d", e.Line, e.Column)
	if e.Path != "" {
		loc = e.Path + ":" + loc
	}
	kind := e.Kind.String()
	if kind == "" {
		kind = "host"
	}
	msg := fmt.Sprintf("%s: %s: %v", loc, kind, e.Err)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *ScanError) Unwrap() error { return e.Err }

// Failure converts the error into the record kept by a skipping scan.
func (e *ScanError) Failure() types.ScanFailure {
	return types.ScanFailure{
		Kind:    e.Kind,
		Offset:  e.Offset,
		Line:    e.Line,
		Message: e.Error(),
	}
}
