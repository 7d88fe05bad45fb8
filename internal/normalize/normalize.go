// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize derives the external symbol name of a csub declaration.
// Scoped names such as "A::B::run" are flattened to "A__B__run" so the C
// linker accepts them.
package normalize

import (
	"errors"
	"strings"

	"github.com/pdiddy/cblocks/internal/keyword"
	"github.com/pdiddy/cblocks/pkg/types"
)

const (
	scopeSeparator   = "::"
	linkageSeparator = "__"
)

// ErrMalformedDeclaration reports that no function name could be located.
// Normalize still returns the raw text alongside it.
var ErrMalformedDeclaration = errors.New("malformed csub declaration: no function name")

// Normalize returns the linkage-safe symbol for a raw csub declaration.
//
// The name is the scoped identifier that ends just before the first "(",
// or the trailing scoped identifier when the declaration has no parameter
// list. Only the "::" separators inside that name are rewritten. When no
// name can be found the raw text is returned unchanged together with
// ErrMalformedDeclaration; block extraction has already succeeded by then,
// so callers keep the block.
func Normalize(raw string) (types.SymbolName, error) {
	start, end, ok := namePosition(raw)
	if !ok {
		return types.SymbolName(raw), ErrMalformedDeclaration
	}
	return types.SymbolName(flatten(raw[start:end])), nil
}

// flatten replaces every scope separator with the linkage separator.
func flatten(name string) string {
	if !strings.Contains(name, scopeSeparator) {
		return name
	}
	return strings.ReplaceAll(name, scopeSeparator, linkageSeparator)
}

// namePosition locates the function name inside decl and returns its byte
// range.
func namePosition(decl string) (int, int, bool) {
	region := decl
	if i := strings.IndexByte(decl, '('); i >= 0 {
		region = decl[:i]
	}

	end := len(strings.TrimRight(region, " \t\r\n"))
	start := end
	for start > 0 {
		c := region[start-1]
		if keyword.IsIdentByte(c) {
			start--
			continue
		}
		if c == ':' && start >= 2 && region[start-2] == ':' {
			start -= 2
			continue
		}
		break
	}

	if start == end || !validScopedName(region[start:end]) {
		return 0, 0, false
	}
	return start, end, true
}

// validScopedName reports whether every segment of name is an identifier.
// A single leading separator ("::run", the main package) is accepted.
func validScopedName(name string) bool {
	name = strings.TrimPrefix(name, scopeSeparator)
	for _, seg := range strings.Split(name, scopeSeparator) {
		if seg == "" || !keyword.IsIdentStart(seg[0]) {
			return false
		}
	}
	return true
}
