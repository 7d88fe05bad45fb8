// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keyword classifies host identifiers as embedded C section keywords.
package keyword

import "github.com/pdiddy/cblocks/pkg/types"

// Identify returns the kind of the section keyword spelled by token, or
// types.KeywordNone. The comparison is exact and case-sensitive: "CBLOCK",
// "cblocks", and "cbloc" are not keywords.
func Identify(token string) types.KeywordKind {
	// Length first, then bytes; a mismatched length never compares content.
	switch len(token) {
	case 4:
		switch token {
		case "clex":
			return types.KeywordCLex
		case "csub":
			return types.KeywordCSub
		}
	case 6:
		switch token {
		case "cblock":
			return types.KeywordCBlock
		case "cshare":
			return types.KeywordCShare
		}
	}
	return types.KeywordNone
}

// IsIdentStart reports whether c may begin a host identifier.
func IsIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsIdentByte reports whether c may continue a host identifier.
func IsIdentByte(c byte) bool {
	return IsIdentStart(c) || (c >= '0' && c <= '9')
}
