// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// KeywordKind identifies the section keyword that introduces an embedded
// C block. The zero value, KeywordNone, means "not a keyword".
type KeywordKind int

const (
	KeywordNone KeywordKind = iota
	KeywordCBlock
	KeywordCShare
	KeywordCLex
	KeywordCSub
)

// Keywords lists every recognized kind in declaration order.
var Keywords = []KeywordKind{KeywordCBlock, KeywordCShare, KeywordCLex, KeywordCSub}

// String returns the keyword spelling as it appears in host source.
func (k KeywordKind) String() string {
	switch k {
	case KeywordCBlock:
		return "cblock"
	case KeywordCShare:
		return "cshare"
	case KeywordCLex:
		return "clex"
	case KeywordCSub:
		return "csub"
	default:
		return ""
	}
}

// Valid reports whether k is one of the four recognized keywords.
func (k KeywordKind) Valid() bool {
	return k >= KeywordCBlock && k <= KeywordCSub
}

// MarshalText encodes the kind as its spelling so YAML and JSON output
// read "csub" rather than 4.
func (k KeywordKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid keyword kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a keyword spelling.
func (k *KeywordKind) UnmarshalText(text []byte) error {
	kind, err := ParseKeywordKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseKeywordKind maps a spelling back to its kind. It is used for
// filters and stored data, not for classifying host tokens.
func ParseKeywordKind(s string) (KeywordKind, error) {
	for _, k := range Keywords {
		if k.String() == s {
			return k, nil
		}
	}
	return KeywordNone, fmt.Errorf("unknown keyword %q: use cblock, cshare, clex, or csub", s)
}
