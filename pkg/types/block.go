// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SymbolName is the linkage-safe external name derived from a csub
// declaration (e.g. "A::B::run" becomes "A__B__run").
type SymbolName string

// Block is one extracted keyword occurrence. It owns its text: nothing in
// a Block aliases the source buffer it was scanned from.
type Block struct {
	// Kind is the keyword that introduced the block.
	Kind KeywordKind `json:"kind" yaml:"kind"`

	// Declaration is the text between a csub keyword and its opening
	// brace, trimmed of surrounding whitespace. Empty for other kinds.
	Declaration string `json:"declaration,omitempty" yaml:"declaration,omitempty"`

	// Symbol is the normalized external name of a csub. Computed once
	// during extraction.
	Symbol SymbolName `json:"symbol,omitempty" yaml:"symbol,omitempty"`

	// Text is the verbatim block body, outer braces excluded.
	Text string `json:"text" yaml:"text"`

	// Offset is the byte offset of the keyword in the host document.
	Offset int `json:"offset" yaml:"offset"`

	// Line is the 1-based host line of the keyword.
	Line int `json:"line" yaml:"line"`

	// BodyLine is the host line of the opening brace, where Text begins.
	BodyLine int `json:"body_line" yaml:"body_line"`

	// End is the byte offset just past the closing brace.
	End int `json:"end" yaml:"end"`

	// Functions lists the C functions the body defines, when inspected.
	Functions []CFunction `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// CFunction describes a C function definition found inside a block body.
type CFunction struct {
	Name      string `json:"name" yaml:"name"`
	Signature string `json:"signature" yaml:"signature"`

	// Line is 1-based and relative to the block body; add Block.BodyLine-1
	// for the host line.
	Line   int  `json:"line" yaml:"line"`
	Static bool `json:"static,omitempty" yaml:"static,omitempty"`
}

// ScanFailure records an extraction error the host chose to skip.
type ScanFailure struct {
	// Kind is zero for host literals that never close.
	Kind    KeywordKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Offset  int         `json:"offset" yaml:"offset"`
	Line    int         `json:"line" yaml:"line"`
	Message string      `json:"message" yaml:"message"`
}

// Document is the result of scanning one host document.
type Document struct {
	// Path identifies the host document (relative to the batch source
	// directory when produced by a batch run).
	Path string `json:"path" yaml:"path"`

	// Blocks are in order of occurrence.
	Blocks []Block `json:"blocks" yaml:"blocks"`

	Failures []ScanFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Symbols returns the normalized names of every csub block in order.
func (d *Document) Symbols() []SymbolName {
	var names []SymbolName
	for _, b := range d.Blocks {
		if b.Kind == KeywordCSub {
			names = append(names, b.Symbol)
		}
	}
	return names
}

// CountByKind tallies blocks per keyword.
func (d *Document) CountByKind() map[KeywordKind]int {
	counts := make(map[KeywordKind]int, len(Keywords))
	for _, b := range d.Blocks {
		counts[b.Kind]++
	}
	return counts
}
