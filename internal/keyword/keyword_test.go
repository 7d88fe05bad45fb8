// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keyword

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/pdiddy/cblocks/pkg/types"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		token string
		want  types.KeywordKind
	}{
		{"cblock", types.KeywordCBlock},
		{"cshare", types.KeywordCShare},
		{"clex", types.KeywordCLex},
		{"csub", types.KeywordCSub},
		{"CBLOCK", types.KeywordNone},
		{"Csub", types.KeywordNone},
		{"cblocks", types.KeywordNone},
		{"cbloc", types.KeywordNone},
		{"csu", types.KeywordNone},
		{"csubs", types.KeywordNone},
		{"xclex", types.KeywordNone},
		{"", types.KeywordNone},
		{"sub", types.KeywordNone},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := Identify(tt.token); got != tt.want {
				t.Errorf("Identify(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestIdentifyMatchesSpelling(t *testing.T) {
	for _, k := range types.Keywords {
		if got := Identify(k.String()); got != k {
			t.Errorf("Identify(%q) = %v, want %v", k.String(), got, k)
		}
	}
}

// Any token that is not byte-for-byte a keyword spelling must be rejected.
func TestIdentifyRejectsNonKeywords(t *testing.T) {
	spellings := map[string]bool{"cblock": true, "cshare": true, "clex": true, "csub": true}
	rapid.Check(t, func(rt *rapid.T) {
		token := rapid.StringMatching(`[a-zA-Z_]{0,8}`).Draw(rt, "token")
		got := Identify(token)
		if spellings[token] {
			if !got.Valid() {
				rt.Fatalf("Identify(%q) rejected a keyword", token)
			}
			return
		}
		if got != types.KeywordNone {
			rt.Fatalf("Identify(%q) = %v, want none", token, got)
		}
	})
}

func TestIdentifyCaseVariants(t *testing.T) {
	for _, k := range types.Keywords {
		upper := strings.ToUpper(k.String())
		if got := Identify(upper); got != types.KeywordNone {
			t.Errorf("Identify(%q) = %v, want none", upper, got)
		}
	}
}

func TestIdentBytes(t *testing.T) {
	for _, c := range []byte("_aZ") {
		if !IsIdentStart(c) {
			t.Errorf("IsIdentStart(%q) = false", c)
		}
	}
	if IsIdentStart('7') {
		t.Error("IsIdentStart('7') = true")
	}
	if !IsIdentByte('7') {
		t.Error("IsIdentByte('7') = false")
	}
	for _, c := range []byte(":$ {") {
		if IsIdentByte(c) {
			t.Errorf("IsIdentByte(%q) = true", c)
		}
	}
}
