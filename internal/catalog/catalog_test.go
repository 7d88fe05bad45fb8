// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cblocks/internal/batch"
	"github.com/pdiddy/cblocks/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()
	resultsDir := filepath.Join(tmpDir, "results")
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(types.CatalogConfig{
		CatalogDir: filepath.Join(tmpDir, "catalog"),
		ResultsDir: resultsDir,
		MaxResults: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, resultsDir
}

func writeResult(t *testing.T, resultsDir string, doc types.Document) string {
	t.Helper()
	data, err := yaml.Marshal(&doc)
	if err != nil {
		t.Fatal(err)
	}
	path := batch.ResultPath(resultsDir, doc.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleDocument(path string) types.Document {
	return types.Document{
		Path: path,
		Blocks: []types.Block{
			{
				Kind: types.KeywordCShare, Text: "\n\tstatic int add(int a, int b) { return a + b; }\n",
				Offset: 20, Line: 3, BodyLine: 4, End: 80,
				Functions: []types.CFunction{{Name: "add", Signature: "static int add(int a, int b)", Line: 2, Static: true}},
			},
			{
				Kind: types.KeywordCSub, Declaration: "Math::Fast::sum", Symbol: "Math__Fast__sum",
				Text: "\n\tdXSARGS;\n\tXSRETURN_IV(add(SvIV(ST(0)), SvIV(ST(1))));\n",
				Offset: 90, Line: 7, End: 170,
			},
			{
				Kind: types.KeywordCLex, Text: " [a-z]+ ",
				Offset: 180, Line: 12, End: 195,
			},
		},
	}
}

func ingest(t *testing.T, store *Store) IngestSummary {
	t.Helper()
	var out bytes.Buffer
	summary, err := store.Ingest(context.Background(), &out)
	if err != nil {
		t.Fatalf("Ingest: %v\n%s", err, out.String())
	}
	return summary
}

// --- ingest ---

func TestIngest(t *testing.T) {
	store, resultsDir := testSetup(t)
	writeResult(t, resultsDir, sampleDocument("lib/Math/Fast.pm"))
	writeResult(t, resultsDir, sampleDocument("t/basic.t"))

	summary := ingest(t, store)
	if summary.Indexed != 2 || summary.Total() != 2 {
		t.Errorf("summary = %+v, want 2 indexed", summary)
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{Path: "lib/Math/Fast.pm"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d blocks, want 3", len(results))
	}
	if results[0].Kind != types.KeywordCShare || results[1].Kind != types.KeywordCSub {
		t.Errorf("blocks out of order: %v, %v", results[0].Kind, results[1].Kind)
	}
	if results[0].BodyLine != 4 {
		t.Errorf("BodyLine = %d, want 4", results[0].BodyLine)
	}
	if len(results[0].Functions) != 1 || results[0].Functions[0].Name != "add" {
		t.Errorf("functions = %+v, want add", results[0].Functions)
	}
	if results[1].Symbol != "Math__Fast__sum" || results[1].Declaration != "Math::Fast::sum" {
		t.Errorf("csub = %q / %q", results[1].Declaration, results[1].Symbol)
	}
}

func TestIngestIncremental(t *testing.T) {
	store, resultsDir := testSetup(t)
	path := writeResult(t, resultsDir, sampleDocument("A.pm"))

	ingest(t, store)
	if s := ingest(t, store); s.Skipped != 1 {
		t.Errorf("second run: %+v, want 1 skipped", s)
	}

	doc := sampleDocument("A.pm")
	doc.Blocks = doc.Blocks[:1]
	writeResult(t, resultsDir, doc)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if s := ingest(t, store); s.Updated != 1 {
		t.Errorf("third run: %+v, want 1 updated", s)
	}
	results, err := store.Retrieve(context.Background(), QueryOptions{Path: "A.pm"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d blocks after update, want 1", len(results))
	}
}

func TestIngestReportsBadResult(t *testing.T) {
	store, resultsDir := testSetup(t)
	bad := filepath.Join(resultsDir, "bad.pl"+batch.ResultSuffix)
	if err := os.WriteFile(bad, []byte("blocks: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	summary, err := store.Ingest(context.Background(), &out)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
	if !strings.Contains(out.String(), "failed  bad.pl") {
		t.Errorf("output missing failure line:\n%s", out.String())
	}
}

// --- retrieve ---

func TestRetrieve(t *testing.T) {
	store, resultsDir := testSetup(t)
	writeResult(t, resultsDir, sampleDocument("lib/Math/Fast.pm"))
	ingest(t, store)

	tests := []struct {
		name string
		opts QueryOptions
		want int
	}{
		{name: "full text", opts: QueryOptions{Query: "dXSARGS"}, want: 1},
		{name: "full text no match", opts: QueryOptions{Query: "malloc"}, want: 0},
		{name: "kind filter", opts: QueryOptions{Kind: types.KeywordCLex}, want: 1},
		{name: "symbol filter", opts: QueryOptions{Symbol: "Math__Fast__sum"}, want: 1},
		{name: "full text and kind", opts: QueryOptions{Query: "add", Kind: types.KeywordCShare}, want: 1},
		{name: "limit", opts: QueryOptions{Path: "lib/Math/Fast.pm", MaxResults: 2}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Retrieve(context.Background(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != tt.want {
				t.Errorf("got %d results, want %d", len(results), tt.want)
			}
		})
	}
}

func TestQueryOptionsIsEmpty(t *testing.T) {
	if !(QueryOptions{MaxResults: 5}).IsEmpty() {
		t.Error("options with only a limit should be empty")
	}
	if (QueryOptions{Kind: types.KeywordCSub}).IsEmpty() {
		t.Error("kind filter should not be empty")
	}
}

func TestBlock(t *testing.T) {
	store, resultsDir := testSetup(t)
	writeResult(t, resultsDir, sampleDocument("A.pm"))
	ingest(t, store)

	want := stableID("A.pm", 180, " [a-z]+ ")
	got, err := store.Block(context.Background(), want)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != types.KeywordCLex || got.Line != 12 || got.Path != "A.pm" {
		t.Errorf("Block(%s) = %+v", want, got)
	}

	_, err = store.Block(context.Background(), "000000000000")
	if !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("missing block error = %v, want %v", err, ErrBlockNotFound)
	}
}

func TestBlockCorruptFunctions(t *testing.T) {
	store, resultsDir := testSetup(t)
	writeResult(t, resultsDir, sampleDocument("A.pm"))
	ingest(t, store)

	id := stableID("A.pm", 20, sampleDocument("A.pm").Blocks[0].Text)
	if _, err := store.db.Exec(`UPDATE blocks SET functions = '{not json' WHERE id = ?`, id); err != nil {
		t.Fatal(err)
	}

	_, err := store.Block(context.Background(), id)
	if err == nil || !strings.Contains(err.Error(), "decoding functions") {
		t.Errorf("Block with corrupt functions: err = %v, want decoding error", err)
	}
}

func TestStableID(t *testing.T) {
	id1 := stableID("A.pm", 10, "x")
	id2 := stableID("A.pm", 10, "x")
	id3 := stableID("A.pm", 11, "x")
	if id1 != id2 {
		t.Errorf("same inputs produced different IDs: %s vs %s", id1, id2)
	}
	if id1 == id3 {
		t.Errorf("different offsets produced the same ID: %s", id1)
	}
	if len(id1) != 12 {
		t.Errorf("ID length = %d, want 12", len(id1))
	}
}

// --- symbol conflicts ---

func TestSymbolConflicts(t *testing.T) {
	store, resultsDir := testSetup(t)

	scoped := types.Document{Path: "A.pm", Blocks: []types.Block{
		{Kind: types.KeywordCSub, Declaration: "A::B_c", Symbol: "A__B_c", Text: "x;", Offset: 0, Line: 1},
		{Kind: types.KeywordCSub, Declaration: "unique", Symbol: "unique", Text: "y;", Offset: 20, Line: 2},
	}}
	flat := types.Document{Path: "B.pm", Blocks: []types.Block{
		{Kind: types.KeywordCSub, Declaration: "A__B_c", Symbol: "A__B_c", Text: "z;", Offset: 0, Line: 5},
	}}
	writeResult(t, resultsDir, scoped)
	writeResult(t, resultsDir, flat)
	ingest(t, store)

	conflicts, err := store.SymbolConflicts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1: %+v", len(conflicts), conflicts)
	}
	c := conflicts[0]
	if c.Symbol != "A__B_c" || len(c.Uses) != 2 {
		t.Fatalf("conflict = %+v", c)
	}
	if c.Uses[0].Declaration != "A::B_c" || c.Uses[1].Path != "B.pm" {
		t.Errorf("uses = %+v", c.Uses)
	}
}

// --- export ---

func TestExport(t *testing.T) {
	store, resultsDir := testSetup(t)
	writeResult(t, resultsDir, sampleDocument("A.pm"))
	ingest(t, store)

	yamlPath, err := store.ExportYAML(context.Background(), QueryOptions{Kind: types.KeywordCSub})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML []QueryResult
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatal(err)
	}
	if len(fromYAML) != 1 || fromYAML[0].Symbol != "Math__Fast__sum" || fromYAML[0].Kind != types.KeywordCSub {
		t.Errorf("YAML export = %+v", fromYAML)
	}

	jsonPath, err := store.ExportJSON(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromJSON []map[string]any
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatal(err)
	}
	if len(fromJSON) != 3 {
		t.Fatalf("JSON export has %d entries, want 3", len(fromJSON))
	}
	if fromJSON[0]["kind"] != "cshare" || fromJSON[0]["path"] != "A.pm" {
		t.Errorf("first JSON entry = %v", fromJSON[0])
	}
}
