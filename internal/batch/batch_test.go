// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cblocks/pkg/types"
)

const fastPM = `package Math::Fast;
use C::Blocks;

cshare {
	static int add(int a, int b) { return a + b; }
}

csub Math::Fast::sum {
	dXSARGS;
	XSRETURN_IV(add(SvIV(ST(0)), SvIV(ST(1))));
}

1;
`

const brokenPL = `use C::Blocks;
cblock { int x = 0;
`

func writeSource(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T) types.BatchConfig {
	t.Helper()
	root := t.TempDir()
	return types.BatchConfig{
		ScanConfig: types.ScanConfig{OnError: types.OnErrorAbort, Inspect: true},
		SourceDir:  filepath.Join(root, "src"),
		OutputDir:  filepath.Join(root, "out"),
	}
}

func TestExtractAll(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg.SourceDir, "lib/Math/Fast.pm", fastPM)
	writeSource(t, cfg.SourceDir, "t/broken.pl", brokenPL)
	writeSource(t, cfg.SourceDir, "README.md", "cblock { not scanned }")

	var out bytes.Buffer
	summary, err := ExtractAll(context.Background(), cfg, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Extracted)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Total())
	assert.Equal(t, 2, summary.Blocks)
	assert.True(t, summary.HasFailures())
	assert.Contains(t, out.String(), "extracted lib/Math/Fast.pm (2 blocks)")
	assert.Contains(t, out.String(), "unterminated block")

	doc, err := ReadResult(ResultPath(cfg.OutputDir, "lib/Math/Fast.pm"))
	require.NoError(t, err)
	assert.Equal(t, "lib/Math/Fast.pm", doc.Path)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, types.KeywordCShare, doc.Blocks[0].Kind)
	require.Len(t, doc.Blocks[0].Functions, 1)
	assert.Equal(t, "add", doc.Blocks[0].Functions[0].Name)
	assert.Equal(t, types.SymbolName("Math__Fast__sum"), doc.Blocks[1].Symbol)

	_, err = os.Stat(ResultPath(cfg.OutputDir, "t/broken.pl"))
	assert.True(t, os.IsNotExist(err), "no result for a failed document")
}

func TestExtractAllSkipsUnchanged(t *testing.T) {
	cfg := testConfig(t)
	src := writeSource(t, cfg.SourceDir, "A.pm", fastPM)

	_, err := ExtractAll(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)

	var out bytes.Buffer
	summary, err := ExtractAll(context.Background(), cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Contains(t, out.String(), "skipped A.pm")

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))
	summary, err = ExtractAll(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Extracted)
}

func TestExtractAllSkipPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.OnError = types.OnErrorSkip
	writeSource(t, cfg.SourceDir, "mixed.pl", "cblock oops;\n"+fastPM)

	var out bytes.Buffer
	summary, err := ExtractAll(context.Background(), cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Extracted)
	assert.Contains(t, out.String(), "extracted mixed.pl (2 blocks, 1 skipped)")

	doc, err := ReadResult(ResultPath(cfg.OutputDir, "mixed.pl"))
	require.NoError(t, err)
	require.Len(t, doc.Failures, 1)
	assert.Equal(t, types.KeywordCBlock, doc.Failures[0].Kind)
}

func TestExtractAllReusesIdenticalDocuments(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg.SourceDir, "a/One.pm", fastPM)
	writeSource(t, cfg.SourceDir, "b/Two.pm", fastPM)

	summary, err := ExtractAll(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Extracted)

	one, err := ReadResult(ResultPath(cfg.OutputDir, "a/One.pm"))
	require.NoError(t, err)
	two, err := ReadResult(ResultPath(cfg.OutputDir, "b/Two.pm"))
	require.NoError(t, err)

	assert.Equal(t, "a/One.pm", one.Path)
	assert.Equal(t, "b/Two.pm", two.Path)
	assert.Equal(t, one.Blocks, two.Blocks)
}

func TestExtractAllCancelled(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg.SourceDir, "A.pm", fastPM)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExtractAll(ctx, cfg, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "x.pl", "clex { [0-9]+ }\n")

	doc, err := ExtractFile(context.Background(), path, types.ScanConfig{})
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, " [0-9]+ ", doc.Blocks[0].Text)
}

func TestDocumentPath(t *testing.T) {
	rel := filepath.Join("lib", "Foo.pm") + ResultSuffix
	assert.Equal(t, "lib/Foo.pm", DocumentPath(rel))
	assert.True(t, strings.HasSuffix(ResultPath("out", "x.pl"), "x.pl"+ResultSuffix))
}
