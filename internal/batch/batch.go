// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch extracts embedded C blocks from a tree of host documents
// and writes one YAML result file per document.
package batch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cblocks/internal/extract"
	"github.com/pdiddy/cblocks/internal/inspect"
	"github.com/pdiddy/cblocks/pkg/types"
)

// ResultSuffix is appended to a document's relative path to name its
// result file.
const ResultSuffix = ".blocks.yaml"

const defaultCacheSize = 256

// DefaultExtensions are the host file extensions scanned when the config
// names none.
var DefaultExtensions = []string{".pl", ".pm", ".t", ".xs"}

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int

	// Blocks is the number of blocks written across extracted documents.
	Blocks int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any document failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// memo maps document content hashes to scan results so identical files
// are scanned once per run.
type memo = lru.Cache[[sha256.Size]byte, types.Document]

// ExtractAll scans every host document under cfg.SourceDir and writes
// results to cfg.OutputDir. Documents whose result file is newer than the
// source are skipped.
func ExtractAll(ctx context.Context, cfg types.BatchConfig, w io.Writer) (BatchSummary, error) {
	if cfg.SourceDir == "" {
		return BatchSummary{}, fmt.Errorf("source directory is required")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[[sha256.Size]byte, types.Document](size)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("creating document cache: %w", err)
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var summary BatchSummary

	err = filepath.WalkDir(cfg.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !slices.Contains(exts, filepath.Ext(path)) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(cfg.SourceDir, path)
		if err != nil {
			return err
		}
		outPath := ResultPath(cfg.OutputDir, rel)

		changed, err := hasChanged(path, outPath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
			summary.Failed++
			return nil
		}
		if !changed {
			fmt.Fprintf(w, "skipped %s\n", rel)
			summary.Skipped++
			return nil
		}

		doc, err := extractFile(ctx, path, filepath.ToSlash(rel), cfg.ScanConfig, cache)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
			summary.Failed++
			return nil
		}

		if err := writeResult(outPath, doc); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", rel, err)
			summary.Failed++
			return nil
		}

		if n := len(doc.Failures); n > 0 {
			fmt.Fprintf(w, "extracted %s (%d blocks, %d skipped)\n", rel, len(doc.Blocks), n)
		} else {
			fmt.Fprintf(w, "extracted %s (%d blocks)\n", rel, len(doc.Blocks))
		}
		summary.Extracted++
		summary.Blocks += len(doc.Blocks)
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("walking %s: %w", cfg.SourceDir, err)
	}

	return summary, nil
}

// ExtractFile scans a single host document. The document path in the
// result is path as given.
func ExtractFile(ctx context.Context, path string, cfg types.ScanConfig) (*types.Document, error) {
	return extractFile(ctx, path, path, cfg, nil)
}

func extractFile(ctx context.Context, path, name string, cfg types.ScanConfig, cache *memo) (*types.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	key := sha256.Sum256(src)
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			slog.Debug("reusing scan of identical document", "path", name, "first", cached.Path)
			return cloneDocument(cached, name), nil
		}
	}

	doc, err := extract.ScanDocument(extract.Host{Path: name, Logger: slog.Default()}, src, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Inspect {
		if err := inspect.Annotate(ctx, doc); err != nil {
			return nil, err
		}
	}

	if cache != nil {
		cache.Add(key, *cloneDocument(*doc, doc.Path))
	}
	return doc, nil
}

// cloneDocument copies doc under a new path so callers never share block
// storage.
func cloneDocument(doc types.Document, path string) *types.Document {
	out := types.Document{
		Path:     path,
		Blocks:   slices.Clone(doc.Blocks),
		Failures: slices.Clone(doc.Failures),
	}
	for i := range out.Blocks {
		out.Blocks[i].Functions = slices.Clone(out.Blocks[i].Functions)
	}
	return &out
}

// ResultPath returns where the result for the document at rel is written.
func ResultPath(outputDir, rel string) string {
	return filepath.Join(outputDir, rel+ResultSuffix)
}

// DocumentPath inverts ResultPath for a result file relative to outputDir.
func DocumentPath(relResult string) string {
	return filepath.ToSlash(strings.TrimSuffix(relResult, ResultSuffix))
}

// hasChanged reports whether the source is newer than its result file.
// Returns true if the result does not exist.
func hasChanged(srcPath, outPath string) (bool, error) {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return false, fmt.Errorf("stat source %s: %w", srcPath, err)
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat result %s: %w", outPath, err)
	}

	return srcInfo.ModTime().After(outInfo.ModTime()), nil
}

// writeResult marshals doc to a YAML file, creating parent directories.
func writeResult(path string, doc *types.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating result directory: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResult loads a result file written by ExtractAll.
func ReadResult(path string) (*types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result %s: %w", path, err)
	}
	var doc types.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing result %s: %w", path, err)
	}
	return &doc, nil
}
