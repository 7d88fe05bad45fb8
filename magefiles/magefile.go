//go:build mage

// Package main contains Mage build targets for cblocks developer tooling.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/magefile/mage/sh"

	"github.com/pdiddy/cblocks/internal/batch"
	"github.com/pdiddy/cblocks/pkg/types"
)

// projectDirs lists the working directories the pipeline expects.
var projectDirs = []string{
	"src",
	"blocks",
	"catalog",
}

// Init creates the project directory structure for the pipeline.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "cblocks"
	cmdPkg  = "./cmd/cblocks"

	// buildTags enables the SQLite FTS5 extension used by the catalog.
	buildTags = "sqlite_fts5"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-tags", buildTags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the catalog build tags.
func Test() error {
	return sh.RunV("go", "test", "-tags", buildTags, "./...")
}

// Clean removes the built binary.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints pipeline metrics: host documents under src/ and the blocks
// recorded in result files under blocks/, by keyword.
func Stats() error {
	hostDocs, err := countHostDocuments("src")
	if err != nil {
		return err
	}
	results, counts, failures, err := countResultBlocks("blocks")
	if err != nil {
		return err
	}

	fmt.Printf("Host documents (src):    %d\n", hostDocs)
	fmt.Printf("Result files (blocks):   %d\n", results)
	for _, k := range types.Keywords {
		fmt.Printf("  %-8s %d\n", k, counts[k])
	}
	fmt.Printf("Skipped occurrences:     %d\n", failures)
	return nil
}

// countHostDocuments counts files under root with a scanned host extension.
// A missing root counts as empty.
func countHostDocuments(root string) (int, error) {
	total := 0
	err := walkIfExists(root, func(path string) error {
		if slices.Contains(batch.DefaultExtensions, filepath.Ext(path)) {
			total++
		}
		return nil
	})
	return total, err
}

// countResultBlocks reads every result file under root and tallies blocks
// per keyword and recorded failures.
func countResultBlocks(root string) (int, map[types.KeywordKind]int, int, error) {
	var (
		results  int
		failures int
		counts   = make(map[types.KeywordKind]int)
	)
	err := walkIfExists(root, func(path string) error {
		if !strings.HasSuffix(path, batch.ResultSuffix) {
			return nil
		}
		doc, err := batch.ReadResult(path)
		if err != nil {
			return err
		}
		results++
		failures += len(doc.Failures)
		for k, n := range doc.CountByKind() {
			counts[k] += n
		}
		return nil
	})
	return results, counts, failures, err
}

func walkIfExists(root string, visit func(path string) error) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		return visit(path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
