//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Extract scans every host document under src/ and writes per-document
// block results to blocks/.
func Extract() error {
	mg.Deps(Build)
	fmt.Println("[extract] Extract embedded C blocks from host documents.")
	return sh.RunV(filepath.Join(binDir, binName), "extract", "--batch",
		"--source-dir", "src", "--output-dir", "blocks", "--on-error", "skip", "--inspect")
}
