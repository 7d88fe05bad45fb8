//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Index ingests batch results from blocks/ into the SQLite block catalog
// and reports csub symbol conflicts.
func Index() error {
	mg.Deps(Extract)
	bin := filepath.Join(binDir, binName)
	fmt.Println("[catalog] Index extracted blocks into the SQLite catalog.")
	if err := sh.RunV(bin, "catalog", "store", "--results-dir", "blocks", "--catalog-dir", "catalog"); err != nil {
		return err
	}
	return sh.RunV(bin, "catalog", "conflicts", "--results-dir", "blocks", "--catalog-dir", "catalog")
}
