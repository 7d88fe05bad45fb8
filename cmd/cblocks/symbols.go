// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cblocks/internal/batch"
	"github.com/pdiddy/cblocks/pkg/types"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [files...]",
	Short: "List the external symbols a host document defines",
	Long: `Symbols scans host documents and lists every csub with its declared
name and normalized linkage symbol, followed by the C functions that
cblock and cshare bodies define.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSymbols,
}

// symbolEntry is one line of symbols output.
type symbolEntry struct {
	Path        string            `json:"path"`
	Line        int               `json:"line"`
	Kind        types.KeywordKind `json:"kind"`
	Declaration string            `json:"declaration,omitempty"`
	Symbol      string            `json:"symbol"`
	Static      bool              `json:"static,omitempty"`
}

func runSymbols(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"on-error": "scan.on_error"}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scan := cfg.Scan
	scan.Inspect = true

	var entries []symbolEntry
	for _, path := range args {
		doc, err := batch.ExtractFile(context.Background(), path, scan)
		if err != nil {
			return err
		}
		entries = append(entries, documentSymbols(doc)...)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSymbols(os.Stdout, entries, jsonOutput)
}

// documentSymbols lists csub symbols and inspected C functions in block
// order. Function lines are converted to host lines.
func documentSymbols(doc *types.Document) []symbolEntry {
	var entries []symbolEntry
	for _, b := range doc.Blocks {
		if b.Kind == types.KeywordCSub {
			entries = append(entries, symbolEntry{
				Path: doc.Path, Line: b.Line, Kind: b.Kind,
				Declaration: b.Declaration, Symbol: string(b.Symbol),
			})
			continue
		}
		bodyLine := b.BodyLine
		if bodyLine == 0 {
			bodyLine = b.Line
		}
		for _, fn := range b.Functions {
			entries = append(entries, symbolEntry{
				Path: doc.Path, Line: bodyLine + fn.Line - 1, Kind: b.Kind,
				Declaration: fn.Signature, Symbol: fn.Name, Static: fn.Static,
			})
		}
	}
	return entries
}

func formatSymbols(w io.Writer, entries []symbolEntry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []symbolEntry{}
		}
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No symbols found.")
		return nil
	}

	fmt.Fprintf(w, "%-30s  %-6s  %-30s  %s\n", "Location", "Kind", "Symbol", "Declaration")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range entries {
		symbol := e.Symbol
		if e.Static {
			symbol += " (static)"
		}
		fmt.Fprintf(w, "%-30s  %-6s  %-30s  %s\n",
			fmt.Sprintf("%s:%d", e.Path, e.Line), e.Kind, symbol, e.Declaration)
	}
	fmt.Fprintf(w, "\n%d symbols\n", len(entries))
	return nil
}

func init() {
	symbolsCmd.Flags().String("on-error", string(types.OnErrorAbort), "on a failed block: abort the document or skip the occurrence")
	symbolsCmd.Flags().Bool("json", false, "output symbols as JSON")

	rootCmd.AddCommand(symbolsCmd)
}
