// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cblocks/internal/batch"
	"github.com/pdiddy/cblocks/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract embedded C blocks from host documents",
	Long: `Extract scans Perl host documents for cblock, cshare, clex, and csub
keywords and captures each block body verbatim, outer braces excluded.
Results are written to stdout as YAML (one document per file) or JSON.

With --batch, every host file under --source-dir is scanned and a
<path>.blocks.yaml result is written under --output-dir. Files whose
result is newer than the source are skipped.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	err := bindFlags(cmd, map[string]string{
		"on-error":   "scan.on_error",
		"inspect":    "scan.inspect",
		"source-dir": "batch.source_dir",
		"output-dir": "batch.output_dir",
	})
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	batchMode, _ := cmd.Flags().GetBool("batch")
	if batchMode {
		return runExtractBatch(ctx, cmd, cfg)
	}

	if len(args) == 0 {
		return fmt.Errorf("at least one file is required (or use --batch)")
	}

	docs := make([]*types.Document, 0, len(args))
	for _, path := range args {
		doc, err := batch.ExtractFile(ctx, path, cfg.Scan)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return writeDocuments(os.Stdout, docs, jsonOutput)
}

func runExtractBatch(ctx context.Context, cmd *cobra.Command, cfg types.Config) error {
	bc := cfg.Batch
	if cmd.Flags().Changed("on-error") || bc.OnError == "" {
		bc.OnError = cfg.Scan.OnError
	}
	bc.Inspect = bc.Inspect || cfg.Scan.Inspect

	summary, err := batch.ExtractAll(ctx, bc, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nextracted: %d, skipped: %d, failed: %d, blocks: %d\n",
		summary.Extracted, summary.Skipped, summary.Failed, summary.Blocks)
	if summary.HasFailures() {
		return fmt.Errorf("%d document(s) failed extraction", summary.Failed)
	}
	return nil
}

// writeDocuments encodes docs as a YAML stream or a JSON array.
func writeDocuments(w io.Writer, docs []*types.Document, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding %s: %w", doc.Path, err)
		}
	}
	return enc.Close()
}

func init() {
	extractCmd.Flags().String("on-error", string(types.OnErrorAbort), "on a failed block: abort the document or skip the occurrence")
	extractCmd.Flags().Bool("inspect", false, "list C functions defined in cblock and cshare bodies")
	extractCmd.Flags().Bool("json", false, "output results as JSON")
	extractCmd.Flags().Bool("batch", false, "scan every host file under --source-dir")
	extractCmd.Flags().String("source-dir", "src", "root of the host document tree (with --batch)")
	extractCmd.Flags().String("output-dir", "blocks", "directory for per-document result files (with --batch)")

	rootCmd.AddCommand(extractCmd)
}
