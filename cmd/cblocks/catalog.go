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

	"github.com/pdiddy/cblocks/internal/catalog"
	"github.com/pdiddy/cblocks/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the block catalog (store, retrieve, conflicts, export)",
	Long: `Catalog manages a local SQLite index built from batch extraction
results. Use subcommands to index results, search block bodies, find
csub symbols that collide at link time, or export.`,
}

// --- store subcommand ---

var catalogStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest batch results into the catalog",
	Long: `Store reads <path>.blocks.yaml files from the results directory and
ingests them into a SQLite database with FTS5 indexing over block text.
Unchanged result files are skipped on subsequent runs.`,
	RunE: runCatalogStore,
}

func runCatalogStore(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d document(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var catalogRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Search the catalog with full-text search and filters",
	Long: `Retrieve searches block bodies using FTS5 full-text search,
structured filters (kind, path, symbol), or a combination of both.

Use --id to print one block's full body.`,
	RunE: runCatalogRetrieve,
}

func runCatalogRetrieve(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if id != "" {
		block, err := store.Block(context.Background(), id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return formatRetrieveOutput(os.Stdout, []catalog.QueryResult{block}, true)
		}
		fmt.Printf("%s:%d %s %s\n", block.Path, block.Line, block.Kind, block.Declaration)
		fmt.Println(block.Text)
		return nil
	}

	opts, err := queryOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --kind, --path, or --symbol")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}
	return formatRetrieveOutput(os.Stdout, results, jsonOutput)
}

func formatRetrieveOutput(w io.Writer, results []catalog.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-12s  %-6s  %-30s  %-24s  %s\n", "ID", "Kind", "Location", "Symbol", "Text")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range results {
		location := fmt.Sprintf("%s:%d", r.Path, r.Line)
		if len(location) > 30 {
			location = "..." + location[len(location)-27:]
		}
		text := strings.Join(strings.Fields(r.Text), " ")
		if len(text) > 40 {
			text = text[:37] + "..."
		}
		fmt.Fprintf(w, "%-12s  %-6s  %-30s  %-24s  %s\n", r.ID, r.Kind, location, r.Symbol, text)
	}

	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

// --- conflicts subcommand ---

var catalogConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List csub symbols defined more than once",
	Long: `Conflicts reports normalized csub symbols that more than one csub
produces. Two csubs collide when they repeat a name or when distinct
scoped names flatten to the same symbol, as A::B_run and A__B_run do.`,
	RunE: runCatalogConflicts,
}

func runCatalogConflicts(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	conflicts, err := store.SymbolConflicts(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		if conflicts == nil {
			conflicts = []catalog.Conflict{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(conflicts)
	}

	if len(conflicts) == 0 {
		fmt.Println("No symbol conflicts.")
		return nil
	}
	for _, c := range conflicts {
		fmt.Printf("%s\n", c.Symbol)
		for _, u := range c.Uses {
			fmt.Printf("    %s:%d  csub %s\n", u.Path, u.Line, u.Declaration)
		}
	}
	return fmt.Errorf("%d conflicting symbol(s)", len(conflicts))
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	Long: `Export writes the full catalog (or a filtered subset) to
<catalog-dir>/export.yaml or export.json. Supports the same filter
flags as retrieve for partial exports.`,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := queryOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), opts)
	case "json":
		path, err = store.ExportJSON(context.Background(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	err := bindFlags(cmd, map[string]string{
		"catalog-dir": "catalog.catalog_dir",
		"results-dir": "catalog.results_dir",
		"max-results": "catalog.max_results",
	})
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return catalog.NewStore(cfg.Catalog)
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) (catalog.QueryOptions, error) {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	kindName, _ := cmd.Flags().GetString("kind")
	path, _ := cmd.Flags().GetString("path")
	symbol, _ := cmd.Flags().GetString("symbol")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := catalog.QueryOptions{
		Query:      queryText,
		Path:       path,
		Symbol:     types.SymbolName(symbol),
		MaxResults: limit,
	}
	if kindName != "" {
		kind, err := types.ParseKeywordKind(kindName)
		if err != nil {
			return opts, err
		}
		opts.Kind = kind
	}
	return opts, nil
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().String("catalog-dir", "catalog", "directory for the catalog database and exports")
	catalogCmd.PersistentFlags().String("results-dir", "blocks", "directory of batch result files")
	catalogCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Retrieve flags.
	catalogRetrieveCmd.Flags().String("query", "", "full-text search query")
	catalogRetrieveCmd.Flags().String("kind", "", "filter by keyword: cblock, cshare, clex, csub")
	catalogRetrieveCmd.Flags().String("path", "", "filter by host document path")
	catalogRetrieveCmd.Flags().String("symbol", "", "filter by normalized csub symbol")
	catalogRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	catalogRetrieveCmd.Flags().String("id", "", "print the block with this ID")
	catalogRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Conflicts flags.
	catalogConflictsCmd.Flags().Bool("json", false, "output conflicts as JSON")

	// Export flags.
	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	catalogExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	catalogExportCmd.Flags().String("kind", "", "filter by keyword for partial export")
	catalogExportCmd.Flags().String("path", "", "filter by host document path for partial export")
	catalogExportCmd.Flags().String("symbol", "", "filter by csub symbol for partial export")
	catalogExportCmd.Flags().Int("limit", 0, "maximum blocks to export (0 = all)")

	// Wire subcommands.
	catalogCmd.AddCommand(catalogStoreCmd)
	catalogCmd.AddCommand(catalogRetrieveCmd)
	catalogCmd.AddCommand(catalogConflictsCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
