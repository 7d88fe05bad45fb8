// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cblocks CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/cblocks/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the cblocks CLI.
var rootCmd = &cobra.Command{
	Use:   "cblocks",
	Short: "Extract embedded C blocks from Perl host documents",
	Long: `cblocks finds cblock, cshare, clex, and csub blocks embedded in Perl
source, captures their bodies verbatim, and rewrites csub names such as
A::B::run into linkage-safe symbols (A__B__run).

Use extract for one-off scans or whole trees, symbols to list the names a
document exports, and catalog to index batch results for search and
symbol-conflict checks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./cblocks.yaml or ~/.config/cblocks/cblocks.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log each extracted block and skipped occurrence to stderr")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cblocks")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cblocks"))
		}
	}

	viper.SetEnvPrefix("CBLOCKS")
	viper.AutomaticEnv()

	viper.SetDefault("scan.on_error", string(types.OnErrorAbort))
	viper.SetDefault("batch.source_dir", "src")
	viper.SetDefault("batch.output_dir", "blocks")
	viper.SetDefault("catalog.catalog_dir", "catalog")
	viper.SetDefault("catalog.results_dir", "blocks")
	viper.SetDefault("catalog.max_results", 20)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds the named flags of cmd to config keys. Binding happens
// when the command runs so commands sharing a flag name each bind their own.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flag(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig decodes the merged flag, environment, and file settings.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := validatePolicy(cfg.Scan.OnError); err != nil {
		return cfg, err
	}
	if err := validatePolicy(cfg.Batch.OnError); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validatePolicy(p types.ErrorPolicy) error {
	switch p {
	case "", types.OnErrorAbort, types.OnErrorSkip:
		return nil
	}
	return fmt.Errorf("unsupported error policy %q: use abort or skip", p)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
