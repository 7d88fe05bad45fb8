// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ErrorPolicy selects what a document scan does when a keyword occurrence
// fails to extract.
type ErrorPolicy string

const (
	// OnErrorAbort stops the scan and returns the error.
	OnErrorAbort ErrorPolicy = "abort"

	// OnErrorSkip records the failure and resumes after the keyword.
	OnErrorSkip ErrorPolicy = "skip"
)

// ScanConfig holds settings for scanning one host document.
type ScanConfig struct {
	// OnError is abort or skip (default abort).
	OnError ErrorPolicy `json:"on_error" yaml:"on_error" mapstructure:"on_error"`

	// Inspect enables listing C functions defined in cblock and cshare bodies.
	Inspect bool `json:"inspect" yaml:"inspect" mapstructure:"inspect"`
}

// BatchConfig holds settings for extracting a directory tree of host documents.
type BatchConfig struct {
	ScanConfig `yaml:",inline" mapstructure:",squash"`

	// SourceDir is the root of the host document tree.
	SourceDir string `json:"source_dir" yaml:"source_dir" mapstructure:"source_dir"`

	// OutputDir receives one <rel>.blocks.yaml per document.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Extensions lists host file extensions to scan (default .pl .pm .t .xs).
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`

	// CacheSize bounds the content-hash memo of scanned documents (default 256).
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

// CatalogConfig holds settings for the block catalog.
type CatalogConfig struct {
	// CatalogDir contains the SQLite database and exports.
	CatalogDir string `json:"catalog_dir" yaml:"catalog_dir" mapstructure:"catalog_dir"`

	// ResultsDir is where batch result files are read from.
	ResultsDir string `json:"results_dir" yaml:"results_dir" mapstructure:"results_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// Config groups all settings read from cblocks.yaml.
type Config struct {
	Scan    ScanConfig    `json:"scan" yaml:"scan" mapstructure:"scan"`
	Batch   BatchConfig   `json:"batch" yaml:"batch" mapstructure:"batch"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
}
