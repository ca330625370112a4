package config

import "github.com/semtweets/cli/cmd/semtweets/cli/vspace"

// Defaults follow the original batch job: 500 latent dimensions, 50 topics,
// 10 refinement passes.
const (
	DefaultDataDir       = ".semtweets"
	DefaultLatentDims    = 500
	DefaultClusters      = 50
	DefaultMaxIterations = 10
	DefaultKeywords      = 5
	DefaultReportPath    = "clusters.txt"
	DefaultReportFormat  = "text"
	DefaultCollectorAddr = "127.0.0.1:8470"
	DefaultMaxBodyBytes  = 8 << 20
)

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.Pipeline.LatentDims == 0 {
		cfg.Pipeline.LatentDims = DefaultLatentDims
	}
	if cfg.Pipeline.Clusters == 0 {
		cfg.Pipeline.Clusters = DefaultClusters
	}
	if cfg.Pipeline.MaxIterations == 0 {
		cfg.Pipeline.MaxIterations = DefaultMaxIterations
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 1
	}
	if cfg.Pipeline.Keywords == 0 {
		cfg.Pipeline.Keywords = DefaultKeywords
	}
	if cfg.Pipeline.MinLength == 0 {
		cfg.Pipeline.MinLength = vspace.DefaultMinLength
	}
	if cfg.Report.Path == "" {
		cfg.Report.Path = DefaultReportPath
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = DefaultReportFormat
	}
	if cfg.Collector.Addr == "" {
		cfg.Collector.Addr = DefaultCollectorAddr
	}
	if cfg.Collector.MaxBodyBytes == 0 {
		cfg.Collector.MaxBodyBytes = DefaultMaxBodyBytes
	}
}
