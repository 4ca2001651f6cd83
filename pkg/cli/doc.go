// Package cli provides shared plumbing for the medjournee command-line
// tools.
//
// This package includes:
//   - Configuration management (contexts holding service credentials)
//   - Output formatting (JSON, YAML, raw)
//   - Request file loading (YAML/JSON)
//   - Terminal UI components for live session views
//
// Configuration is stored in ~/.medjournee/<app>/ and supports multiple
// named contexts, similar to kubectl.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("medjournee")
//
//	ctx, err := cfg.GetCurrentContext()
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
