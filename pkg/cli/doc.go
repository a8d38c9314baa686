// Package cli provides common utilities for the iso command-line tool.
//
// This package includes:
//   - Configuration management (named contexts with provider credentials)
//   - Output formatting (JSON, YAML, raw)
//   - Terminal UI rendering for the live session view
//
// Configuration is stored in ~/.iso/config.yaml, supporting multiple
// contexts similar to kubectl.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig()
//
//	// Get current context
//	ctx, err := cfg.GetCurrentContext()
//
//	// Output result
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
