package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/hitscan/internal/config"
)

//go:embed templates/hitscan.yaml
var configTemplate []byte

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a hitscan configuration file",
		Long: `Init writes a commented .hitscan configuration file with the default
crawl settings and examples of per-site overrides (cookies, headers,
card filters).

Examples:
  # Create .hitscan in the current directory
  hitscan init

  # Create the file at a specific path
  hitscan init -o ~/.hitscan

  # Overwrite an existing file
  hitscan init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// The template must stay loadable.
	if _, err := config.ParseConfig(configTemplate); err != nil {
		return fmt.Errorf("invalid config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	// The file may hold session cookies.
	if err := os.WriteFile(outputPath, configTemplate, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure site-specific settings such as:")
	fmt.Fprintln(out, "  - Session cookies and headers")
	fmt.Fprintln(out, "  - Card limits and detail URL templates")
	fmt.Fprintln(out, "  - Card link patterns to ignore or follow")
	return nil
}
