package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/hitscan/internal/config"
)

func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()
	tests := []struct {
		flag      string
		shorthand string
		def       string
	}{
		{"output", "o", config.DefaultConfigFile},
		{"force", "f", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.flag)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.flag)
			}
			if flag.Shorthand != tt.shorthand || flag.DefValue != tt.def {
				t.Errorf("unexpected flag %s: -%s default %q", tt.flag, flag.Shorthand, flag.DefValue)
			}
		})
	}
}

func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates a loadable config file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "nested", ".hitscan")
		var out bytes.Buffer
		cmd := NewInitCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"-o", outputPath})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cf, err := config.LoadConfigFile(outputPath)
		if err != nil {
			t.Fatalf("generated file does not load: %v", err)
		}
		if cf.Defaults.PerCardLimit != config.DefaultPerCardLimit {
			t.Errorf("expected the default per-card limit, got %d", cf.Defaults.PerCardLimit)
		}
		if cf.Defaults.CanonicalTemplate != config.DefaultCanonicalTemplate {
			t.Errorf("unexpected canonical template %q", cf.Defaults.CanonicalTemplate)
		}
		info, err := os.Stat(outputPath)
		if err != nil {
			t.Fatalf("failed to stat file: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
		}
		if !strings.Contains(out.String(), outputPath) {
			t.Errorf("expected the path in output, got %q", out.String())
		}
	})

	t.Run("fails if file exists without force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".hitscan")
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		cmd := NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"-o", outputPath})

		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected 'already exists' error, got %v", err)
		}
	})

	t.Run("overwrites file with force flag", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".hitscan")
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		cmd := NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"-o", outputPath, "-f"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !bytes.Equal(content, configTemplate) {
			t.Error("expected the template to replace the file")
		}
	})
}
