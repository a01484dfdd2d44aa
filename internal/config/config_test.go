package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestNewConfig pins the defaults so that changing one is deliberate.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Timeout", cfg.Timeout, 30 * time.Second},
		{"NavigationTimeout", cfg.NavigationTimeout, 8 * time.Second},
		{"PerCardLimit", cfg.PerCardLimit, 240},
		{"RingCapacity", cfg.RingCapacity, 2200},
		{"MaxResponseBytes", cfg.MaxResponseBytes, 1_800_000},
		{"DetailRetries", cfg.DetailRetries, 2},
		{"ProbeCols", cfg.ProbeCols, 8},
		{"ProbeRows", cfg.ProbeRows, 4},
		{"ProbePause", cfg.ProbePause, 140 * time.Millisecond},
		{"ProbeMaxClicks", cfg.ProbeMaxClicks, 600},
		{"CanonicalTemplate", cfg.CanonicalTemplate, "./nc-v06-001.php?cd_dai={id}"},
		{"OutputDir", cfg.OutputDir, "."},
		{"SaveToDB", cfg.SaveToDB, true},
		{"MaxCards", cfg.MaxCards, 0},
		{"Sessions", cfg.Sessions, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("expected %s to be %v, got %v", tt.name, tt.want, tt.got)
			}
		})
	}

	if cfg.DBDir != XDGDataDir() {
		t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
	}
}

// TestConfigValidate checks one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.StartURLs = []string{"https://hall.example/nc-v05-001.php"}
		return cfg
	}

	tests := []struct {
		name     string
		modify   func(*Config)
		expected error
	}{
		{name: "valid config", modify: func(*Config) {}, expected: nil},
		{name: "no start URL", modify: func(c *Config) { c.StartURLs = nil }, expected: ErrNoStartURL},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, expected: ErrInvalidTimeout},
		{name: "zero navigation timeout", modify: func(c *Config) { c.NavigationTimeout = 0 }, expected: ErrInvalidTimeout},
		{name: "negative per-card limit", modify: func(c *Config) { c.PerCardLimit = -1 }, expected: ErrInvalidPerCardLimit},
		{name: "zero per-card limit is unlimited", modify: func(c *Config) { c.PerCardLimit = 0 }, expected: nil},
		{name: "negative max cards", modify: func(c *Config) { c.MaxCards = -1 }, expected: ErrInvalidMaxCards},
		{name: "zero ring capacity", modify: func(c *Config) { c.RingCapacity = 0 }, expected: ErrInvalidRingCapacity},
		{name: "zero response ceiling", modify: func(c *Config) { c.MaxResponseBytes = 0 }, expected: ErrInvalidMaxResponseBytes},
		{name: "negative retries", modify: func(c *Config) { c.DetailRetries = -1 }, expected: ErrInvalidRetries},
		{name: "negative retry delay", modify: func(c *Config) { c.RetryDelay = -time.Second }, expected: ErrInvalidRetries},
		{name: "negative probe pause", modify: func(c *Config) { c.ProbePause = -time.Millisecond }, expected: ErrInvalidProbeGrid},
		{name: "template without placeholder", modify: func(c *Config) { c.CanonicalTemplate = "./detail.php" }, expected: ErrInvalidCanonicalTemplate},
		{name: "zero sessions", modify: func(c *Config) { c.Sessions = 0 }, expected: ErrInvalidConcurrency},
		{name: "negative parse concurrency", modify: func(c *Config) { c.Concurrency = -1 }, expected: ErrInvalidConcurrency},
		{name: "both report formats", modify: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, expected: ErrConflictingReportFormats},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, expected: ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.expected == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	file := &File{
		Defaults: SiteConfig{
			Cookie:           "default=1",
			Headers:          map[string]string{"X-Default": "1"},
			PerCardLimit:     100,
			ResponseKeywords: []string{"slump"},
		},
		Sites: map[string]SiteConfig{
			"hall.example": {
				Cookie:            "session=abc",
				Headers:           map[string]string{"X-Site": "2"},
				CanonicalTemplate: "./detail.php?no={id}",
				ResponseKeywords:  []string{"dedama"},
				IgnorePatterns:    []string{"/member/*"},
				MaxCards:          5,
			},
		},
	}

	t.Run("site overrides defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("hall.example")
		expected := SiteConfig{
			Cookie:            "session=abc",
			Headers:           map[string]string{"X-Default": "1", "X-Site": "2"},
			PerCardLimit:      100,
			MaxCards:          5,
			CanonicalTemplate: "./detail.php?no={id}",
			ResponseKeywords:  []string{"slump", "dedama"},
			IgnorePatterns:    []string{"/member/*"},
		}
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Errorf("site config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("other.example")
		if got.Cookie != "default=1" || got.PerCardLimit != 100 {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("merging does not mutate defaults", func(t *testing.T) {
		t.Parallel()

		_ = file.GetSiteConfig("hall.example")
		if _, ok := file.Defaults.Headers["X-Site"]; ok {
			t.Error("default headers were mutated")
		}
		if len(file.Defaults.ResponseKeywords) != 1 {
			t.Errorf("default keywords were mutated: %v", file.Defaults.ResponseKeywords)
		}
	})

	t.Run("lookup by URL", func(t *testing.T) {
		t.Parallel()

		got := file.SiteConfigFor("https://Hall.Example:8443/nc-v05-001.php")
		if got.Cookie != "session=abc" {
			t.Errorf("expected the site cookie, got %q", got.Cookie)
		}
		var empty *File
		if diff := cmp.Diff(SiteConfig{}, empty.SiteConfigFor("https://hall.example/")); diff != "" {
			t.Errorf("nil file should give the zero config:\n%s", diff)
		}
	})
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://hall.example/a", "hall.example"},
		{"hall.example/a", "hall.example"},
		{"HTTP://HALL.EXAMPLE:8080", "hall.example"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := HostOf(tt.in); got != tt.want {
			t.Errorf("HostOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.hitscan")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".hitscan")
		content := `defaults:
  perCardLimit: 120
  cookie: "default=abc"
sites:
  hall.example:
    cookie: "session=xyz"
    headers:
      Referer: "https://hall.example/"
    canonicalTemplate: "./nc-v06-001.php?cd_dai={id}"
    deepLinkMarkers:
      - "nc-v06-"
    cardSelectors:
      - ".machine-card a"
    followPatterns:
      - "/nc-v05-*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Defaults.PerCardLimit != 120 {
			t.Errorf("expected default per-card limit 120, got %d", cfg.Defaults.PerCardLimit)
		}
		site, ok := cfg.Sites["hall.example"]
		if !ok {
			t.Fatal("expected hall.example in sites")
		}
		expected := SiteConfig{
			Cookie:            "session=xyz",
			Headers:           map[string]string{"Referer": "https://hall.example/"},
			CanonicalTemplate: "./nc-v06-001.php?cd_dai={id}",
			DeepLinkMarkers:   []string{"nc-v06-"},
			CardSelectors:     []string{".machine-card a"},
			FollowPatterns:    []string{"/nc-v05-*"},
		}
		if diff := cmp.Diff(expected, site); diff != "" {
			t.Errorf("site mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".hitscan")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		_, err := LoadConfigFile(configPath)
		if err == nil || !strings.Contains(err.Error(), configPath) {
			t.Errorf("expected a parse error naming the file, got %v", err)
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".hitscan")
		if err := os.WriteFile(configPath, []byte("defaults:\n  maxCards: 3\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "empty document", content: ""},
		{name: "defaults only", content: "defaults:\n  perCardLimit: 10\n"},
		{name: "misspelled key", content: "defaults:\n  perCardLimt: 10\n"},
		{
			name:    "negative site limit",
			content: "sites:\n  hall.example:\n    perCardLimit: -1\n",
			wantErr: ErrInvalidPerCardLimit,
		},
		{
			name:    "negative default card cap",
			content: "defaults:\n  maxCards: -2\n",
			wantErr: ErrInvalidMaxCards,
		},
		{
			name:    "template without id",
			content: "sites:\n  hall.example:\n    canonicalTemplate: \"./nc-v06-001.php\"\n",
			wantErr: ErrInvalidCanonicalTemplate,
		},
		{
			name:    "broken glob",
			content: "defaults:\n  ignorePatterns:\n    - \"/member/[\"\n",
			wantErr: ErrInvalidPattern,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cf, err := ParseConfig([]byte(tt.content))
			switch {
			case tt.name == "misspelled key":
				if err == nil || !strings.Contains(err.Error(), "perCardLimt") {
					t.Errorf("expected the unknown key to be reported, got %v", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if cf.Sites == nil {
					t.Error("expected Sites map to be initialized")
				}
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("expected data dir to end with %q, got %q", AppName, XDGDataDir())
	}
	if !strings.HasSuffix(XDGCacheDir(), AppName) {
		t.Errorf("expected cache dir to end with %q, got %q", AppName, XDGCacheDir())
	}
}
