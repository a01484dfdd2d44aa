package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The crawl limits mirror what the reference hall site tolerates.
const (
	// DefaultTimeout is the timeout of a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultNavigationTimeout bounds each attempt to open a detail view.
	DefaultNavigationTimeout = 8 * time.Second

	// DefaultPerCardLimit caps the detail visits of each cascade tier.
	DefaultPerCardLimit = 240

	// DefaultRingCapacity is the number of captured responses kept.
	DefaultRingCapacity = 2200

	// DefaultMaxResponseBytes is the largest response body captured.
	DefaultMaxResponseBytes = 1_800_000

	// DefaultDetailRetries is how often a failed detail navigation is retried.
	DefaultDetailRetries = 2

	// DefaultRetryDelay is the pause between navigation retries.
	DefaultRetryDelay = 300 * time.Millisecond

	// Probe grid defaults.
	DefaultProbeCols      = 8
	DefaultProbeRows      = 4
	DefaultProbePause     = 140 * time.Millisecond
	DefaultProbeMaxClicks = 600

	// DefaultCanonicalTemplate is the detail URL of a machine number,
	// relative to the current view. "{id}" is replaced by the number.
	DefaultCanonicalTemplate = "./nc-v06-001.php?cd_dai={id}"

	// DefaultSessions crawls listings one after another.
	DefaultSessions = 1

	// DefaultMaxBodySize limits how much of any response is read.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultOutputDir is where CSV files are written.
	DefaultOutputDir = "."

	// AppName is the application name used for XDG directory paths.
	AppName = "hitscan"
)

// Config holds all configuration options for hitscan.
// It is populated from CLI flags and the configuration file and passed
// through the application rather than kept in global state.
type Config struct {
	// StartURLs are the listing pages to crawl.
	StartURLs []string

	// Timeout is the timeout of a single HTTP request.
	Timeout time.Duration

	// NavigationTimeout bounds one attempt to open a detail view.
	NavigationTimeout time.Duration

	// PerCardLimit caps the detail visits of each cascade tier per card.
	// 0 means no cap.
	PerCardLimit int

	// MaxCards caps how many cards of a listing are crawled. 0 means all.
	MaxCards int

	// RingCapacity is the number of captured responses kept between
	// extractions. The oldest are evicted first.
	RingCapacity int

	// MaxResponseBytes is the largest response body admitted to the ring.
	MaxResponseBytes int

	// ResponseKeywords are URL fragments that admit a response to the
	// ring in addition to the built-in list.
	ResponseKeywords []string

	// DetailRetries is how often a failed detail navigation is retried.
	DetailRetries int

	// RetryDelay is the pause between navigation retries.
	RetryDelay time.Duration

	// ProbeCols, ProbeRows, ProbePause and ProbeMaxClicks configure the
	// pointer probe over script-drawn widgets.
	ProbeCols      int
	ProbeRows      int
	ProbePause     time.Duration
	ProbeMaxClicks int

	// CanonicalTemplate builds the detail URL of a machine number.
	// It must contain "{id}".
	CanonicalTemplate string

	// DeepLinkMarkers rank detail links containing them first.
	// Empty means the built-in markers.
	DeepLinkMarkers []string

	// Sessions is how many listings are crawled at once, each in its own
	// browsing session.
	Sessions int

	// Concurrency caps how many documents are parsed at once.
	// 0 means one per CPU.
	Concurrency int

	// Verbose enables debug logging. Otherwise only warnings and errors
	// are logged.
	Verbose bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .hitscan is looked up in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configuration from the config file.
	SiteConfigs *File

	// OutputDir is where the timestamped CSV files are written.
	OutputDir string

	// MirrorDir, when set, receives a copy of every captured response.
	MirrorDir string

	// JSONReport prints the JSON report instead of the summary table.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints a Markdown report instead of the summary table.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile, when set, receives the report instead of stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB stores every run in the history database.
	SaveToDB bool

	// MetricsFile, when set, receives crawl counters in the Prometheus
	// text format after the run.
	MetricsFile string

	// UserAgent is the User-Agent header sent with every request.
	// Empty means a desktop browser string.
	UserAgent string

	// MaxBodySize is the maximum response body size read, in bytes.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		NavigationTimeout: DefaultNavigationTimeout,
		PerCardLimit:      DefaultPerCardLimit,
		RingCapacity:      DefaultRingCapacity,
		MaxResponseBytes:  DefaultMaxResponseBytes,
		DetailRetries:     DefaultDetailRetries,
		RetryDelay:        DefaultRetryDelay,
		ProbeCols:         DefaultProbeCols,
		ProbeRows:         DefaultProbeRows,
		ProbePause:        DefaultProbePause,
		ProbeMaxClicks:    DefaultProbeMaxClicks,
		CanonicalTemplate: DefaultCanonicalTemplate,
		Sessions:          DefaultSessions,
		OutputDir:         DefaultOutputDir,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		MaxBodySize:       DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for hitscan.
// On Linux: ~/.local/share/hitscan
// On macOS: ~/Library/Application Support/hitscan
// On Windows: %LOCALAPPDATA%\hitscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for hitscan, the default
// parent of response mirrors.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.StartURLs) == 0 {
		return ErrNoStartURL
	}
	if c.Timeout <= 0 || c.NavigationTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.PerCardLimit < 0 {
		return ErrInvalidPerCardLimit
	}
	if c.MaxCards < 0 {
		return ErrInvalidMaxCards
	}
	if c.RingCapacity <= 0 {
		return ErrInvalidRingCapacity
	}
	if c.MaxResponseBytes <= 0 {
		return ErrInvalidMaxResponseBytes
	}
	if c.DetailRetries < 0 || c.RetryDelay < 0 {
		return ErrInvalidRetries
	}
	if c.ProbeCols < 0 || c.ProbeRows < 0 || c.ProbePause < 0 || c.ProbeMaxClicks < 0 {
		return ErrInvalidProbeGrid
	}
	if !strings.Contains(c.CanonicalTemplate, "{id}") {
		return ErrInvalidCanonicalTemplate
	}
	if c.Sessions <= 0 || c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
