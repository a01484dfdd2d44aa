package cascade

import (
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/hitscan/internal/model"
)

// Default cascade settings.
const (
	DefaultPerCardLimit      = 240
	DefaultCanonicalTemplate = "./nc-v06-001.php?cd_dai={id}"
	DefaultNavigationTimeout = 8 * time.Second
	DefaultDetailRetries     = 2
	DefaultProbeCols         = 8
	DefaultProbeRows         = 4
	DefaultProbePause        = 140 * time.Millisecond
	DefaultProbeMaxClicks    = 600

	// DefaultMachineDataMarker is the href fragment of the machine data
	// page linked from a card.
	DefaultMachineDataMarker = "nc-v05-003.php"
)

// machineDataLabel is the caption of the machine data link.
const machineDataLabel = "機種データページへ"

// DefaultDeepLinkMarkers returns the fragments that identify links going
// straight to a detail view.
func DefaultDeepLinkMarkers() []string {
	return []string{"nc-v06-", "cd_dai="}
}

// Config holds the cascade settings.
type Config struct {
	// PerCardLimit caps the visits of each tier.
	PerCardLimit int

	// CanonicalTemplate builds a detail URL from an identifier. "{id}" is
	// replaced and the result is resolved against the current URL.
	CanonicalTemplate string

	// DeepLinkMarkers rank links containing them first.
	DeepLinkMarkers []string

	// MachineDataMarker identifies the link the direct link tier follows
	// when a card shows no detail links. Empty disables the fallback.
	MachineDataMarker string

	// NavigationTimeout bounds each navigation attempt.
	NavigationTimeout time.Duration

	// DetailRetries is how many times a failed navigation is retried.
	DetailRetries int

	// RetryDelay is the pause between navigation attempts.
	RetryDelay time.Duration

	// Probe configures the probe tier.
	Probe ProbeGrid
}

// DefaultConfig returns the settings used against the reference site.
func DefaultConfig() Config {
	return Config{
		PerCardLimit:      DefaultPerCardLimit,
		CanonicalTemplate: DefaultCanonicalTemplate,
		DeepLinkMarkers:   DefaultDeepLinkMarkers(),
		MachineDataMarker: DefaultMachineDataMarker,
		NavigationTimeout: DefaultNavigationTimeout,
		DetailRetries:     DefaultDetailRetries,
		Probe: ProbeGrid{
			Cols:      DefaultProbeCols,
			Rows:      DefaultProbeRows,
			Pause:     DefaultProbePause,
			MaxClicks: DefaultProbeMaxClicks,
		},
	}
}

// CanonicalURL builds the detail URL of id relative to base.
func CanonicalURL(template, base string, id model.Identifier) string {
	if template == "" {
		template = DefaultCanonicalTemplate
	}
	ref := strings.ReplaceAll(template, "{id}", id.String())
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
