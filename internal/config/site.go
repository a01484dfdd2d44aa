package config

import (
	"maps"
	"net/url"
	"strings"
)

// SiteConfig holds configuration for a single hall site.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// PerCardLimit overrides the global per-card limit. 0 keeps it.
	PerCardLimit int `yaml:"perCardLimit,omitempty"`

	// MaxCards overrides the global card cap. 0 keeps it.
	MaxCards int `yaml:"maxCards,omitempty"`

	// CanonicalTemplate overrides the detail URL template.
	CanonicalTemplate string `yaml:"canonicalTemplate,omitempty"`

	// DeepLinkMarkers override the markers that rank detail links first.
	DeepLinkMarkers []string `yaml:"deepLinkMarkers,omitempty"`

	// MachineDataMarker identifies the link to a card's machine data page,
	// opened when the card shows no detail links.
	MachineDataMarker string `yaml:"machineDataMarker,omitempty"`

	// ResponseKeywords are extra URL fragments that admit responses to
	// the capture ring.
	ResponseKeywords []string `yaml:"responseKeywords,omitempty"`

	// CardSelectors override the selectors that locate cards on a listing.
	CardSelectors []string `yaml:"cardSelectors,omitempty"`

	// IgnorePatterns are card link path patterns to skip (glob syntax).
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are card link path patterns to keep. If specified,
	// only matching cards are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .hitscan configuration file.
type File struct {
	// Sites maps host names (e.g., "hall.example.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// site-specific settings over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if site.PerCardLimit != 0 {
		result.PerCardLimit = site.PerCardLimit
	}
	if site.MaxCards != 0 {
		result.MaxCards = site.MaxCards
	}
	if site.CanonicalTemplate != "" {
		result.CanonicalTemplate = site.CanonicalTemplate
	}
	if len(site.DeepLinkMarkers) > 0 {
		result.DeepLinkMarkers = site.DeepLinkMarkers
	}
	if site.MachineDataMarker != "" {
		result.MachineDataMarker = site.MachineDataMarker
	}
	if len(site.ResponseKeywords) > 0 {
		result.ResponseKeywords = append(append([]string{}, result.ResponseKeywords...), site.ResponseKeywords...)
	}
	if len(site.CardSelectors) > 0 {
		result.CardSelectors = site.CardSelectors
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}

// SiteConfigFor returns the site configuration for the host of rawURL.
// A nil File yields the zero SiteConfig.
func (cf *File) SiteConfigFor(rawURL string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}
	return cf.GetSiteConfig(HostOf(rawURL))
}

// HostOf returns the lower-cased host name of rawURL, accepting URLs
// without a scheme.
func HostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
