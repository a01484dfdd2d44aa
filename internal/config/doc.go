// Package config provides configuration structures and utilities for
// hitscan: crawl limits, capture settings, report preferences and the
// per-site overrides read from the .hitscan file.
package config
