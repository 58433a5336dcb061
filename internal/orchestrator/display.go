package orchestrator

import (
	"os"
	"strings"
)

// DisplayModeEnv overrides the configured display mode when set to "standalone" or "browser".
const DisplayModeEnv = "LINKDROP_DISPLAY_MODE"

// DisplayMode is the execution context that decides how a download is delivered.
type DisplayMode string

const (
	// DisplayBrowser streams downloads through this process.
	DisplayBrowser DisplayMode = "browser"
	// DisplayStandalone hands downloads to the system browser via a direct link.
	DisplayStandalone DisplayMode = "standalone"
)

// ResolveDisplayMode picks the display mode. An explicit standalone flag wins,
// then the LINKDROP_DISPLAY_MODE environment variable, then the configured value.
// "auto" and unknown values resolve to browser.
func ResolveDisplayMode(configured string, standalone bool) DisplayMode {
	if standalone {
		return DisplayStandalone
	}
	if mode, ok := parseDisplayMode(os.Getenv(DisplayModeEnv)); ok {
		return mode
	}
	if mode, ok := parseDisplayMode(configured); ok {
		return mode
	}
	return DisplayBrowser
}

func parseDisplayMode(v string) (DisplayMode, bool) {
	switch DisplayMode(strings.ToLower(strings.TrimSpace(v))) {
	case DisplayStandalone:
		return DisplayStandalone, true
	case DisplayBrowser:
		return DisplayBrowser, true
	}
	return "", false
}
