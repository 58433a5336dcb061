package orchestrator

import "testing"

func TestResolveDisplayMode(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		configured string
		flag       bool
		expected   DisplayMode
	}{
		{"auto defaults to browser", "", "auto", false, DisplayBrowser},
		{"configured standalone", "", "standalone", false, DisplayStandalone},
		{"env overrides config", "standalone", "browser", false, DisplayStandalone},
		{"env is case insensitive", "Standalone", "", false, DisplayStandalone},
		{"flag wins", "browser", "browser", true, DisplayStandalone},
		{"unknown value", "", "kiosk", false, DisplayBrowser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(DisplayModeEnv, tt.env)
			if got := ResolveDisplayMode(tt.configured, tt.flag); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDeliveryFor(t *testing.T) {
	if name := DeliveryFor(DisplayStandalone).Name(); name != DeliveryLink {
		t.Errorf("Expected link delivery in standalone mode, got %q", name)
	}
	if name := DeliveryFor(DisplayBrowser).Name(); name != DeliveryStream {
		t.Errorf("Expected stream delivery in browser mode, got %q", name)
	}
}
