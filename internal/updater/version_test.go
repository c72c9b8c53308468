package updater

import (
	"testing"
)

func TestIsUpdateAvailable(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		latest   string
		expected bool
		wantErr  bool
	}{
		{"older patch", "1.0.0", "1.0.1", true, false},
		{"older minor", "1.0.0", "1.1.0", true, false},
		{"older major", "1.0.0", "2.0.0", true, false},
		{"equal", "1.2.3", "1.2.3", false, false},
		{"newer", "1.1.0", "1.0.0", false, false},
		{"v prefix current", "v1.0.0", "1.0.1", true, false},
		{"v prefix both", "v1.0.0", "v1.0.1", true, false},
		{"prerelease less than release", "1.0.0-beta", "1.0.0", true, false},
		{"invalid current", "notaversion", "1.0.0", false, true},
		{"invalid latest", "1.0.0", "notaversion", false, true},
		{"dev version", "dev", "1.0.0", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := IsUpdateAvailable(tt.current, tt.latest)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("IsUpdateAvailable(%q, %q) = %v, want %v", tt.current, tt.latest, result, tt.expected)
			}
		})
	}
}
