package trust

import (
	"path/filepath"
	"testing"
)

func TestFolderOracle(t *testing.T) {
	trusted := t.TempDir()
	other := t.TempDir()
	o := NewFolderOracle([]string{trusted})

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"folder itself", trusted, true},
		{"nested path", filepath.Join(trusted, "a", "b"), true},
		{"sibling", other, false},
		{"prefix but not child", trusted + "-suffix", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.IsTrusted(tt.path); got.Trusted != tt.want {
				t.Errorf("IsTrusted(%q) = %v, want %v", tt.path, got.Trusted, tt.want)
			}
		})
	}
}

func TestFolderOracle_Empty(t *testing.T) {
	o := NewFolderOracle(nil)
	got := o.IsTrusted(t.TempDir())
	if got.Trusted {
		t.Error("empty oracle trusted a path")
	}
	if got.Source != "trusted-folders" {
		t.Errorf("Source = %q, want trusted-folders", got.Source)
	}
}
