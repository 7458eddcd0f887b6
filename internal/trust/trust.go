// Package trust decides whether a path is trusted for extension
// installation. The oracle is consulted by the lifecycle manager and
// never mutated by it.
package trust

import (
	"path/filepath"
	"strings"

	"github.com/slashkit-labs/slashkit/internal/extension"
)

// FolderOracle trusts any path inside one of the configured folders.
type FolderOracle struct {
	folders []string
}

// NewFolderOracle builds an oracle over absolute trusted folder paths.
// Relative entries are resolved against the current directory.
func NewFolderOracle(folders []string) *FolderOracle {
	cleaned := make([]string, 0, len(folders))
	for _, f := range folders {
		if abs, err := filepath.Abs(f); err == nil {
			cleaned = append(cleaned, abs)
		}
	}
	return &FolderOracle{folders: cleaned}
}

func (o *FolderOracle) IsTrusted(path string) extension.TrustResult {
	abs, err := filepath.Abs(path)
	if err != nil {
		return extension.TrustResult{Trusted: false, Source: "trusted-folders"}
	}
	for _, folder := range o.folders {
		if abs == folder || strings.HasPrefix(abs, folder+string(filepath.Separator)) {
			return extension.TrustResult{Trusted: true, Source: "trusted-folders"}
		}
	}
	return extension.TrustResult{Trusted: false, Source: "trusted-folders"}
}
