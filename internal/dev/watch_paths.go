package dev

import (
	"path/filepath"
	"strings"

	"github.com/blade-go/blade/internal/config"
)

// CollectWatchPaths returns the directories to watch for a project: the
// scan root, plus the directories holding the configuration file and a
// local manifest.
func CollectWatchPaths(cfg *config.Config) []string {
	paths := []string{cfg.SourcePath(), cfg.Dir()}
	if m := cfg.ManifestPath(); m != "" && !strings.HasPrefix(m, "s3://") {
		paths = append(paths, filepath.Dir(m))
	}

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}

	return unique
}
