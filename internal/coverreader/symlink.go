package coverreader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReconstructGcnoSymlinks creates, for each .gcda artifact in chunk, a
// sibling .gcno symlink pointing back to the matching compile-time companion
// in buildDir — required when each benchmark uses an isolated prefix, since
// the coverage tool looks for .gcno next to .gcda.
// Returns the list of symlink paths created, so the caller can remove them
// afterward regardless of parse outcome.
func ReconstructGcnoSymlinks(chunk []string, buildDir string) ([]string, error) {
	var created []string
	for _, gcdaPath := range chunk {
		base := strings.TrimSuffix(filepath.Base(gcdaPath), ".gcda")
		gcnoLink := filepath.Join(filepath.Dir(gcdaPath), base+".gcno")

		if _, err := os.Lstat(gcnoLink); err == nil {
			continue // companion already present, nothing to reconstruct
		}

		gcnoTarget := filepath.Join(buildDir, base+".gcno")
		if _, err := os.Stat(gcnoTarget); err != nil {
			if os.IsNotExist(err) {
				continue // no build-tree companion to link to; tool will skip this artifact
			}
			return created, fmt.Errorf("stat gcno companion for %s: %w", gcdaPath, err)
		}

		if err := os.Symlink(gcnoTarget, gcnoLink); err != nil {
			return created, fmt.Errorf("symlink %s -> %s: %w", gcnoLink, gcnoTarget, err)
		}
		created = append(created, gcnoLink)
	}
	return created, nil
}

// CleanupArtifacts removes every processed artifact file and any symlinks
// created for it, regardless of parse outcome.
func CleanupArtifacts(chunk []string, symlinks []string) {
	for _, p := range chunk {
		os.Remove(p)
	}
	for _, s := range symlinks {
		os.Remove(s)
	}
}
