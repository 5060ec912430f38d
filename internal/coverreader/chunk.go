package coverreader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultChunkSize is the number of artifact files processed per coverage
// tool invocation.
const DefaultChunkSize = 20

// EnumerateArtifacts walks prefixDir for .gcda coverage artifact files.
func EnumerateArtifacts(prefixDir string) ([]string, error) {
	var out []string
	err := filepath.Walk(prefixDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil // empty prefix yields an empty map
			}
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".gcda") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate artifacts under %s: %w", prefixDir, err)
	}
	return out, nil
}

// Chunks splits artifacts into groups of at most size files each.
func Chunks(artifacts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]string
	for start := 0; start < len(artifacts); start += size {
		end := start + size
		if end > len(artifacts) {
			end = len(artifacts)
		}
		chunks = append(chunks, artifacts[start:end])
	}
	return chunks
}
