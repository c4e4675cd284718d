package datakit

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// fingerprintFile computes a fast content hash of the file at path. The
// repository records it when a file-backed root is opened and compares it in
// IsStale, so observers can tell a changed file from a spurious watch event.
func fingerprintFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
