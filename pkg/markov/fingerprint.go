package markov

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Fingerprint returns the hex-encoded SHA-256 of the file at path. It is
// used as the corpus identity key: a snapshot persisted with one
// fingerprint will not restore against a different corpus.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not open corpus for fingerprinting: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("could not hash corpus: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
