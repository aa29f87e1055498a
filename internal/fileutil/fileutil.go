package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// fingerprintWindow bounds how much of a video is hashed. Container headers
// and the first GOPs differ between encodes, so the head plus the size is
// enough to tell files apart without reading gigabytes.
const fingerprintWindow = 4 << 20

// Fingerprint returns a stable identity for a media file: the SHA256 of its
// first few megabytes combined with its size.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("fingerprint %s: is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, io.LimitReader(f, fingerprintWindow)); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	fmt.Fprintf(hasher, "|size=%d", info.Size())
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// PrepareOutput creates the parent directory of path and refuses to
// overwrite the input file.
func PrepareOutput(input, output string) error {
	inAbs, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	outAbs, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	if inAbs == outAbs {
		return fmt.Errorf("output %s would overwrite input", output)
	}
	return os.MkdirAll(filepath.Dir(outAbs), 0o755)
}
