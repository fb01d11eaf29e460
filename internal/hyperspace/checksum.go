package hyperspace

import (
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"
)

// fileDigest returns the hex BLAKE3-256 digest of the file at path.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	buf := make([]byte, 64*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// shouldUpdateFile reports whether dst is missing or differs in content from src.
// Timestamps are ignored: a tool the user replaced by hand with identical bytes
// is left alone, and so is its signature and quarantine state.
func shouldUpdateFile(src, dst string) (bool, error) {
	if !fileExists(dst) {
		return true, nil
	}
	srcSum, err := fileDigest(src)
	if err != nil {
		return false, err
	}
	dstSum, err := fileDigest(dst)
	if err != nil {
		return false, err
	}
	debugf("=> %s %s\n=> %s %s\n", srcSum, src, dstSum, dst)
	return srcSum != dstSum, nil
}
