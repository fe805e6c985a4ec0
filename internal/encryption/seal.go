package encryption

import (
	"fmt"
	"os"

	"wsrestore/internal/snapshot"
)

// SealFile encrypts the export at src into src+".age" and returns the new
// path. The plaintext file is left in place.
func SealFile(enc snapshot.Encryptor, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	dst := src + snapshot.SealedSuffix
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}

	if err := enc.Encrypt(in, out); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("sealing %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("closing %s: %w", dst, err)
	}
	return dst, nil
}
