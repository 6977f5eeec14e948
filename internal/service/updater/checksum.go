package updater

import (
	"crypto"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

// DefaultChecksumFunction is used to calculate release binary hashes.
const DefaultChecksumFunction crypto.Hash = crypto.SHA512

var (
	errHashUnavailable = errors.New("hash function unavailable")
	errBadChecksum     = errors.New("checksum is neither hex nor base64")
)

// GetFileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func GetFileChecksum(path string) ([]byte, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer file.Close()

	return checksumOf(file)
}

// EncodeChecksum renders a checksum the way release manifests carry it.
func EncodeChecksum(sum []byte) string {
	return base64.StdEncoding.EncodeToString(sum)
}

// decodeChecksum accepts hex or base64 encoded digests.
func decodeChecksum(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	size := DefaultChecksumFunction.Size()

	if sum, err := hex.DecodeString(text); err == nil && len(sum) == size {
		return sum, nil
	}

	if sum, err := base64.StdEncoding.DecodeString(text); err == nil && len(sum) == size {
		return sum, nil
	}

	return nil, errBadChecksum
}

func checksumOf(r io.Reader) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
