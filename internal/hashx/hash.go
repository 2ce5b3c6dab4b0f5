// Package hashx is the digest engine: SHA-256 over the exact bytes handed to
// the blob store (post-encryption when encryption is applied). The hex digest
// doubles as integrity metadata and as the chunk-session key, so re-uploading
// identical content resumes the same session while it is still alive.
package hashx

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sum returns the lowercase hex SHA-256 digest of b.
func Sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// SumReader consumes r to EOF and returns the digest together with the
// number of bytes read.
func SumReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
