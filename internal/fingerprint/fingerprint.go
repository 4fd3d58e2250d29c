// Package fingerprint computes content digests used for change detection.
//
// Content equality, not file mtime, is the dirtiness signal: sync and
// backup tools rewrite mtimes without touching content, and in-session
// edits can land within the same mtime granularity.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of content.
func Sum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
