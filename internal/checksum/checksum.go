// Package checksum fingerprints note content for change detection.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex SHA-256 of data with CRLF line endings folded to LF,
// so an editor rewriting line endings does not count as a content change.
func Sum(data []byte) string {
	h := sha256.Sum256(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))
	return hex.EncodeToString(h[:])
}

// Changed reports whether data differs from a previously recorded sum.
// An empty previous sum always counts as changed.
func Changed(previous string, data []byte) bool {
	return previous == "" || previous != Sum(data)
}
