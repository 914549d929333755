package types

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRequestID mints a request identity for a seed or child CrawlRequest.
// No library in the reference pack covers id generation as a standalone
// concern, so this stays on crypto/rand rather than reaching for a
// dependency with no other foothold in the module.
func NewRequestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "req-fallback"
	}
	return hex.EncodeToString(b[:])
}
