package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewConnID returns a best-effort unique connection identifier.
// Session and member ids use uuid; connection ids are short-lived
// and only need to be unique within one server process.
func NewConnID() string {
	const size = 8

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	// Fallback to timestamp if crypto/rand is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
