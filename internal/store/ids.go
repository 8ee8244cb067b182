package store

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// IDGenerator produces run IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DomainPayload separates payload digests from any other SHA-256 use.
// The version suffix allows a future algorithm change.
const DomainPayload = "sfbtools/payload/v1"

// PayloadDigest returns the hex SHA-256 of a delivered payload.
func PayloadDigest(payload []byte) string {
	return hashWithDomain(DomainPayload, payload)
}

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
