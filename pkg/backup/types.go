// Package backup defines the wire and storage data model for encrypted user
// backups: public keys, public-key hashes, user ids, and the backup record
// itself, along with the validators that turn untrusted request input into
// these types.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// PublicKey is a secp256k1 uncompressed public key (64 raw bytes), carried
// on the wire as a lowercase 0x-prefixed 130-character hex string.
type PublicKey struct {
	raw [64]byte
	hex string
}

// Bytes returns the 64 raw public-key bytes.
func (k PublicKey) Bytes() []byte {
	out := make([]byte, 64)
	copy(out, k.raw[:])
	return out
}

// Hex returns the lowercase 0x-prefixed wire form.
func (k PublicKey) Hex() string { return k.hex }

// Hash returns sha256(raw pubkey) as a PublicKeyHash.
func (k PublicKey) Hash() PublicKeyHash {
	sum := sha256.Sum256(k.raw[:])
	return PublicKeyHash{sum: sum, hex: "0x" + hex.EncodeToString(sum[:])}
}

// PublicKeyHash is sha256(PublicKey raw bytes), rendered as a lowercase
// 0x-prefixed 66-character hex string. It is the blob-store partition key;
// the raw public key is never used as the on-disk key.
type PublicKeyHash struct {
	sum [32]byte
	hex string
}

// Hex returns the lowercase 0x-prefixed wire form.
func (h PublicKeyHash) Hex() string { return h.hex }

// Bytes returns the 32 raw hash bytes.
func (h PublicKeyHash) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, h.sum[:])
	return out
}

// HexDigits returns the hash's hex digits without the 0x prefix (64 chars).
func (h PublicKeyHash) HexDigits() string { return h.hex[2:] }

var hexByteRe = regexp.MustCompile(`^0x[0-9a-f]+$`)

// ParsePublicKey validates and parses a hex-encoded public key exactly as
// carried on the wire: 0x-prefixed, lowercase, 130 characters.
func ParsePublicKey(raw string) (PublicKey, error) {
	if len(raw) != 130 {
		return PublicKey{}, fmt.Errorf("public key must be 130 characters, got %d", len(raw))
	}
	if !hexByteRe.MatchString(raw) {
		return PublicKey{}, fmt.Errorf("public key must be lowercase 0x-prefixed hex")
	}
	b, err := hex.DecodeString(raw[2:])
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(b) != 64 {
		return PublicKey{}, fmt.Errorf("public key must decode to 64 bytes, got %d", len(b))
	}
	pk := PublicKey{hex: raw}
	copy(pk.raw[:], b)
	return pk, nil
}

// UserId is a lowercase RFC-4122 UUID string.
type UserId struct {
	s string
}

// String returns the lowercase UUID string.
func (u UserId) String() string { return u.s }

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ParseUserId validates a user id: lowercase, correctly dashed, hex-only.
func ParseUserId(raw string) (UserId, error) {
	if raw != strings.ToLower(raw) {
		return UserId{}, fmt.Errorf("user id must be lowercase")
	}
	if !uuidRe.MatchString(raw) {
		return UserId{}, fmt.Errorf("user id must be a RFC-4122 UUID")
	}
	return UserId{s: raw}, nil
}

// ParseHexBytes validates and decodes an arbitrary lowercase 0x-prefixed hex
// byte string (used for the opaque backup payload).
func ParseHexBytes(raw string) ([]byte, error) {
	if raw == "0x" {
		return []byte{}, nil
	}
	if !hexByteRe.MatchString(raw) {
		return nil, fmt.Errorf("expected lowercase 0x-prefixed hex string")
	}
	b, err := hex.DecodeString(raw[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return b, nil
}

// EncodeHexBytes renders bytes as a lowercase 0x-prefixed hex string.
func EncodeHexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// Envelope is the JSON shape of a stored Backup and of the GET-single
// response body.
type Envelope struct {
	UserId    string `json:"userId"`
	Pubkey    string `json:"pubkey"`
	UpdatedAt string `json:"updatedAt"`
	Payload   string `json:"payload"`
}

// Backup is the in-memory, validated record stored in the blob store.
type Backup struct {
	UserId    UserId
	Pubkey    PublicKey
	UpdatedAt string // ISO-8601 UTC, millisecond precision; lexicographic == chronological
	Payload   []byte
}

// Envelope renders the Backup to its wire/storage JSON shape.
func (b Backup) Envelope() Envelope {
	return Envelope{
		UserId:    b.UserId.String(),
		Pubkey:    b.Pubkey.Hex(),
		UpdatedAt: b.UpdatedAt,
		Payload:   EncodeHexBytes(b.Payload),
	}
}

// Summary is the {userId, updatedAt} projection returned by list.
type Summary struct {
	UserId    string `json:"userId"`
	UpdatedAt string `json:"updatedAt"`
}

// MaxRecentBackups bounds the number of entries a list operation returns.
const MaxRecentBackups = 50
