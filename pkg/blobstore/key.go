package blobstore

import (
	"strings"

	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
)

// PartitionSegments splits a public-key hash into the five one-byte fanout
// segments and the remaining tail segment used to build the blob store's
// directory layout:
//
//	<root>/backups/<h[2:4]>/<h[4:6]>/<h[6:8]>/<h[8:10]>/<h[10:12]>/<h[12:66]>/<userId>.json.gz
//
// where h is the hash's full "0x"-prefixed 66-character hex string.
func PartitionSegments(hash backup.PublicKeyHash) []string {
	digits := hash.HexDigits() // 64 hex chars, indices shifted by -2 from h
	return []string{
		digits[0:2],
		digits[2:4],
		digits[4:6],
		digits[6:8],
		digits[8:10],
		digits[10:64],
	}
}

// ObjectKey builds the full "/"-joined key (relative to the root) for a
// backup: "backups/<seg0>/.../<seg5>/<userId>.json.gz". The same layout is
// used for both the filesystem path and the S3 object key.
func ObjectKey(hash backup.PublicKeyHash, userId backup.UserId) string {
	segs := PartitionSegments(hash)
	parts := append([]string{"backups"}, segs...)
	parts = append(parts, userId.String()+".json.gz")
	return strings.Join(parts, "/")
}

// PartitionPrefix builds the "/"-joined prefix under which every backup for
// a given public-key hash lives (used for listing).
func PartitionPrefix(hash backup.PublicKeyHash) string {
	segs := PartitionSegments(hash)
	parts := append([]string{"backups"}, segs...)
	return strings.Join(parts, "/") + "/"
}
