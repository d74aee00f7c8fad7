package blobstore

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
)

// ContentType and ContentEncoding are the headers/metadata every stored
// object carries.
const (
	ContentType     = "application/json"
	ContentEncoding = "gzip"
)

// Encode JSON-serializes then gzip-compresses a Backup for storage.
func Encode(b backup.Backup) ([]byte, error) {
	raw, err := json.Marshal(b.Envelope())
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip backup: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("gzip backup: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode: gunzip then JSON-decode into a validated Backup.
func Decode(raw []byte) (backup.Backup, error) {
	gr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return backup.Backup{}, errCorrupt("gunzip backup object", err)
	}
	defer gr.Close()

	data, err := io.ReadAll(gr)
	if err != nil {
		return backup.Backup{}, errCorrupt("read decompressed backup", err)
	}

	var env backup.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return backup.Backup{}, errCorrupt("unmarshal backup envelope", err)
	}

	userId, err := backup.ParseUserId(env.UserId)
	if err != nil {
		return backup.Backup{}, errCorrupt("stored userId invalid", err)
	}
	pubkey, err := backup.ParsePublicKey(env.Pubkey)
	if err != nil {
		return backup.Backup{}, errCorrupt("stored pubkey invalid", err)
	}
	payload, err := backup.ParseHexBytes(env.Payload)
	if err != nil {
		return backup.Backup{}, errCorrupt("stored payload invalid", err)
	}

	return backup.Backup{
		UserId:    userId,
		Pubkey:    pubkey,
		UpdatedAt: env.UpdatedAt,
		Payload:   payload,
	}, nil
}

// VerifyPartition checks invariant (iii): a Backup's own pubkey, hashed,
// must equal the partition it was read from. A mismatch is storage
// corruption.
func VerifyPartition(b backup.Backup, expected backup.PublicKeyHash) error {
	if b.Pubkey.Hash().Hex() != expected.Hex() {
		return errCorrupt("stored backup pubkey does not hash to its partition", nil)
	}
	return nil
}
