package fs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
	"github.com/enkryptcom/enkrypt-backend/pkg/blobstore"
)

func testBackup(t *testing.T, userIdStr, pubkeyHex, updatedAt string) (backup.Backup, backup.PublicKeyHash) {
	t.Helper()
	userId, err := backup.ParseUserId(userIdStr)
	require.NoError(t, err)
	pk, err := backup.ParsePublicKey(pubkeyHex)
	require.NoError(t, err)

	b := backup.Backup{
		UserId:    userId,
		Pubkey:    pk,
		UpdatedAt: updatedAt,
		Payload:   []byte("encrypted-payload"),
	}
	return b, pk.Hash()
}

func TestSaveGetRoundTrip(t *testing.T) {
	store := New(t.TempDir(), t.TempDir())
	b, hash := testBackup(t, "550e8400-e29b-41d4-a716-446655440000", "0x"+strings.Repeat("ab", 64), "2026-07-31T00:00:00.000Z")

	ctx := context.Background()
	require.NoError(t, store.SaveUserBackup(ctx, hash, b.UserId, b))

	got, err := store.GetUserBackup(ctx, hash, b.UserId)
	require.NoError(t, err)
	assert.Equal(t, b.UserId.String(), got.UserId.String())
	assert.Equal(t, b.Pubkey.Hex(), got.Pubkey.Hex())
	assert.Equal(t, b.UpdatedAt, got.UpdatedAt)
	assert.Equal(t, b.Payload, got.Payload)
}

func TestGetUserBackupNotFound(t *testing.T) {
	store := New(t.TempDir(), t.TempDir())
	_, hash := testBackup(t, "550e8400-e29b-41d4-a716-446655440000", "0x"+strings.Repeat("ab", 64), "2026-07-31T00:00:00.000Z")
	userId, _ := backup.ParseUserId("550e8400-e29b-41d4-a716-446655440000")

	_, err := store.GetUserBackup(context.Background(), hash, userId)
	assert.True(t, blobstore.IsNotFound(err))
}

func TestGetUserBackupsEmptyPartition(t *testing.T) {
	store := New(t.TempDir(), t.TempDir())
	_, hash := testBackup(t, "550e8400-e29b-41d4-a716-446655440000", "0x"+strings.Repeat("ab", 64), "2026-07-31T00:00:00.000Z")

	backups, err := store.GetUserBackups(context.Background(), hash)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestGetUserBackupsSortedDescending(t *testing.T) {
	store := New(t.TempDir(), t.TempDir())
	pubkeyHex := "0x" + strings.Repeat("ab", 64)
	ctx := context.Background()

	older, hash := testBackup(t, "550e8400-e29b-41d4-a716-446655440000", pubkeyHex, "2026-07-30T00:00:00.000Z")
	newer, _ := testBackup(t, "660e8400-e29b-41d4-a716-446655440000", pubkeyHex, "2026-07-31T00:00:00.000Z")

	require.NoError(t, store.SaveUserBackup(ctx, hash, older.UserId, older))
	require.NoError(t, store.SaveUserBackup(ctx, hash, newer.UserId, newer))

	backups, err := store.GetUserBackups(ctx, hash)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, newer.UpdatedAt, backups[0].UpdatedAt)
	assert.Equal(t, older.UpdatedAt, backups[1].UpdatedAt)
}

func TestDeleteUserBackupIdempotent(t *testing.T) {
	store := New(t.TempDir(), t.TempDir())
	b, hash := testBackup(t, "550e8400-e29b-41d4-a716-446655440000", "0x"+strings.Repeat("ab", 64), "2026-07-31T00:00:00.000Z")
	ctx := context.Background()

	require.NoError(t, store.SaveUserBackup(ctx, hash, b.UserId, b))
	require.NoError(t, store.DeleteUserBackup(ctx, hash, b.UserId))

	_, err := store.GetUserBackup(ctx, hash, b.UserId)
	assert.True(t, blobstore.IsNotFound(err))

	// deleting an already-absent backup is not an error
	require.NoError(t, store.DeleteUserBackup(ctx, hash, b.UserId))
}
