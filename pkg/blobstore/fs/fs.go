// Package fs implements the filesystem blob-store backend: atomic
// write-via-rename, partitioned directory layout, and descending-time
// listing bounded by backup.MaxRecentBackups.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
	"github.com/enkryptcom/enkrypt-backend/pkg/blobstore"
	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// dirMode and fileMode match the atomic-write protocol in spec: tmp
// directory 0700, written files (and their final rename targets) 0600.
const (
	dirMode  os.FileMode = 0o700
	fileMode os.FileMode = 0o600
)

// Store is the filesystem-backed blobstore.Store implementation.
type Store struct {
	root   string
	tmpDir string
}

// New creates a filesystem blob store rooted at root, using tmpDir for the
// atomic-rename staging area. tmpDir should be configured by the caller to
// live on the same device as root so that rename is atomic.
func New(root, tmpDir string) *Store {
	if tmpDir == "" {
		tmpDir = filepath.Join(os.TempDir(), "enkrypt-backend")
	}
	return &Store{root: root, tmpDir: tmpDir}
}

func (s *Store) path(hash backup.PublicKeyHash, userId backup.UserId) string {
	return filepath.Join(s.root, filepath.FromSlash(blobstore.ObjectKey(hash, userId)))
}

func (s *Store) dir(hash backup.PublicKeyHash) string {
	return filepath.Join(s.root, filepath.FromSlash(blobstore.PartitionPrefix(hash)))
}

// SaveUserBackup writes the backup via the atomic write-then-rename
// protocol: a temp file under tmpDir, ensure the destination directory
// exists, then rename onto the final path.
func (s *Store) SaveUserBackup(ctx context.Context, hash backup.PublicKeyHash, userId backup.UserId, b backup.Backup) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := blobstore.Encode(b)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.tmpDir, dirMode); err != nil {
		return fsUnavailable("create tmp dir", err)
	}
	dest := s.path(hash, userId)
	tmpName := filepath.Join(s.tmpDir, fmt.Sprintf("%s-%s.tmp", filepath.Base(dest), uuid.NewString()))

	if err := writeFile(tmpName, data); err != nil {
		return fsUnavailable("write temp file", err)
	}
	defer os.Remove(tmpName) // no-op once renamed away

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), dirMode); err != nil {
		return fsUnavailable("create destination dir", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return fsUnavailable("atomic rename", err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// GetUserBackups enumerates the partition directory for hash, decoding and
// sorting descending by updatedAt, truncated to MaxRecentBackups. A missing
// directory yields an empty list, not an error.
func (s *Store) GetUserBackups(ctx context.Context, hash backup.PublicKeyHash) ([]backup.Backup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := s.dir(hash)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fsUnavailable("list partition dir", err)
	}

	backups := make([]backup.Backup, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fsUnavailable("read backup object", err)
		}
		b, err := blobstore.Decode(raw)
		if err != nil {
			return nil, err
		}
		if err := blobstore.VerifyPartition(b, hash); err != nil {
			log.Logger.Error().Str("file", entry.Name()).Msg("storage corruption: pubkey/partition mismatch")
			return nil, err
		}
		backups = append(backups, b)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].UpdatedAt > backups[j].UpdatedAt
	})
	if len(backups) > backup.MaxRecentBackups {
		backups = backups[:backup.MaxRecentBackups]
	}
	return backups, nil
}

// GetUserBackup reads a single backup, returning blobstore.ErrNotFound if
// absent.
func (s *Store) GetUserBackup(ctx context.Context, hash backup.PublicKeyHash, userId backup.UserId) (backup.Backup, error) {
	if err := ctx.Err(); err != nil {
		return backup.Backup{}, err
	}
	raw, err := os.ReadFile(s.path(hash, userId))
	if err != nil {
		if os.IsNotExist(err) {
			return backup.Backup{}, blobstore.ErrNotFound
		}
		return backup.Backup{}, fsUnavailable("read backup object", err)
	}
	b, err := blobstore.Decode(raw)
	if err != nil {
		return backup.Backup{}, err
	}
	if err := blobstore.VerifyPartition(b, hash); err != nil {
		return backup.Backup{}, err
	}
	return b, nil
}

// DeleteUserBackup removes the backup. A missing file is not an error; it is
// logged as a warning (delete is idempotent).
func (s *Store) DeleteUserBackup(ctx context.Context, hash backup.PublicKeyHash, userId backup.UserId) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(hash, userId))
	if err != nil {
		if os.IsNotExist(err) {
			log.Logger.Warn().Str("userId", userId.String()).Msg("delete of absent backup")
			return nil
		}
		return fsUnavailable("delete backup object", err)
	}
	return nil
}

func fsUnavailable(msg string, cause error) error {
	return &blobstore.Error{Kind: blobstore.KindUnavailable, Msg: msg, Cause: cause}
}
