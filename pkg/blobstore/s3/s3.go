// Package s3 implements the S3-compatible blob-store backend on top of the
// minio-go client, using the same partitioned key layout as the filesystem
// backend with "/" as the path separator.
package s3

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
	"github.com/enkryptcom/enkrypt-backend/pkg/blobstore"
	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// maxListPages and maxListKeys bound S3 listing per spec: page ListObjectsV2
// with MaxKeys=50, cap at 3 pages and 50 keys total, whichever comes first.
const (
	maxListPages = 3
	maxListKeys  = 50
	listPageSize = 50
)

// Config configures the S3-compatible endpoint, credentials and target
// bucket. It carries no HTTP-client tuning: the client uses minio-go's
// default transport.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	RootPath        string // prefix prepended to every object key
	UseSSL          bool
}

// Store is the S3-backed blobstore.Store implementation.
type Store struct {
	client *minio.Client
	bucket string
	root   string
}

// New creates an S3 blob store client. The concrete SDK client is treated as
// an external collaborator behind this thin interface per spec scope.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, s3Unavailable("construct s3 client", err)
	}
	return &Store{client: client, bucket: cfg.Bucket, root: cfg.RootPath}, nil
}

func (s *Store) key(hash backup.PublicKeyHash, userId backup.UserId) string {
	return joinRoot(s.root, blobstore.ObjectKey(hash, userId))
}

func (s *Store) prefix(hash backup.PublicKeyHash) string {
	return joinRoot(s.root, blobstore.PartitionPrefix(hash))
}

func joinRoot(root, key string) string {
	if root == "" {
		return key
	}
	return root + "/" + key
}

// SaveUserBackup uploads the gzip-compressed JSON object with its
// content-type/content-encoding headers and pubkeyHash/userId/updatedAt
// metadata.
func (s *Store) SaveUserBackup(ctx context.Context, hash backup.PublicKeyHash, userId backup.UserId, b backup.Backup) error {
	data, err := blobstore.Encode(b)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key(hash, userId), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:     blobstore.ContentType,
		ContentEncoding: blobstore.ContentEncoding,
		UserMetadata: map[string]string{
			"pubkeyHash": hash.Hex(),
			"userId":     userId.String(),
			"updatedAt":  b.UpdatedAt,
		},
	})
	if err != nil {
		return s3Unavailable("put object", err)
	}
	return nil
}

// GetUserBackups pages ListObjectsV2 under the partition prefix with
// MaxKeys=50, capped at 3 pages / 50 keys total, fetching and decoding each
// object. Exceeding the cap is a logged warning, not an error.
func (s *Store) GetUserBackups(ctx context.Context, hash backup.PublicKeyHash) ([]backup.Backup, error) {
	prefix := s.prefix(hash)

	var keys []string
	pages := 0
	objCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   listPageSize,
	})
	for obj := range objCh {
		if obj.Err != nil {
			return nil, s3Unavailable("list objects", obj.Err)
		}
		keys = append(keys, obj.Key)
		if len(keys)%listPageSize == 0 {
			pages++
		}
		if len(keys) >= maxListKeys {
			log.Logger.Warn().Str("prefix", prefix).Msg("s3 listing hit maxListKeys cap, truncating")
			break
		}
		if pages >= maxListPages {
			log.Logger.Warn().Str("prefix", prefix).Msg("s3 listing hit maxListPages cap, truncating")
			break
		}
	}

	backups := make([]backup.Backup, 0, len(keys))
	for _, key := range keys {
		obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, s3Unavailable("get object", err)
		}
		raw, err := io.ReadAll(obj)
		obj.Close()
		if err != nil {
			return nil, s3Unavailable("read object body", err)
		}
		b, err := blobstore.Decode(raw)
		if err != nil {
			return nil, err
		}
		if err := blobstore.VerifyPartition(b, hash); err != nil {
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

// GetUserBackup fetches a single object, returning blobstore.ErrNotFound if
// absent.
func (s *Store) GetUserBackup(ctx context.Context, hash backup.PublicKeyHash, userId backup.UserId) (backup.Backup, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(hash, userId), minio.GetObjectOptions{})
	if err != nil {
		return backup.Backup{}, s3Unavailable("get object", err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return backup.Backup{}, blobstore.ErrNotFound
		}
		return backup.Backup{}, s3Unavailable("read object body", err)
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

// DeleteUserBackup removes the object. S3 delete is idempotent and does not
// error on a missing key, so this method first checks existence via
// StatObject and logs a warning when asked to delete an absent backup.
func (s *Store) DeleteUserBackup(ctx context.Context, hash backup.PublicKeyHash, userId backup.UserId) error {
	key := s.key(hash, userId)
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			log.Logger.Warn().Str("userId", userId.String()).Msg("delete of absent backup")
			return nil
		}
		return s3Unavailable("stat object", err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return s3Unavailable("remove object", err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}

func s3Unavailable(msg string, cause error) error {
	return &blobstore.Error{Kind: blobstore.KindUnavailable, Msg: msg, Cause: cause}
}
