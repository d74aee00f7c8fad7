// Package blobstore implements the content-addressed blob store abstraction:
// atomic put/get/list/delete of gzip-compressed JSON Backup records, keyed by
// (public-key hash, user id), with Filesystem and S3 variants.
package blobstore

import (
	"context"
	"errors"

	"github.com/enkryptcom/enkrypt-backend/pkg/backup"
)

// Store is the minimal capability set every blob-store backend implements.
type Store interface {
	SaveUserBackup(ctx context.Context, pubkeyHash backup.PublicKeyHash, userId backup.UserId, b backup.Backup) error
	GetUserBackups(ctx context.Context, pubkeyHash backup.PublicKeyHash) ([]backup.Backup, error)
	GetUserBackup(ctx context.Context, pubkeyHash backup.PublicKeyHash, userId backup.UserId) (backup.Backup, error)
	DeleteUserBackup(ctx context.Context, pubkeyHash backup.PublicKeyHash, userId backup.UserId) error
}

// Kind classifies a storage failure for error taxonomy mapping.
type Kind string

const (
	KindUnavailable Kind = "STORAGE_UNAVAILABLE" // transport errors
	KindCorrupt     Kind = "STORAGE_CORRUPT"     // decode failures
	KindNotFound    Kind = "NOT_FOUND"           // missing key
)

// Error is the blob store's error taxonomy: transport errors surface as
// Unavailable, decode failures as Corrupt, missing keys as NotFound. The
// store performs no internal retries.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

func errUnavailable(msg string, cause error) error {
	return &Error{Kind: KindUnavailable, Msg: msg, Cause: cause}
}

func errCorrupt(msg string, cause error) error {
	return &Error{Kind: KindCorrupt, Msg: msg, Cause: cause}
}

// ErrNotFound is returned by GetUserBackup when no backup exists for the
// given (pubkeyHash, userId).
var ErrNotFound = &Error{Kind: KindNotFound, Msg: "backup not found"}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindNotFound
	}
	return false
}
