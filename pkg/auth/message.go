// Package auth implements the signature-authentication protocol: canonical
// per-operation message construction, Ethereum personal-sign recovery, and
// ownership verification bounded by a per-UTC-day replay window.
package auth

import (
	"fmt"
	"time"
)

// Operation identifies which canonical message shape to build.
type Operation string

const (
	OpCreateBackup Operation = "create"
	OpGetBackup    Operation = "get"
	OpListBackups  Operation = "list"
	OpDeleteBackup Operation = "delete"
)

// dateStamp renders a time as MM-DD-YYYY (1-based month, UTC).
func dateStamp(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%02d-%02d-%04d", int(t.Month()), t.Day(), t.Year())
}

// CreateMessage returns the canonical message for Create: the raw payload
// bytes themselves, proving knowledge of the payload.
func CreateMessage(payload []byte) []byte {
	return payload
}

// DatedMessage builds the canonical message for Get/List/Delete, which bind
// the signature to a UTC calendar day.
//
//   Get:    "<userId>-GET-BACKUP-<MM-DD-YYYY>"
//   List:   "<pubkeyHex>-GET-BACKUPS-<MM-DD-YYYY>"
//   Delete: "<userId>-DELETE-BACKUP-<MM-DD-YYYY>"
func DatedMessage(op Operation, subject string, day time.Time) ([]byte, error) {
	var verb string
	switch op {
	case OpGetBackup:
		verb = "GET-BACKUP"
	case OpListBackups:
		verb = "GET-BACKUPS"
	case OpDeleteBackup:
		verb = "DELETE-BACKUP"
	default:
		return nil, fmt.Errorf("auth: %q has no dated message form", op)
	}
	return []byte(fmt.Sprintf("%s-%s-%s", subject, verb, dateStamp(day))), nil
}

// CandidateWindow is a 10 minute boundary. CandidateMessages does not use
// it: the verifier always tries yesterday/today/tomorrow UTC dates whatever
// the time of day, which yields a worst-case ~48 hour replay window for a
// captured signature.
const CandidateWindow = 10 * time.Minute

// CandidateMessages returns the set of canonical messages that a dated
// operation's signature is allowed to have been produced against, evaluated
// relative to now.
func CandidateMessages(op Operation, subject string, now time.Time) ([][]byte, error) {
	now = now.UTC()
	days := []time.Time{
		now.AddDate(0, 0, -1),
		now,
		now.AddDate(0, 0, 1),
	}
	out := make([][]byte, 0, len(days))
	for _, d := range days {
		msg, err := DatedMessage(op, subject, d)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}
