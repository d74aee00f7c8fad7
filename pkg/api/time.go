package api

import "time"

// nowISO renders the current instant in the millisecond-precision UTC
// ISO-8601 form used as Backup.UpdatedAt, chosen so lexicographic string
// ordering matches chronological ordering.
func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
