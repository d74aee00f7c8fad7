// Package envconfig decodes the environment-variable configuration grammar:
// plain strings/bools/ints, byte sizes with SI/IEC suffixes, durations with
// the usual time suffixes, and rates expressed as a float or a percentage.
// No reflection-based struct-tag library exists in the teacher's or pack's
// stack, so this is hand-written rather than imported.
package envconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup abstracts os.LookupEnv so config loading is testable without
// mutating the process environment.
type Lookup func(key string) (string, bool)

// FromEnviron is the default Lookup, backed by os.LookupEnv.
func FromEnviron(key string) (string, bool) {
	return os.LookupEnv(key)
}

// String returns the raw value of key, or def if unset.
func String(lookup Lookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

// Bool parses "true"/"1"/"yes"/"on" (case-insensitive) as true and
// "false"/"0"/"no"/"off" as false; returns def if unset or unrecognised.
func Bool(lookup Lookup, key string, def bool) bool {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

// Int parses a base-10 integer, returning def on absence or parse failure.
func Int(lookup Lookup, key string, def int) int {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

var byteSuffixes = map[string]int64{
	"b":   1,
	"kb":  1000,
	"mb":  1000 * 1000,
	"gb":  1000 * 1000 * 1000,
	"kib": 1024,
	"mib": 1024 * 1024,
	"gib": 1024 * 1024 * 1024,
}

// Bytes parses a byte-size value with an optional SI (kb/mb/gb) or IEC
// (kib/mib/gib) suffix; a bare number is treated as raw bytes.
func Bytes(lookup Lookup, key string, def int64) int64 {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := parseSuffixed(v, byteSuffixes)
	if err != nil {
		return def
	}
	return n
}

var durationSuffixes = map[string]int64{
	"ms": int64(time.Millisecond),
	"s":  int64(time.Second),
	"m":  int64(time.Minute),
	"h":  int64(time.Hour),
	"d":  int64(24 * time.Hour),
}

// Duration parses a duration with ms/s/m/h/d suffixes; a bare number is
// treated as milliseconds.
func Duration(lookup Lookup, key string, def time.Duration) time.Duration {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	if ms, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond))
	}
	n, err := parseSuffixed(v, durationSuffixes)
	if err != nil {
		return def
	}
	return time.Duration(n)
}

// Rate parses a probability/rate, accepting either a bare float in [0,1]
// or a percentage ("N%").
func Rate(lookup Lookup, key string, def float64) float64 {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "%") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return def
		}
		return n / 100
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return n
}

// StringSlice splits a comma-separated list, trimming whitespace and
// dropping empty elements.
func StringSlice(lookup Lookup, key string, def []string) []string {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// parseSuffixed matches the longest known suffix (case-insensitive) and
// scales the numeric prefix accordingly.
func parseSuffixed(raw string, suffixes map[string]int64) (int64, error) {
	v := strings.TrimSpace(raw)
	lower := strings.ToLower(v)

	var bestSuffix string
	for suf := range suffixes {
		if strings.HasSuffix(lower, suf) && len(suf) > len(bestSuffix) {
			bestSuffix = suf
		}
	}

	numPart := v
	scale := int64(1)
	if bestSuffix != "" {
		numPart = v[:len(v)-len(bestSuffix)]
		scale = suffixes[bestSuffix]
	}
	numPart = strings.TrimSpace(numPart)

	f, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q: %w", raw, err)
	}
	return int64(f * float64(scale)), nil
}
