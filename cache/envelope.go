// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the current local cache schema. Bumping it invalidates
// every previously written entry on first read.
const SchemaVersion = "3"

// Entry wraps a cached value with the metadata needed to validate it on
// read. Data stays as raw JSON so the envelope can be inspected without
// knowing the value's type.
type Entry struct {
	Data          json.RawMessage `json:"data"`
	WrittenAt     time.Time       `json:"written_at"`
	SchemaVersion string          `json:"schema_version"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// wrap serializes value into an Entry stamped with version and expiry.
func wrap(value any, version string, ttl time.Duration, now time.Time) (Entry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Data:          raw,
		WrittenAt:     now,
		SchemaVersion: version,
		ExpiresAt:     now.Add(ttl),
	}, nil
}

// Valid reports whether the entry may be served: the schema version must
// match and the entry must not have expired. Anything else is treated as
// absent and purged by the caller.
func (e Entry) Valid(version string, now time.Time) bool {
	return e.SchemaVersion == version && !now.After(e.ExpiresAt)
}
