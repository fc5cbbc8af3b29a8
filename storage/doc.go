// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package storage implements the two local persistence tiers behind the cache.

# Key-Value Tier

KVStore is a small synchronous string-to-string store persisted as a single
JSON file, with a byte quota (default 5MB) enforced on every write:

	kv, err := storage.OpenKVStore(filepath.Join(dir, "cache.json"), 0)
	err = kv.Set("votes:agenda:42", payload) // may be ErrQuotaExceeded

Quota rejection is a soft failure: the store keeps its previous contents and
the caller may evict expired entries and retry.

# Structured Record Tier

RecordStore holds larger records in a database (sqlite by default, postgres
via lib/pq), organized into named partitions:

	rs := storage.NewRecordStore("sqlite", dsn)
	rs.Put(ctx, "agendas", id, payload)
	all := rs.GetAll(ctx, "agendas")

The connection opens lazily on first use and only once per process. When the
tier cannot be opened (missing driver support, bad DSN, locked file) every
operation degrades to a cache miss; callers never see a fatal error from
this package.
*/
package storage
