// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/civic-sync/metrics"
	"github.com/danielhkuo/civic-sync/models"
	"github.com/danielhkuo/civic-sync/storage"
)

// keyPrefix namespaces every key this package owns in the kv tier, so
// ClearAll can remove exactly our data and nothing else.
const keyPrefix = "cs:"

// Category TTLs. Static reference content barely changes, vote counts go
// stale in minutes, user-specific records sit in between.
const (
	StaticTTL = 7 * 24 * time.Hour
	VoteTTL   = 5 * time.Minute
	UserTTL   = 12 * time.Hour
)

// Record-tier partitions owned by the cache.
var partitions = []string{"agendas", "suggestions", "opinions"}

// Key helpers for the namespaces the app caches under.

func VoteKey(ref models.EntityRef) string { return keyPrefix + "votes:" + ref.Key() }
func UserKey(userID string) string        { return keyPrefix + "user:" + userID }
func StaticKey(name string) string        { return keyPrefix + "static:" + name }

// Options configures a Manager. Zero values pick sane defaults rooted at
// Dir, which is the only required field.
type Options struct {
	Dir           string
	SchemaVersion string // defaults to SchemaVersion
	KVQuota       int    // defaults to storage.DefaultQuota
	RecordDriver  string // defaults to "sqlite"
	RecordDSN     string // defaults to a db file under Dir
	Now           func() time.Time
}

// Manager owns the cache key namespace, the TTL policy, and the offline
// action queue. Construct one per process and hand it to consumers; there
// is no package-level instance.
type Manager struct {
	kv      *storage.KVStore
	records *storage.RecordStore
	queue   *actionQueue
	version string
	now     func() time.Time
}

// New opens both storage tiers under opts.Dir. The record tier is opened
// lazily by storage.RecordStore, so New succeeds even when that tier is
// unusable.
func New(opts Options) (*Manager, error) {
	if opts.Dir == "" {
		return nil, errors.New("cache: Dir is required")
	}
	if opts.SchemaVersion == "" {
		opts.SchemaVersion = SchemaVersion
	}
	if opts.RecordDriver == "" {
		opts.RecordDriver = "sqlite"
	}
	if opts.RecordDSN == "" {
		opts.RecordDSN = "file:" + filepath.Join(opts.Dir, "records.db")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	kv, err := storage.OpenKVStore(filepath.Join(opts.Dir, "cache.json"), opts.KVQuota)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv tier: %w", err)
	}

	queue, err := openActionQueue(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open offline queue: %w", err)
	}

	return &Manager{
		kv:      kv,
		records: storage.NewRecordStore(opts.RecordDriver, opts.RecordDSN),
		queue:   queue,
		version: opts.SchemaVersion,
		now:     opts.Now,
	}, nil
}

// Get reads key into v. Returns false on absence, expiry, or schema
// mismatch; invalid entries are purged so the next read is a clean miss.
func (m *Manager) Get(key string, v any) bool {
	raw, ok := m.kv.Get(key)
	if !ok {
		metrics.CacheMisses.WithLabelValues("kv").Inc()
		return false
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || !e.Valid(m.version, m.now()) {
		m.kv.Delete(key)
		metrics.CacheMisses.WithLabelValues("kv").Inc()
		return false
	}

	if err := json.Unmarshal(e.Data, v); err != nil {
		m.kv.Delete(key)
		metrics.CacheMisses.WithLabelValues("kv").Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues("kv").Inc()
	return true
}

// Set writes v under key with the given TTL. A quota rejection triggers
// one expired-entry eviction pass and a single retry; persistent failure
// is reported as false, never as an error the caller must handle.
func (m *Manager) Set(key string, v any, ttl time.Duration) bool {
	e, err := wrap(v, m.version, ttl, m.now())
	if err != nil {
		slog.Warn("cache value not serializable", "key", key, "error", err)
		return false
	}
	raw, err := json.Marshal(e)
	if err != nil {
		slog.Warn("cache entry not serializable", "key", key, "error", err)
		return false
	}

	err = m.kv.Set(key, string(raw))
	if errors.Is(err, storage.ErrQuotaExceeded) {
		evicted := m.EvictExpired()
		slog.Info("cache quota exceeded, evicted expired entries",
			"key", key, "evicted", evicted, "size", humanize.Bytes(uint64(len(raw))))
		err = m.kv.Set(key, string(raw))
	}
	if err != nil {
		metrics.CacheWriteRejects.Inc()
		slog.Warn("cache write rejected",
			"key", key, "size", humanize.Bytes(uint64(len(raw))),
			"store", humanize.Bytes(uint64(m.kv.Size())), "error", err)
		return false
	}
	return true
}

// Delete removes a single key.
func (m *Manager) Delete(key string) {
	m.kv.Delete(key)
}

// EvictExpired scans the kv tier and removes every entry that no longer
// validates. Returns the number of entries removed.
func (m *Manager) EvictExpired() int {
	now := m.now()
	removed := 0
	for _, key := range m.kv.Keys() {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		raw, ok := m.kv.Get(key)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err == nil && e.Valid(m.version, now) {
			continue
		}
		m.kv.Delete(key)
		removed++
	}
	if removed > 0 {
		metrics.CacheEvictions.Add(float64(removed))
	}
	return removed
}

// ClearAll removes everything the cache owns in both tiers and drops the
// offline queue. Remote data is untouched; this is the user-triggered
// local reset.
func (m *Manager) ClearAll(ctx context.Context) {
	for _, key := range m.kv.Keys() {
		if strings.HasPrefix(key, keyPrefix) {
			m.kv.Delete(key)
		}
	}
	for _, p := range partitions {
		m.records.Clear(ctx, p)
	}
	m.queue.Clear()
	slog.Info("local cache cleared")
}

// GetRecord reads a structured record from the record tier, subject to
// the same envelope validation as the kv tier.
func (m *Manager) GetRecord(ctx context.Context, partition, key string, v any) bool {
	raw, ok := m.records.Get(ctx, partition, key)
	if !ok {
		metrics.CacheMisses.WithLabelValues("records").Inc()
		return false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil || !e.Valid(m.version, m.now()) {
		metrics.CacheMisses.WithLabelValues("records").Inc()
		return false
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		metrics.CacheMisses.WithLabelValues("records").Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues("records").Inc()
	return true
}

// PutRecord writes a structured record with the given TTL.
func (m *Manager) PutRecord(ctx context.Context, partition, key string, v any, ttl time.Duration) bool {
	e, err := wrap(v, m.version, ttl, m.now())
	if err != nil {
		slog.Warn("record value not serializable", "partition", partition, "error", err)
		return false
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return false
	}
	return m.records.Put(ctx, partition, key, raw)
}

// Offline action queue. Append-only while disconnected; the replay
// coordinator peeks and acknowledges entries one at a time.

func (m *Manager) EnqueueOfflineAction(a models.OfflineAction) error {
	if err := m.queue.Enqueue(a); err != nil {
		return fmt.Errorf("failed to queue offline action: %w", err)
	}
	slog.Info("offline action queued", "kind", a.Kind, "id", a.ID, "depth", m.queue.Depth())
	return nil
}

// OfflineActions returns all pending actions in submission order without
// removing them.
func (m *Manager) OfflineActions() []models.OfflineAction {
	return m.queue.Actions()
}

// AckOfflineAction removes the oldest pending action after a confirmed
// remote apply.
func (m *Manager) AckOfflineAction() {
	m.queue.AckFirst()
}

func (m *Manager) ClearOfflineActions() {
	m.queue.Clear()
}

// PendingActions returns the queue depth.
func (m *Manager) PendingActions() int {
	return m.queue.Depth()
}

// Close releases both tiers and the queue log.
func (m *Manager) Close() error {
	qErr := m.queue.Close()
	rErr := m.records.Close()
	if qErr != nil {
		return qErr
	}
	return rErr
}
