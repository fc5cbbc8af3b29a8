// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrQuotaExceeded is returned by Set when the serialized store would grow
// past its byte quota. Callers treat it as a soft failure.
var ErrQuotaExceeded = errors.New("kv store quota exceeded")

// DefaultQuota caps the serialized store at roughly 5MB.
const DefaultQuota = 5 << 20

// KVStore is the small synchronous key-value tier. The whole store is one
// JSON file rewritten on every mutation; values are opaque strings.
type KVStore struct {
	mu    sync.Mutex
	path  string
	quota int
	data  map[string]string
}

// OpenKVStore loads (or creates) the store file at path. A corrupt or
// unreadable file is discarded and the store starts empty; local cache
// state is always reconstructible from the remote service.
func OpenKVStore(path string, quota int) (*KVStore, error) {
	if quota <= 0 {
		quota = DefaultQuota
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create kv store dir: %w", err)
	}

	s := &KVStore{path: path, quota: quota, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			slog.Warn("kv store file corrupt, starting empty", "path", path, "error", err)
			s.data = make(map[string]string)
		}
	} else if !os.IsNotExist(err) {
		slog.Warn("kv store file unreadable, starting empty", "path", path, "error", err)
	}

	return s, nil
}

// Get returns the value for key, if present.
func (s *KVStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key. If the serialized store would exceed the
// quota the write is rejected with ErrQuotaExceeded and the previous value
// (if any) is left untouched.
func (s *KVStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = value

	raw, err := json.Marshal(s.data)
	if err == nil && len(raw) > s.quota {
		err = ErrQuotaExceeded
	}
	if err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}

	if werr := s.flushLocked(raw); werr != nil {
		slog.Warn("kv store flush failed", "path", s.path, "error", werr)
	}
	return nil
}

// Delete removes key. Missing keys are a no-op.
func (s *KVStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	if raw, err := json.Marshal(s.data); err == nil {
		if werr := s.flushLocked(raw); werr != nil {
			slog.Warn("kv store flush failed", "path", s.path, "error", werr)
		}
	}
}

// Keys returns a snapshot of all keys currently in the store.
func (s *KVStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Size returns the current serialized byte size of the store.
func (s *KVStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(s.data)
	if err != nil {
		return 0
	}
	return len(raw)
}

// flushLocked writes the serialized map through a temp file rename so a
// crash mid-write cannot corrupt the previous snapshot.
func (s *KVStore) flushLocked(raw []byte) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o640); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
