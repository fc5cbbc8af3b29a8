// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/wal"

	"github.com/danielhkuo/civic-sync/metrics"
	"github.com/danielhkuo/civic-sync/models"
)

// actionQueue is the durable FIFO of offline actions. Entries live in a
// write-ahead log; a separate head marker records how far replay has
// acknowledged, because the log itself cannot be truncated to empty.
//
// If the head marker is lost the queue replays from the oldest retained
// entry: a duplicate delivery, absorbed by the server-side dedup keys.
type actionQueue struct {
	mu       sync.Mutex
	log      *wal.Log
	headPath string
	head     uint64 // index of the next unacknowledged entry
}

func openActionQueue(dir string) (*actionQueue, error) {
	log, err := wal.Open(filepath.Join(dir, "queue"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open action log: %w", err)
	}

	q := &actionQueue{log: log, headPath: filepath.Join(dir, "queue.head")}

	first, err := log.FirstIndex()
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to read action log: %w", err)
	}
	q.head = first
	if q.head == 0 {
		q.head = 1 // empty log; first write lands at index 1
	}

	if raw, err := os.ReadFile(q.headPath); err == nil {
		if h, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64); err == nil && h > q.head {
			q.head = h
		}
	}

	metrics.OfflineQueueDepth.Set(float64(q.depthLocked()))
	return q, nil
}

// Enqueue appends an action to the tail of the queue.
func (q *actionQueue) Enqueue(a models.OfflineAction) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode offline action: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	last, err := q.log.LastIndex()
	if err != nil {
		return fmt.Errorf("failed to read action log: %w", err)
	}
	if err := q.log.Write(last+1, raw); err != nil {
		return fmt.Errorf("failed to append offline action: %w", err)
	}

	metrics.OfflineQueueDepth.Set(float64(q.depthLocked()))
	return nil
}

// Actions returns every unacknowledged action in submission order without
// removing anything. Callers acknowledge individually after a confirmed
// remote apply.
func (q *actionQueue) Actions() []models.OfflineAction {
	q.mu.Lock()
	defer q.mu.Unlock()

	last, err := q.log.LastIndex()
	if err != nil || last < q.head {
		return nil
	}

	out := make([]models.OfflineAction, 0, last-q.head+1)
	for idx := q.head; idx <= last; idx++ {
		raw, err := q.log.Read(idx)
		if err != nil {
			slog.Warn("offline queue read failed, skipping tail", "index", idx, "error", err)
			break
		}
		var a models.OfflineAction
		if err := json.Unmarshal(raw, &a); err != nil {
			slog.Warn("offline queue entry corrupt, skipping", "index", idx, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out
}

// AckFirst drops the oldest unacknowledged action. The head marker is
// persisted before the log is compacted so a crash between the two only
// costs disk space, never ordering.
func (q *actionQueue) AckFirst() {
	q.mu.Lock()
	defer q.mu.Unlock()

	last, err := q.log.LastIndex()
	if err != nil || last < q.head {
		return
	}

	q.head++
	q.persistHeadLocked()

	// The log keeps at least one entry; compact what we can.
	if q.head <= last {
		if err := q.log.TruncateFront(q.head); err != nil {
			slog.Warn("offline queue compaction failed", "error", err)
		}
	}

	metrics.OfflineQueueDepth.Set(float64(q.depthLocked()))
}

// Clear discards every pending action.
func (q *actionQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	last, err := q.log.LastIndex()
	if err != nil {
		return
	}
	if last >= q.head {
		q.head = last + 1
		q.persistHeadLocked()
	}
	metrics.OfflineQueueDepth.Set(0)
}

// Depth returns the number of pending actions.
func (q *actionQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depthLocked()
}

func (q *actionQueue) depthLocked() int {
	last, err := q.log.LastIndex()
	if err != nil || last < q.head {
		return 0
	}
	return int(last - q.head + 1)
}

func (q *actionQueue) persistHeadLocked() {
	if err := os.WriteFile(q.headPath, []byte(strconv.FormatUint(q.head, 10)), 0o640); err != nil {
		slog.Warn("offline queue head marker write failed", "error", err)
	}
}

func (q *actionQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.log.Close()
}
