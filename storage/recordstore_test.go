// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package storage

import (
	"context"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestRecordStore(t *testing.T) *RecordStore {
	t.Helper()

	rs := NewRecordStore("sqlite", "file:"+filepath.Join(t.TempDir(), "records.db"))
	t.Cleanup(func() { rs.Close() })
	return rs
}

func TestRecordStorePartitions(t *testing.T) {
	rs := openTestRecordStore(t)
	ctx := context.Background()

	if !rs.Put(ctx, "agendas", "a1", []byte(`{"id":"a1"}`)) {
		t.Fatal("Put failed")
	}
	if !rs.Put(ctx, "agendas", "a2", []byte(`{"id":"a2"}`)) {
		t.Fatal("Put failed")
	}
	if !rs.Put(ctx, "suggestions", "s1", []byte(`{"id":"s1"}`)) {
		t.Fatal("Put failed")
	}

	if v, ok := rs.Get(ctx, "agendas", "a1"); !ok || string(v) != `{"id":"a1"}` {
		t.Errorf("Get = (%q, %v)", v, ok)
	}

	// Partitions are isolated.
	if _, ok := rs.Get(ctx, "suggestions", "a1"); ok {
		t.Error("key leaked across partitions")
	}

	all := rs.GetAll(ctx, "agendas")
	if len(all) != 2 {
		t.Errorf("GetAll returned %d records, want 2", len(all))
	}

	rs.Clear(ctx, "agendas")
	if len(rs.GetAll(ctx, "agendas")) != 0 {
		t.Error("Clear left records behind")
	}
	if _, ok := rs.Get(ctx, "suggestions", "s1"); !ok {
		t.Error("Clear crossed partition boundary")
	}
}

func TestRecordStoreUpsert(t *testing.T) {
	rs := openTestRecordStore(t)
	ctx := context.Background()

	rs.Put(ctx, "agendas", "a1", []byte("first"))
	rs.Put(ctx, "agendas", "a1", []byte("second"))

	if v, _ := rs.Get(ctx, "agendas", "a1"); string(v) != "second" {
		t.Errorf("upsert kept %q, want \"second\"", v)
	}
}

func TestRecordStoreDegradesWhenUnavailable(t *testing.T) {
	// Unregistered driver: every operation must miss, never panic.
	rs := NewRecordStore("no-such-driver", "dsn")

	ctx := context.Background()
	if rs.Available() {
		t.Fatal("store claims availability with bogus driver")
	}
	if rs.Put(ctx, "agendas", "a1", []byte("x")) {
		t.Error("Put claimed success")
	}
	if _, ok := rs.Get(ctx, "agendas", "a1"); ok {
		t.Error("Get claimed success")
	}
	if all := rs.GetAll(ctx, "agendas"); all != nil {
		t.Errorf("GetAll = %v, want nil", all)
	}
	rs.Clear(ctx, "agendas") // must not panic
}

func TestRecordStoreOpenIsIdempotent(t *testing.T) {
	rs := openTestRecordStore(t)
	ctx := context.Background()

	// Multiple operations share one lazy open.
	for i := 0; i < 3; i++ {
		if !rs.Available() {
			t.Fatal("store should be available")
		}
	}
	rs.Put(ctx, "agendas", "a1", []byte("x"))
	if _, ok := rs.Get(ctx, "agendas", "a1"); !ok {
		t.Error("record lost across calls")
	}
}
