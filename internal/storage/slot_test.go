package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func exerciseSlot(t *testing.T, slot Slot) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := slot.Get(ctx, "cryptoWatchlist"); err != nil || found {
		t.Fatalf("empty slot: found=%v err=%v", found, err)
	}
	if err := slot.Put(ctx, "cryptoWatchlist", `["bitcoin"]`); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := slot.Put(ctx, "cryptoWatchlist", `["bitcoin","solana"]`); err != nil {
		t.Fatalf("overwrite Put: %v", err)
	}
	got, found, err := slot.Get(ctx, "cryptoWatchlist")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got != `["bitcoin","solana"]` {
		t.Fatalf("Get = %s", got)
	}
}

func TestMemorySlot(t *testing.T) {
	exerciseSlot(t, NewMemorySlot())
}

func TestFileSlot(t *testing.T) {
	dir := t.TempDir()
	slot, err := NewFileSlot(dir)
	if err != nil {
		t.Fatalf("NewFileSlot: %v", err)
	}
	exerciseSlot(t, slot)

	if _, err := os.Stat(filepath.Join(dir, "cryptoWatchlist.json")); err != nil {
		t.Fatalf("slot file missing: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileSlotRejectsPathKeys(t *testing.T) {
	slot, err := NewFileSlot(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSlot: %v", err)
	}
	if err := slot.Put(context.Background(), "../escape", "x"); err == nil {
		t.Fatal("path traversal key should be rejected")
	}
}

func TestFileSlotRequiresDir(t *testing.T) {
	if _, err := NewFileSlot(""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("empty dir should be ErrNotConfigured, got %v", err)
	}
}

func TestSQLiteSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "astrotoken.db")
	slot, err := NewSQLiteSlot(path)
	if err != nil {
		t.Fatalf("NewSQLiteSlot: %v", err)
	}
	exerciseSlot(t, slot)
	if err := slot.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLiteSlot(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, found, err := reopened.Get(context.Background(), "cryptoWatchlist")
	if err != nil || !found || got != `["bitcoin","solana"]` {
		t.Fatalf("value did not survive reopen: %q found=%v err=%v", got, found, err)
	}
}

func TestPostgresSlotNotConfigured(t *testing.T) {
	var slot *PostgresSlot
	if _, _, err := slot.Get(context.Background(), "k"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("nil pool should be ErrNotConfigured, got %v", err)
	}
	if err := slot.Close(); err != nil {
		t.Fatalf("Close on nil slot: %v", err)
	}
}
