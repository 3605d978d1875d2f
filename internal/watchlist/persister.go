package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"astrotoken/internal/storage"
)

// StorageKey is the well-known slot key holding the watchlist.
const StorageKey = "cryptoWatchlist"

// ErrMalformed reports a persisted payload that is not a JSON array of strings.
var ErrMalformed = errors.New("malformed watchlist payload")

// Persister loads and saves the full watchlist.
type Persister interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, slugs []string) error
}

// SlotPersister stores the watchlist as a JSON array under StorageKey.
type SlotPersister struct {
	slot storage.Slot
	key  string
}

// NewSlotPersister persists into slot under StorageKey.
func NewSlotPersister(slot storage.Slot) *SlotPersister {
	return &SlotPersister{slot: slot, key: StorageKey}
}

// Load returns nil when nothing has been saved yet.
func (p *SlotPersister) Load(ctx context.Context) ([]string, error) {
	raw, found, err := p.slot.Get(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	if !found {
		return nil, nil
	}
	return decode(raw)
}

// Save replaces the stored array.
func (p *SlotPersister) Save(ctx context.Context, slugs []string) error {
	if slugs == nil {
		slugs = []string{}
	}
	raw, err := json.Marshal(slugs)
	if err != nil {
		return fmt.Errorf("encode watchlist: %w", err)
	}
	if err := p.slot.Put(ctx, p.key, string(raw)); err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	return nil
}

func decode(raw string) ([]string, error) {
	var slugs []string
	if err := json.Unmarshal([]byte(raw), &slugs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return slugs, nil
}

// MemoryPersister keeps the encoded watchlist in memory. It round-trips through
// the same JSON encoding as SlotPersister.
type MemoryPersister struct {
	mu    sync.Mutex
	raw   string
	saved bool
	saves int
	err   error
}

// NewMemoryPersister starts empty, or with raw as the stored payload when given.
func NewMemoryPersister(raw ...string) *MemoryPersister {
	p := &MemoryPersister{}
	if len(raw) > 0 {
		p.raw = raw[0]
		p.saved = true
	}
	return p
}

func (p *MemoryPersister) Load(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.saved {
		return nil, nil
	}
	return decode(p.raw)
}

func (p *MemoryPersister) Save(_ context.Context, slugs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if slugs == nil {
		slugs = []string{}
	}
	raw, err := json.Marshal(slugs)
	if err != nil {
		return err
	}
	p.raw = string(raw)
	p.saved = true
	p.saves++
	return nil
}

// Raw returns the stored payload.
func (p *MemoryPersister) Raw() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.raw
}

// Saves counts successful saves.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// FailWith makes subsequent saves return err; nil restores normal behaviour.
func (p *MemoryPersister) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

var (
	_ Persister = (*SlotPersister)(nil)
	_ Persister = (*MemoryPersister)(nil)
)
