package watchlist

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"astrotoken/internal/market"
	"astrotoken/internal/metrics"
	"astrotoken/internal/storage"
)

func newStore(t *testing.T, p Persister) *Store {
	t.Helper()
	return New(context.Background(), p, zerolog.Nop())
}

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	s := newStore(t, p)

	if err := s.Add(ctx, "bitcoin"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	once := s.Slugs()
	if err := s.Add(ctx, "bitcoin"); err != nil {
		t.Fatalf("second Add: %v", err)
	}
	twice := s.Slugs()

	if len(once) != 1 || len(twice) != 1 || once[0] != twice[0] {
		t.Fatalf("double add changed the set: %v vs %v", once, twice)
	}
	if p.Saves() != 1 {
		t.Fatalf("no-op add should not persist, saves = %d", p.Saves())
	}
}

func TestRemoveOnEmptyIsNoop(t *testing.T) {
	p := NewMemoryPersister()
	s := newStore(t, p)
	if err := s.Remove(context.Background(), "bitcoin"); err != nil {
		t.Fatalf("Remove on empty set: %v", err)
	}
	if s.Len() != 0 || p.Saves() != 0 {
		t.Fatalf("remove on empty should do nothing")
	}
}

func TestMutationsPersistSynchronously(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	s := newStore(t, p)

	_ = s.Add(ctx, "bitcoin")
	if p.Raw() != `["bitcoin"]` {
		t.Fatalf("after add, persisted = %s", p.Raw())
	}
	_ = s.Add(ctx, "solana")
	_ = s.Remove(ctx, "bitcoin")
	if p.Raw() != `["solana"]` {
		t.Fatalf("after remove, persisted = %s", p.Raw())
	}
	_ = s.Remove(ctx, "solana")
	if p.Raw() != `[]` {
		t.Fatalf("empty set should persist as [], got %s", p.Raw())
	}
}

func TestContainsAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryPersister())
	for _, slug := range []string{"solana", "bitcoin", "xrp"} {
		_ = s.Add(ctx, slug)
	}
	if !s.Contains("bitcoin") || s.Contains("ethereum") {
		t.Fatal("membership mismatch")
	}
	got := s.Slugs()
	want := []string{"solana", "bitcoin", "xrp"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("insertion order lost: %v", got)
		}
	}
	got[0] = "mutated"
	if s.Slugs()[0] != "solana" {
		t.Fatal("Slugs should return a copy")
	}
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewMemoryPersister())
	in, err := s.Toggle(ctx, "dogecoin")
	if err != nil || !in {
		t.Fatalf("first toggle should add: in=%v err=%v", in, err)
	}
	in, err = s.Toggle(ctx, "dogecoin")
	if err != nil || in {
		t.Fatalf("second toggle should remove: in=%v err=%v", in, err)
	}
}

func TestSlugsAreTrimmedOnEveryPath(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	s := newStore(t, p)

	if err := s.Add(ctx, " bitcoin "); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !s.Contains("bitcoin") || !s.Contains(" bitcoin") {
		t.Fatal("trimmed and untrimmed lookups should both match")
	}
	if err := s.Remove(ctx, "bitcoin\t"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Len() != 0 || p.Raw() != `[]` {
		t.Fatalf("remove with whitespace should delete: %v raw=%s", s.Slugs(), p.Raw())
	}
	if in, err := s.Toggle(ctx, "   "); err != nil || in || p.Saves() != 2 {
		t.Fatalf("blank toggle should be a no-op: in=%v err=%v saves=%d", in, err, p.Saves())
	}
}

func TestConcurrentTogglesAlternate(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	s := newStore(t, p)

	const n = 40
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in, err := s.Toggle(ctx, "solana")
			if err != nil {
				t.Errorf("Toggle: %v", err)
				return
			}
			if in {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if added != n/2 {
		t.Fatalf("toggles reporting membership = %d, want %d", added, n/2)
	}
	if s.Contains("solana") || p.Raw() != `[]` {
		t.Fatalf("even number of toggles should end absent, raw=%s", p.Raw())
	}
	if p.Saves() != n {
		t.Fatalf("saves = %d, want %d", p.Saves(), n)
	}
}

func TestMalformedPayloadStartsEmpty(t *testing.T) {
	cases := []string{`not json`, `{"a":1}`, `[1,2]`, `"bitcoin"`}
	for _, raw := range cases {
		s := newStore(t, NewMemoryPersister(raw))
		if s.Len() != 0 {
			t.Fatalf("payload %q should load as empty, got %v", raw, s.Slugs())
		}
	}
}

func TestNullPayloadStartsEmpty(t *testing.T) {
	s := newStore(t, NewMemoryPersister(`null`))
	if s.Len() != 0 {
		t.Fatalf("null payload should load as empty")
	}
}

func TestLoadDropsDuplicates(t *testing.T) {
	s := newStore(t, NewMemoryPersister(`["bitcoin","bitcoin","","solana"]`))
	got := s.Slugs()
	if len(got) != 2 || got[0] != "bitcoin" || got[1] != "solana" {
		t.Fatalf("duplicates and blanks should be dropped: %v", got)
	}
}

type failingLoader struct{ MemoryPersister }

func (f *failingLoader) Load(context.Context) ([]string, error) {
	return nil, errors.New("disk on fire")
}

func TestLoadErrorStartsEmpty(t *testing.T) {
	s := newStore(t, &failingLoader{})
	if s.Len() != 0 {
		t.Fatal("load failure should start empty")
	}
}

func TestSaveErrorIsReturned(t *testing.T) {
	p := NewMemoryPersister()
	s := New(context.Background(), p, zerolog.Nop(), WithMetrics(metrics.New()))
	boom := errors.New("read-only")
	p.FailWith(boom)

	if err := s.Add(context.Background(), "bitcoin"); !errors.Is(err, boom) {
		t.Fatalf("save error should be returned, got %v", err)
	}
	if !s.Contains("bitcoin") {
		t.Fatal("in-memory set keeps the mutation when saving fails")
	}
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestRoundTripThroughNewStore(t *testing.T) {
	ctx := context.Background()
	slot, err := storage.NewFileSlot(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("NewFileSlot: %v", err)
	}

	first := newStore(t, NewSlotPersister(slot))
	for _, slug := range []string{"ethereum", "bitcoin", "shiba-inu"} {
		if err := first.Add(ctx, slug); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	_ = first.Remove(ctx, "bitcoin")

	second := newStore(t, NewSlotPersister(slot))
	a, b := sorted(first.Slugs()), sorted(second.Slugs())
	if len(a) != len(b) {
		t.Fatalf("round trip changed size: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("round trip mismatch: %v vs %v", a, b)
		}
	}
}

func TestSlotPersisterMalformed(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemorySlot()
	_ = slot.Put(ctx, StorageKey, "{broken")
	if _, err := NewSlotPersister(slot).Load(ctx); !errors.Is(err, ErrMalformed) {
		t.Fatalf("broken payload should be ErrMalformed, got %v", err)
	}
}

func TestFilterMatchesMembersExactly(t *testing.T) {
	tokens := market.SampleTokens()
	slugs := []string{"solana", "dogecoin", "not-listed"}

	got := Filter(tokens, slugs)
	if len(got) != 2 {
		t.Fatalf("want 2 listed members, got %d", len(got))
	}
	members := map[string]bool{"solana": true, "dogecoin": true, "not-listed": true}
	for _, tok := range got {
		if !members[tok.Slug] {
			t.Fatalf("extra token %s", tok.Slug)
		}
	}
	for _, tok := range tokens {
		if members[tok.Slug] {
			found := false
			for _, g := range got {
				if g.Slug == tok.Slug {
					found = true
				}
			}
			if !found {
				t.Fatalf("omitted member %s", tok.Slug)
			}
		}
	}
	if got[0].Slug != "solana" {
		t.Fatalf("listing order not preserved: %s first", got[0].Slug)
	}
	if Filter(tokens, nil) != nil {
		t.Fatal("empty watchlist should filter to nothing")
	}
}
