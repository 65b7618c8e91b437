package storage

import (
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func openTestStore(t *testing.T, clock *fakeClock) *boltStore {
	t.Helper()
	store, err := openBolt(filepath.Join(t.TempDir(), "nested", "seen.db"), Options{
		ArticleTTL:      time.Hour,
		CleanupInterval: 10 * time.Minute,
	}, clock.Now)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreMarksAndExpiresArticles(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := openTestStore(t, clock)

	seen, err := store.Seen("id1")
	if err != nil || seen {
		t.Fatalf("expected unseen article, seen=%v err=%v", seen, err)
	}

	if err := store.Mark("id1", Entry{FeedID: "tech", URL: "https://example.com/a"}); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	seen, err = store.Seen("id1")
	if err != nil || !seen {
		t.Fatalf("expected article marked as seen, got seen=%v err=%v", seen, err)
	}

	entry, expiry, found, err := store.Lookup("id1")
	if err != nil || !found {
		t.Fatalf("Lookup: found=%v err=%v", found, err)
	}
	if entry.FeedID != "tech" || entry.URL != "https://example.com/a" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !expiry.Equal(clock.t.Add(time.Hour)) {
		t.Fatalf("expiry = %v", expiry)
	}

	clock.Advance(time.Hour + time.Second)

	seen, err = store.Seen("id1")
	if err != nil {
		t.Fatalf("Seen after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire")
	}
}

func TestBoltStoreSweepRemovesExpiredKeys(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := openTestStore(t, clock)

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Mark(id, Entry{FeedID: "f"}); err != nil {
			t.Fatalf("Mark %s: %v", id, err)
		}
	}
	if n, _ := store.Len(); n != 3 {
		t.Fatalf("Len = %d, want 3", n)
	}

	clock.Advance(2 * time.Hour)
	if err := store.Mark("d", Entry{FeedID: "f"}); err != nil {
		t.Fatalf("Mark d: %v", err)
	}

	if n, _ := store.Len(); n != 1 {
		t.Fatalf("Len after sweep = %d, want 1", n)
	}
}

func TestDecodeEntryRejectsShortValues(t *testing.T) {
	if _, _, ok := decodeEntry([]byte{1, 2}); ok {
		t.Fatalf("expected short value to be rejected")
	}
	exp, entry, ok := decodeEntry(encodeEntry(time.Unix(42, 0), Entry{}))
	if !ok || exp.Unix() != 42 || entry != (Entry{}) {
		t.Fatalf("unexpected decode %v %+v %v", exp, entry, ok)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Mark("x", Entry{}); err != nil {
		t.Fatalf("noop store Mark: %v", err)
	}
	if seen, _ := store.Seen("x"); seen {
		t.Fatalf("noop store should never report seen")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "x", Options{}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected missing path error")
	}
}
