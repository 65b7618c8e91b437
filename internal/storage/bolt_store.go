package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var seenBucket = []byte("seen_articles")

const expiryBytes = 8

// boltStore keeps one key per article id. The value is an 8 byte big-endian
// unix expiry followed by "<feed id>\x00<url>".
type boltStore struct {
	db              *bolt.DB
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	mu          sync.Mutex
	lastCleanup time.Time
}

func openBolt(path string, opts Options, now func() time.Time) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(seenBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{
		db:              db,
		ttl:             opts.ArticleTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             now,
		lastCleanup:     now(),
	}, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Seen reports whether id was marked and has not expired. Expired keys are removed.
func (b *boltStore) Seen(id string) (bool, error) {
	now := b.now()
	if err := b.sweep(now); err != nil {
		return false, err
	}

	var live bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(seenBucket)
		value := bucket.Get([]byte(id))
		if value == nil {
			return nil
		}
		if expiry, _, ok := decodeEntry(value); ok && expiry.After(now) {
			live = true
			return nil
		}
		return bucket.Delete([]byte(id))
	})
	return live, err
}

// Mark records id as published until now+TTL.
func (b *boltStore) Mark(id string, entry Entry) error {
	now := b.now()
	if err := b.sweep(now); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(seenBucket).Put([]byte(id), encodeEntry(now.Add(b.ttl), entry))
	})
}

// Len counts stored keys, expired or not.
func (b *boltStore) Len() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(seenBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Lookup returns the stored entry for id.
func (b *boltStore) Lookup(id string) (Entry, time.Time, bool, error) {
	var (
		entry  Entry
		expiry time.Time
		found  bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(seenBucket).Get([]byte(id))
		if value == nil {
			return nil
		}
		expiry, entry, found = decodeEntry(value)
		return nil
	})
	return entry, expiry, found, err
}

// sweep deletes expired keys at most once per cleanup interval.
func (b *boltStore) sweep(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.lastCleanup) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(seenBucket).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if expiry, _, ok := decodeEntry(v); !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup = now
	}
	return err
}

func encodeEntry(expiry time.Time, entry Entry) []byte {
	buf := make([]byte, expiryBytes, expiryBytes+len(entry.FeedID)+1+len(entry.URL))
	binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	buf = append(buf, entry.FeedID...)
	buf = append(buf, 0)
	buf = append(buf, entry.URL...)
	return buf
}

func decodeEntry(value []byte) (time.Time, Entry, bool) {
	if len(value) < expiryBytes {
		return time.Time{}, Entry{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryBytes]))
	if unix <= 0 {
		return time.Time{}, Entry{}, false
	}

	var entry Entry
	if rest := value[expiryBytes:]; len(rest) > 0 {
		feed, url, _ := bytes.Cut(rest, []byte{0})
		entry = Entry{FeedID: string(feed), URL: string(url)}
	}
	return time.Unix(unix, 0), entry, true
}
