package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	defaultBucket = "linkdrop"
	// deadlineSize is the width of the expiry prefix stored before every value.
	deadlineSize = 8
)

func init() {
	Register("bolt", newBoltStore)
}

// boltStore persists entries in a single bbolt bucket. Each value is stored
// behind a big-endian unix-nanosecond deadline, zero when the entry never expires.
// Expired entries read as missing and are removed by the next write to their key.
type boltStore struct {
	db     *bolt.DB
	bucket []byte
	ttl    time.Duration
	logger Logger
	now    func() time.Time
}

func newBoltStore(cfg ProviderConfig) (Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("bolt store requires a path")
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", cfg.Path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket %s: %w", bucket, err)
	}

	return &boltStore{db: db, bucket: []byte(bucket), ttl: cfg.TTL, logger: cfg.Logger, now: time.Now}, nil
}

func (b *boltStore) logError(msg string, err error) {
	if b.logger != nil {
		b.logger.Error(msg, err)
	}
}

// live returns the value part of a stored record, or false when it has expired or is malformed.
func (b *boltStore) live(record []byte) ([]byte, bool) {
	if len(record) < deadlineSize {
		return nil, false
	}
	deadline := int64(binary.BigEndian.Uint64(record[:deadlineSize]))
	if deadline != 0 && b.now().UnixNano() >= deadline {
		return nil, false
	}
	return record[deadlineSize:], true
}

func (b *boltStore) Get(key string) ([]byte, bool) {
	var (
		value []byte
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		// Values are only valid inside the transaction
		if v, ok := b.live(tx.Bucket(b.bucket).Get([]byte(key))); ok {
			value = append([]byte{}, v...)
			found = true
		}
		return nil
	})
	if err != nil {
		b.logError("bolt store Get failed", err)
		return nil, false
	}
	return value, found
}

func (b *boltStore) Set(key string, value []byte) error {
	record := make([]byte, deadlineSize+len(value))
	if b.ttl > 0 {
		binary.BigEndian.PutUint64(record, uint64(b.now().Add(b.ttl).UnixNano()))
	}
	copy(record[deadlineSize:], value)

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), record)
	})
}

func (b *boltStore) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
}

func (b *boltStore) Contains(key string) bool {
	_, ok := b.Get(key)
	return ok
}

func (b *boltStore) Len() int {
	n := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).ForEach(func(_, v []byte) error {
			if _, ok := b.live(v); ok {
				n++
			}
			return nil
		})
	})
	if err != nil {
		b.logError("bolt store Len failed", err)
		return 0
	}
	return n
}

func (b *boltStore) Close() error {
	return b.db.Close()
}
