// Package bolt provides a durable blockstore.Store backed by bbolt.
//
// Blocks live in one bucket keyed by big-endian rowid; index metadata lives
// in a second bucket keyed by string. Every operation runs in its own bbolt
// transaction, so the store holds no long-lived handles between calls and a
// host commit is never blocked by the engine.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"

	bolt "go.etcd.io/bbolt"

	"github.com/vecdisk/vecdisk/blockstore"
)

var (
	blocksBucket = []byte("blocks")
	metaBucket   = []byte("meta")
)

// Store is a bbolt-backed block store.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a bbolt database at path and prepares the
// block and metadata buckets.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(blocksBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func blockKey(id uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], id)
	return key[:]
}

// ReadBlock returns the block stored under id, or blockstore.ErrNotFound.
func (s *Store) ReadBlock(_ context.Context, id uint64) ([]byte, error) {
	var buf []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(blocksBucket).Get(blockKey(id))
		if v == nil {
			return blockstore.ErrNotFound
		}
		// v is only valid inside the transaction
		buf = make([]byte, len(v))
		copy(buf, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteBlock stores buf under id.
func (s *Store) WriteBlock(_ context.Context, id uint64, buf []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).Put(blockKey(id), buf)
	})
}

// AllocateBlock creates a zeroed block of the given size under id.
func (s *Store) AllocateBlock(_ context.Context, id uint64, size int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).Put(blockKey(id), make([]byte, size))
	})
}

// DeleteBlock removes the block stored under id.
func (s *Store) DeleteBlock(_ context.Context, id uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(blocksBucket)
		if b.Get(blockKey(id)) == nil {
			return blockstore.ErrNotFound
		}
		return b.Delete(blockKey(id))
	})
}

// CountBlocks returns the number of stored blocks. bbolt keeps the key
// count in bucket statistics, so this does not scan.
func (s *Store) CountBlocks(_ context.Context) (uint64, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(blocksBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// RandomBlockID seeks the cursor to a random key and wraps around to the
// first key when the seek runs past the end. Sampling is approximately
// uniform for the engine's entry-point selection.
func (s *Store) RandomBlockID(_ context.Context) (uint64, error) {
	var id uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(blocksBucket).Cursor()
		k, _ := c.Seek(blockKey(rand.Uint64()))
		if k == nil {
			k, _ = c.First()
		}
		if k == nil {
			return blockstore.ErrNotFound
		}
		id = binary.BigEndian.Uint64(k)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetMeta returns the metadata value stored under key, or blockstore.ErrNotFound.
func (s *Store) GetMeta(_ context.Context, key string) ([]byte, error) {
	var buf []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get([]byte(key))
		if v == nil {
			return blockstore.ErrNotFound
		}
		buf = make([]byte, len(v))
		copy(buf, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// PutMeta stores value under key.
func (s *Store) PutMeta(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put([]byte(key), value)
	})
}

// ReleaseHandles implements blockstore.HandleReleaser. Every operation runs
// in its own transaction, so there is nothing to close; the method exists so
// hosts can treat all stores uniformly at transaction boundaries.
func (s *Store) ReleaseHandles() error {
	return nil
}
