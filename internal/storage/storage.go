// Package storage persists room snapshots in BadgerDB so games survive
// server restarts.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// roomKeyPrefix namespaces room snapshots inside the store.
const roomKeyPrefix = "room:"

// Envelope wraps a serialized room with its last-write timestamp, used
// by the GC to find stale rooms.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt int64           `json:"updated_at"` // ms epoch
}

// Storage wraps BadgerDB for persistent room snapshots.
type Storage struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens (or creates) the store in dir.
func Open(dir string, log *zap.Logger) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logging is too chatty

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &Storage{db: db, log: log}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func roomKey(id string) []byte {
	return []byte(roomKeyPrefix + id)
}

// SaveRoom writes a room snapshot. Called inside the room's serialized
// section after each mutation.
func (s *Storage) SaveRoom(id string, blob []byte, updatedAt time.Time) error {
	env := Envelope{Data: blob, UpdatedAt: updatedAt.UnixMilli()}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(id), data)
	})
}

// LoadRoom reads one room snapshot. The bool is false if absent.
func (s *Storage) LoadRoom(id string) (Envelope, bool, error) {
	var env Envelope
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	return env, found, err
}

// LoadRooms reads every room snapshot, keyed by room id. Corrupt
// entries are skipped with a log line rather than failing startup.
func (s *Storage) LoadRooms() (map[string]Envelope, error) {
	rooms := make(map[string]Envelope)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(roomKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(roomKeyPrefix):])
			err := item.Value(func(val []byte) error {
				var env Envelope
				if err := json.Unmarshal(val, &env); err != nil {
					s.log.Warn("skipping corrupt room snapshot",
						zap.String("room", id), zap.Error(err))
					return nil
				}
				rooms[id] = env
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	return rooms, nil
}

// DeleteRoom removes a room snapshot.
func (s *Storage) DeleteRoom(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(roomKey(id))
	})
}

// StaleRooms returns the ids of rooms whose snapshot is older than ttl.
func (s *Storage) StaleRooms(ttl time.Duration, now time.Time) ([]string, error) {
	cutoff := now.Add(-ttl).UnixMilli()
	var stale []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(roomKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(roomKeyPrefix):])
			err := item.Value(func(val []byte) error {
				var env Envelope
				if err := json.Unmarshal(val, &env); err != nil {
					return nil
				}
				if env.UpdatedAt < cutoff {
					stale = append(stale, id)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return stale, err
}

// RunValueLogGC triggers Badger's value-log garbage collection. Safe to
// call periodically; ErrNoRewrite just means there was nothing to do.
func (s *Storage) RunValueLogGC() {
	if err := s.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
		s.log.Warn("badger value log gc", zap.Error(err))
	}
}
