// Package buffer provides the offline spill buffer outputs fall back to when
// their sink is unavailable. Chunks of encoded records are kept in BadgerDB
// with a TTL so the store cannot grow without bound, and are replayed in
// arrival order.
package buffer

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"log/slog"
	"path"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"flit.hoyle.net/internal/logger"
)

// Chunk is one spilled unit: a routing tag and a buffer of serialized
// records, exactly as the output received them.
type Chunk struct {
	Tag  string
	Data []byte
}

// Entry is a fetched chunk together with its store key, needed to delete it
// after successful replay.
type Entry struct {
	Key   []byte
	Chunk Chunk
}

// Spill is a badger-backed chunk queue. A Spill with zero TTL is disabled:
// Put reports an error and Fetch returns nothing.
type Spill struct {
	ttl time.Duration
	db  *badger.DB
	seq atomic.Uint32
}

// Open initializes the spill store under dir. A TTL of zero hours disables
// spilling entirely and opens no database.
func Open(dir, name string, ttlHours int64) (*Spill, error) {
	s := &Spill{ttl: time.Duration(ttlHours) * time.Hour}
	if s.ttl <= 0 {
		return s, nil
	}

	dbPath := path.Join(dir, name)
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(logger.Default()))
	if err != nil {
		logger.Error("Failed to open BadgerDB for offline spilling", slog.Any("error", err))
		return nil, err
	}
	logger.Debug("Initialized BadgerDB for offline spilling", slog.String("path", dbPath))
	s.db = db
	return s, nil
}

// Enabled reports whether the spill store is active.
func (s *Spill) Enabled() bool {
	return s.db != nil
}

// Close releases the underlying database.
func (s *Spill) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Put stores a chunk with the configured TTL. Keys are ordered by arrival
// time so Fetch replays oldest first.
func (s *Spill) Put(c Chunk) error {
	if s.db == nil {
		return errors.New("cannot write to disabled spill buffer")
	}

	var value bytes.Buffer
	if err := gob.NewEncoder(&value).Encode(c); err != nil {
		return err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()
	e := badger.NewEntry(s.nextKey(), value.Bytes()).WithTTL(s.ttl)
	if err := txn.SetEntry(e); err != nil {
		return err
	}
	return txn.Commit()
}

// Fetch returns up to n of the oldest buffered chunks.
func (s *Spill) Fetch(n int) (entries []Entry, err error) {
	if s.db == nil {
		return nil, nil
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = n
	txn := s.db.NewTransaction(false)
	defer txn.Discard()
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			logger.Error("Failed to copy value from spill buffer", slog.Any("error", err))
			continue
		}
		var c Chunk
		if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&c); err != nil {
			logger.Error("Failed to decode chunk from spill buffer", slog.Any("error", err))
			continue
		}
		entries = append(entries, Entry{Key: item.KeyCopy(nil), Chunk: c})
		if len(entries) >= n {
			break
		}
	}
	return entries, nil
}

// Delete removes replayed chunks from the store.
func (s *Spill) Delete(entries []Entry) error {
	if s.db == nil {
		return errors.New("cannot delete from disabled spill buffer")
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()
	for _, e := range entries {
		if err := txn.Delete(e.Key); err != nil {
			logger.Error("Failed to delete from spill buffer", slog.Any("error", err))
		}
	}
	if err := txn.Commit(); err != nil {
		logger.Error("Failed to commit spill delete", slog.Any("error", err))
		return err
	}
	return nil
}

// nextKey builds a key ordered by wall-clock time with a sequence suffix to
// keep same-nanosecond puts distinct.
func (s *Spill) nextKey() []byte {
	key := make([]byte, 12)
	binary.BigEndian.PutUint64(key, uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint32(key[8:], s.seq.Add(1))
	return key
}
