// Package history persists published averaging periods so readings can be
// inspected after a run without attaching an overlay.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/multierr"

	"github.com/gfxprof/frametime/pkg/types"
)

var recordPrefix = []byte("period/")

// Record is one published averaging period.
type Record struct {
	Unix     int64           `json:"unix"`
	Frames   uint32          `json:"frames"`
	Readings []types.Reading `json:"readings"`
}

// Store appends period records to a badger database in insertion order.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens (or creates) the store at dir. An empty dir opens an in-memory
// store, useful for tests and one-shot runs.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	seq, err := db.GetSequence([]byte("seq/period"), 64)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("history sequence: %w", err), db.Close())
	}

	return &Store{db: db, seq: seq}, nil
}

func recordKey(n uint64) []byte {
	key := make([]byte, len(recordPrefix)+8)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint64(key[len(recordPrefix):], n)
	return key
}

func (s *Store) Append(rec Record) error {
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("history sequence: %w", err)
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(n), val)
	})
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the highest possible sequence key.
		seek := recordKey(^uint64(0))
		for it.Seek(seek); it.Valid() && len(out) < n; it.Next() {
			var rec Record
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *Store) Close() error {
	return multierr.Combine(s.seq.Release(), s.db.Close())
}
