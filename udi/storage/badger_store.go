package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"

	"github.com/dqvis/udigen/udi"
)

// BadgerStore implements Store using BadgerDB
type BadgerStore struct {
	db *badger.DB

	mu      sync.Mutex
	entropy io.Reader
}

// NewBadgerStore opens (or creates) a BadgerDB-backed store at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.NumCompactors = 2
	opts.ValueThreshold = 1 << 10

	return open(opts)
}

// NewInMemoryStore creates a store that lives only as long as the process.
func NewInMemoryStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &BadgerStore{
		db:      db,
		entropy: ulid.Monotonic(src, 0),
	}, nil
}

func (s *BadgerStore) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// SaveRun stores rows under a fresh run id. Rows are written in batches so
// large runs do not exceed a single transaction; the run record is written
// last, so a run is only listed once all of its rows are stored.
func (s *BadgerStore) SaveRun(run Run, rows []udi.ExpandedRow) (Run, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.ID = s.newID(run.CreatedAt)
	run.Rows = len(rows)

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i := range rows {
		value, err := json.Marshal(&rows[i])
		if err != nil {
			return Run{}, fmt.Errorf("failed to encode row %s: %w", rows[i].CombinedID, err)
		}
		key := rowKey(run.ID, rows[i].TemplateID, rows[i].ExpandedID)
		if err := wb.Set(key, value); err != nil {
			return Run{}, fmt.Errorf("failed to write row %s: %w", rows[i].CombinedID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return Run{}, fmt.Errorf("failed to flush rows: %w", err)
	}

	value, err := json.Marshal(&run)
	if err != nil {
		return Run{}, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.ID), value)
	})
	if err != nil {
		return Run{}, fmt.Errorf("failed to write run %s: %w", run.ID, err)
	}
	return run, nil
}

// Runs lists stored runs. ULIDs sort by creation time, so key order is
// oldest first.
func (s *BadgerStore) Runs() ([]Run, error) {
	var runs []Run
	err := s.scan([]byte(runPrefix), func(val []byte) error {
		var run Run
		if err := json.Unmarshal(val, &run); err != nil {
			return err
		}
		runs = append(runs, run)
		return nil
	})
	return runs, err
}

// Run retrieves a single run
func (s *BadgerStore) Run(id string) (*Run, error) {
	var run *Run
	err := s.get(runKey(id), func(val []byte) error {
		run = &Run{}
		return json.Unmarshal(val, run)
	})
	return run, err
}

// Rows returns every row of a run.
func (s *BadgerStore) Rows(runID string) ([]udi.ExpandedRow, error) {
	var rows []udi.ExpandedRow
	err := s.scan(rowsPrefix(runID), func(val []byte) error {
		var row udi.ExpandedRow
		if err := json.Unmarshal(val, &row); err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// Row retrieves a single row by combined id
func (s *BadgerStore) Row(runID, combinedID string) (*udi.ExpandedRow, error) {
	templateID, expandedID, err := ParseCombinedID(combinedID)
	if err != nil {
		return nil, err
	}
	var row *udi.ExpandedRow
	err = s.get(rowKey(runID, templateID, expandedID), func(val []byte) error {
		row = &udi.ExpandedRow{}
		return json.Unmarshal(val, row)
	})
	return row, err
}

// DeleteRun removes the run record first, then its rows.
func (s *BadgerStore) DeleteRun(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(runKey(id))
		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if err := s.db.DropPrefix(rowsPrefix(id)); err != nil {
		return fmt.Errorf("failed to delete rows of run %s: %w", id, err)
	}
	return nil
}

// Close closes the store
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// get calls fn with the value stored at key. A missing key is not an error
// and fn is not called.
func (s *BadgerStore) get(key []byte, fn func(val []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(fn)
	})
	if err == badger.ErrKeyNotFound {
		return nil
	}
	return err
}

// scan calls fn with every value under prefix, in key order.
func (s *BadgerStore) scan(prefix []byte, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = 100

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
