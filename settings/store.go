// Package settings implements a named settings store on top of an ordmap
// Index, persisted in a Bolt file (or kept in memory).
//
// Every value is stored msgpack-encoded, both on disk and in the Index, so
// reads always decode the same way regardless of whether a value was just
// written or loaded from disk. The store keeps an order-independent xxhash
// checksum of its contents in a meta bucket and verifies it on open.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/ordmap"
	"github.com/andreyvit/ordmap/changelog"
	"github.com/andreyvit/ordmap/ordmapprom"
)

const (
	dataBucket = "settings"
	metaBucket = "meta"
)

type Options struct {
	Logger  *slog.Logger
	Verbose bool

	// IsTesting trades durability for speed.
	IsTesting bool

	// InMemory keeps everything in memory; the path is ignored.
	InMemory bool

	// Timeout bounds waiting for the Bolt file lock. Defaults to 10 seconds.
	Timeout time.Duration

	// HistoryDir, if set, is a directory where every committed transaction is
	// also appended to a change log, readable with Store.History.
	HistoryDir string
	Now        func() time.Time

	// Registerer, if set, receives a collector exporting Index statistics
	// labeled with MetricsName (default "settings").
	Registerer  prometheus.Registerer
	MetricsName string
}

type Store struct {
	st     storage
	idx    *ordmap.Index[string]
	logger *slog.Logger

	verbose bool

	writeMu    sync.Mutex // serializes Update so commits reach idx in order
	sum        atomic.Uint64
	closed     atomic.Bool
	handlers   []func(Change)
	handlersMu sync.Mutex

	history *changelog.Log

	registerer prometheus.Registerer
	collector  prometheus.Collector
}

// Open opens or creates the settings file at path.
func Open(path string, opt Options) (*Store, error) {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var st storage
	if opt.InMemory {
		st = newMemStorage()
	} else {
		bopt := &bbolt.Options{}
		*bopt = *bbolt.DefaultOptions
		bopt.Timeout = opt.Timeout
		if bopt.Timeout == 0 {
			bopt.Timeout = 10 * time.Second
		}
		if opt.IsTesting {
			bopt.NoSync = true
			bopt.NoFreelistSync = true
		}
		bdb, err := bbolt.Open(path, 0666, bopt)
		if err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		st = newBoltStorage(bdb)
	}

	s := &Store{
		st:      st,
		logger:  logger,
		verbose: opt.Verbose,
	}
	if err := s.load(opt); err != nil {
		st.Close()
		return nil, err
	}
	if opt.HistoryDir != "" {
		h, err := openHistory(opt, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("settings: %w", err)
		}
		s.history = h
	}

	if opt.Registerer != nil {
		name := opt.MetricsName
		if name == "" {
			name = "settings"
		}
		c := ordmapprom.NewCollector(name, s.idx)
		if err := opt.Registerer.Register(c); err != nil {
			s.closeHistory()
			st.Close()
			return nil, fmt.Errorf("settings: registering metrics: %w", err)
		}
		s.registerer, s.collector = opt.Registerer, c
	}
	return s, nil
}

// load creates the buckets if needed and reads every setting in key order.
func (s *Store) load(opt Options) error {
	stx, err := s.st.BeginTx(true)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	defer stx.Rollback()

	data, err := stx.CreateBucket(dataBucket)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	meta, err := stx.CreateBucket(metaBucket)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	var items []ordmap.Item[string]
	var sum uint64
	c := data.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		items = append(items, ordmap.NewItem(int64(len(items)), string(k), string(v)))
		sum ^= entryHash(string(k), v)
	}

	if stored, ok := decodeChecksum(meta.Get(checksumKey)); ok {
		if stored != sum {
			return fmt.Errorf("settings: %w: stored %016x, computed %016x over %d entries", ErrChecksumMismatch, stored, sum, len(items))
		}
	} else if err := meta.Put(checksumKey, encodeChecksum(sum)); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := stx.Commit(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	idx, err := ordmap.NewFromItems(items, ordmap.Options{
		Logger:  s.logger,
		Verbose: opt.Verbose,
	})
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	s.idx = idx
	s.sum.Store(sum)

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "settings: loaded",
		slog.Int("entries", len(items)),
		slog.String("checksum", fmt.Sprintf("%016x", sum)))
	return nil
}

// Close releases the storage. It is safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.registerer != nil {
		s.registerer.Unregister(s.collector)
	}
	s.closeHistory()
	return s.st.Close()
}

func (s *Store) closeHistory() {
	if s.history != nil {
		s.history.Close()
	}
}

// Index exposes the in-memory index of raw msgpack values.
func (s *Store) Index() *ordmap.Index[string] {
	return s.idx
}

// Get returns the decoded value of the named setting, or ErrNotFound.
func (s *Store) Get(name string) (any, error) {
	raw, ok := s.idx.Get(name)
	if !ok {
		return nil, ErrNotFound
	}
	return decodeAny(name, []byte(raw))
}

// GetAs decodes the named setting into T.
func GetAs[T any](s *Store, name string) (T, error) {
	var v T
	raw, ok := s.idx.Get(name)
	if !ok {
		return v, ErrNotFound
	}
	err := decodeValue(name, []byte(raw), &v)
	return v, err
}

// Has reports whether the named setting exists.
func (s *Store) Has(name string) bool {
	return s.idx.Contains(name)
}

// Len returns the number of settings.
func (s *Store) Len() int {
	return s.idx.Count()
}

// Names returns all setting names in ascending order.
func (s *Store) Names() []string {
	return s.idx.SortedKeys()
}

// NamesWithPrefix returns the names starting with prefix, in ascending order.
func (s *Store) NamesWithPrefix(prefix string) []string {
	names := s.idx.SortedKeys()
	i := sort.SearchStrings(names, prefix)
	j := i
	for j < len(names) && len(names[j]) >= len(prefix) && names[j][:len(prefix)] == prefix {
		j++
	}
	return names[i:j:j]
}

// Checksum returns the current content checksum.
func (s *Store) Checksum() uint64 {
	return s.sum.Load()
}

// Stats returns the statistics of the underlying Index.
func (s *Store) Stats() ordmap.Stats {
	return s.idx.Stats()
}

// Dump renders the underlying Index layout.
func (s *Store) Dump(f ordmap.DumpFlags) string {
	return s.idx.Dump(f)
}

// Set stores a single setting.
func (s *Store) Set(name string, value any) error {
	return s.Update(func(tx *Tx) error {
		return tx.Set(name, value)
	})
}

// Delete removes a single setting. Deleting a missing setting is not an error.
func (s *Store) Delete(name string) error {
	return s.Update(func(tx *Tx) error {
		return tx.Delete(name)
	})
}

// OnChange registers f to be called after every committed change, in commit
// order, outside of any transaction.
func (s *Store) OnChange(f func(Change)) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers = append(s.handlers, f)
}

func (s *Store) notify(changes []Change) {
	s.handlersMu.Lock()
	handlers := s.handlers
	s.handlersMu.Unlock()
	for _, chg := range changes {
		for _, f := range handlers {
			f(chg)
		}
	}
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

var errNoData = fmt.Errorf("%w: %s", errBucketNotFound, dataBucket)

func isClosedErr(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, bbolt.ErrDatabaseNotOpen)
}
