package settings

import (
	"bytes"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
)

var errEmptyName = errors.New("setting name must not be empty")

// Tx is a settings transaction. Changes made through a writable Tx become
// visible to Store readers only after the transaction commits.
type Tx struct {
	s       *Store
	stx     storageTx
	data    storageBucket
	meta    storageBucket
	changes []Change
	sum     uint64
}

// Update runs f in a writable transaction and commits it if f returns nil.
// A panic inside f is returned as an error.
func (s *Store) Update(f func(tx *Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.begin(true)
	if err != nil {
		return err
	}
	defer tx.stx.Rollback()

	if err := safelyCall(f, tx); err != nil {
		commitFailures.Inc()
		return err
	}
	if len(tx.changes) == 0 {
		return nil
	}

	if err := tx.meta.Put(checksumKey, encodeChecksum(tx.sum)); err != nil {
		commitFailures.Inc()
		return fmt.Errorf("settings: %w", err)
	}
	if err := tx.stx.Commit(); err != nil {
		commitFailures.Inc()
		return fmt.Errorf("settings: commit: %w", err)
	}
	commits.Inc()

	for _, chg := range tx.changes {
		if chg.op == OpDelete {
			s.idx.Remove(chg.name)
		} else {
			s.idx.Set(chg.name, string(chg.raw))
		}
		changesApplied.WithLabelValues(chg.op.String()).Inc()
	}
	s.sum.Store(tx.sum)
	s.appendHistory(tx.changes)
	if s.verbose {
		s.logger.Debug("settings: committed", "changes", len(tx.changes), "checksum", fmt.Sprintf("%016x", tx.sum))
	}
	s.notify(tx.changes)
	return nil
}

// View runs f in a read-only transaction.
func (s *Store) View(f func(tx *Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	tx, err := s.begin(false)
	if err != nil {
		return err
	}
	defer tx.stx.Rollback()
	return safelyCall(f, tx)
}

func (s *Store) begin(writable bool) (*Tx, error) {
	stx, err := s.st.BeginTx(writable)
	if err != nil {
		if isClosedErr(err) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("settings: %w", err)
	}
	tx := &Tx{s: s, stx: stx, sum: s.sum.Load()}
	tx.data = stx.Bucket(dataBucket)
	tx.meta = stx.Bucket(metaBucket)
	if tx.data == nil || tx.meta == nil {
		stx.Rollback()
		return nil, errNoData
	}
	return tx, nil
}

func (tx *Tx) Writable() bool {
	return tx.stx.Writable()
}

// Get returns the decoded value of the named setting as seen by this
// transaction, or ErrNotFound.
func (tx *Tx) Get(name string) (any, error) {
	raw := tx.data.Get([]byte(name))
	if raw == nil {
		return nil, ErrNotFound
	}
	return decodeAny(name, raw)
}

// Has reports whether the named setting exists in this transaction.
func (tx *Tx) Has(name string) bool {
	return tx.data.Get([]byte(name)) != nil
}

// Set stores value under name. Setting an identical value is a no-op.
func (tx *Tx) Set(name string, value any) error {
	if !tx.Writable() {
		return ErrNotWritable
	}
	if name == "" {
		return errEmptyName
	}
	raw, err := encodeValue(name, value)
	if err != nil {
		return err
	}

	key := []byte(name)
	old := slices.Clone(tx.data.Get(key))
	if old != nil && bytes.Equal(old, raw) {
		return nil
	}
	if err := tx.data.Put(key, raw); err != nil {
		return fmt.Errorf("settings: %s: %w", name, err)
	}
	if old != nil {
		tx.sum ^= entryHash(name, old)
	}
	tx.sum ^= entryHash(name, raw)
	tx.changes = append(tx.changes, Change{op: OpPut, name: name, raw: raw, oldRaw: old})
	return nil
}

// Delete removes the named setting. Deleting a missing setting is a no-op.
func (tx *Tx) Delete(name string) error {
	if !tx.Writable() {
		return ErrNotWritable
	}
	key := []byte(name)
	old := slices.Clone(tx.data.Get(key))
	if old == nil {
		return nil
	}
	if err := tx.data.Delete(key); err != nil {
		return fmt.Errorf("settings: %s: %w", name, err)
	}
	tx.sum ^= entryHash(name, old)
	tx.changes = append(tx.changes, Change{op: OpDelete, name: name, oldRaw: old})
	return nil
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(fn func(*Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}
