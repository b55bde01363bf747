package ordmap

import (
	"errors"
	"fmt"
)

var (
	// ErrEnumeratorInvalidated is returned by enumerators once the underlying
	// Index has been mutated after the enumerator was created.
	ErrEnumeratorInvalidated = errors.New("enumerator invalidated by a concurrent mutation")

	// ErrOutOfRange is returned when reading the current element of an
	// enumerator that is not positioned on an element.
	ErrOutOfRange = errors.New("enumerator is not positioned on an element")
)

// MergeError reports that reconciliation produced a different number of live
// items than it counted up front. It indicates a broken internal invariant and
// is raised via panic.
type MergeError struct {
	Expected    int
	Actual      int
	SortedCount int
	RecentCount int
	MainLen     int
	RecentLen   int
	Err         error
}

func mergeErrf(expected, actual, sortedCount, recentCount, mainLen, recentLen int, err error) error {
	return &MergeError{expected, actual, sortedCount, recentCount, mainLen, recentLen, err}
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

func (e *MergeError) Error() string {
	msg := fmt.Sprintf("ordmap: merge produced %d live items, expected %d (sorted=%d recent=%d main_len=%d recent_len=%d)",
		e.Actual, e.Expected, e.SortedCount, e.RecentCount, e.MainLen, e.RecentLen)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// DuplicateKeyError is returned by NewFromItems when two preloaded items share
// a key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("ordmap: duplicate key %q", e.Key)
}
