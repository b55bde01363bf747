package ordmap

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultRecentCapacity is the initial bound on the recent buffer.
	DefaultRecentCapacity = 500

	minRecentCapacity = 2

	// Once main holds more than capacityThreshold items, the recent capacity
	// becomes min(maxRecentCapacity, main/capacityDivisor).
	capacityThreshold = 100
	maxRecentCapacity = 100
	capacityDivisor   = 10
)

type Options struct {
	// RecentCapacity overrides DefaultRecentCapacity for the initial recent
	// buffer bound.
	RecentCapacity int

	Logger  *slog.Logger
	Verbose bool

	// Now is used for LastModified; defaults to time.Now.
	Now func() time.Time
}

// Index is an ordered string-keyed dictionary. All methods are safe for
// concurrent use; each one holds the Index lock for its whole duration.
type Index[V any] struct {
	mu sync.Mutex

	main        []*Item[V] // sorted, no holes
	recent      []*Item[V] // arrival order, may contain nil holes
	recentCount int        // live items in recent
	recentCap   int
	initialCap  int

	stamp     atomic.Uint64
	nextOrder int64
	modTime   time.Time

	keysView   *Collection[string]
	valuesView *Collection[V]

	notFound *NotFoundMarker
	stats    Stats

	logger  *slog.Logger
	verbose bool
	now     func() time.Time
}

// New returns an empty Index.
func New[V any](opt Options) *Index[V] {
	idx := &Index[V]{
		notFound: &NotFoundMarker{},
		logger:   opt.Logger,
		verbose:  opt.Verbose,
		now:      opt.Now,
	}
	if idx.logger == nil {
		idx.logger = slog.Default()
	}
	if idx.now == nil {
		idx.now = time.Now
	}
	idx.initialCap = opt.RecentCapacity
	if idx.initialCap <= 0 {
		idx.initialCap = DefaultRecentCapacity
	} else if idx.initialCap < minRecentCapacity {
		idx.initialCap = minRecentCapacity
	}
	idx.recentCap = idx.initialCap
	idx.modTime = idx.now()
	return idx
}

// NewFromItems returns an Index preloaded with the given items. The items are
// expected to be sorted already; they are installed as the main array and
// resorted once without going through reconciliation.
func NewFromItems[V any](items []Item[V], opt Options) (*Index[V], error) {
	idx := New[V](opt)
	main := make([]*Item[V], len(items))
	for i := range items {
		it := items[i]
		main[i] = &it
		if it.order >= idx.nextOrder {
			idx.nextOrder = it.order + 1
		}
	}
	idx.resort(main)
	for i := 1; i < len(main); i++ {
		if main[i-1].key == main[i].key {
			return nil, &DuplicateKeyError{main[i].key}
		}
	}
	idx.main = main
	idx.updateRecentCapacity()
	return idx, nil
}

// Count returns the number of live items.
func (idx *Index[V]) Count() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.countLocked()
}

func (idx *Index[V]) countLocked() int {
	return len(idx.main) + idx.recentCount
}

// ChangeStamp returns the current value of the mutation counter.
func (idx *Index[V]) ChangeStamp() uint64 {
	return idx.stamp.Load()
}

// LastModified returns the time of the last structural mutation (or of
// creation).
func (idx *Index[V]) LastModified() time.Time {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.modTime
}

// Get returns the value stored under key.
func (idx *Index[V]) Get(key string) (V, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if it := idx.itemAt(idx.locate(key)); it != nil {
		return it.value, true
	}
	var zero V
	return zero, false
}

// GetAt returns the value at the given position of the sorted order. For an
// Index populated only via Add, position i holds the value of the i-th Add.
func (idx *Index[V]) GetAt(pos int) (V, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.reconcileIfNeeded()
	if pos < 0 || pos >= len(idx.main) {
		var zero V
		return zero, false
	}
	return idx.main[pos].value, true
}

// Contains reports whether key has a live entry.
func (idx *Index[V]) Contains(key string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.locate(key) != notFound
}

// Set stores value under key, overwriting any existing value in place.
func (idx *Index[V]) Set(key string, value V) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.setLocked(key, value)
}

// Add stores value under a generated key and returns that key. Generated keys
// are the zero-padded insertion sequence number and are never reissued. A
// sequence number whose key is already live (set explicitly) is skipped.
func (idx *Index[V]) Add(value V) string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	key := padKey(idx.nextOrder)
	for idx.locate(key) != notFound {
		idx.nextOrder++
		key = padKey(idx.nextOrder)
	}
	idx.setLocked(key, value)
	return key
}

func (idx *Index[V]) setLocked(key string, value V) {
	if it := idx.itemAt(idx.locate(key)); it != nil {
		if !sameValue(it.value, value) {
			it.value = value
			idx.touch()
		}
		return
	}

	it := &Item[V]{order: idx.nextOrder, key: key, value: value}
	idx.nextOrder++
	if len(idx.recent) >= idx.recentCap-1 {
		idx.reconcile(it)
	} else {
		idx.recent = append(idx.recent, it)
		idx.recentCount++
	}
	idx.touch()
}

// Remove deletes key and reports whether it was present.
func (idx *Index[V]) Remove(key string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	loc := idx.locate(key)
	switch {
	case loc == notFound:
		return false
	case loc >= 0:
		n := len(idx.main)
		idx.main[loc] = nil
		copy(idx.main[loc:], idx.main[loc+1:])
		idx.main[n-1] = nil
		idx.main = idx.main[:n-1]
	default:
		idx.recent[recentSlot(loc)] = nil
		idx.recentCount--
	}
	idx.touch()
	return true
}

// Clear removes all items and resets counters and capacity.
func (idx *Index[V]) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.main = nil
	idx.recent = nil
	idx.recentCount = 0
	idx.recentCap = idx.initialCap
	idx.nextOrder = 0
	idx.touch()
}

// Reconcile merges the recent buffer into the main array.
func (idx *Index[V]) Reconcile() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.reconcileIfNeeded()
}

// RecentCapacity returns the current bound on the recent buffer.
func (idx *Index[V]) RecentCapacity() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.recentCap
}

// SortedKeys returns all keys in ascending order.
func (idx *Index[V]) SortedKeys() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.reconcileIfNeeded()
	keys := make([]string, len(idx.main))
	for i, it := range idx.main {
		keys[i] = it.key
	}
	return keys
}

// SortedValues returns all values in ascending key order.
func (idx *Index[V]) SortedValues() []V {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.reconcileIfNeeded()
	values := make([]V, len(idx.main))
	for i, it := range idx.main {
		values[i] = it.value
	}
	return values
}

// SnapshotItems returns copies of all items in ascending key order.
func (idx *Index[V]) SnapshotItems() []Item[V] {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.reconcileIfNeeded()
	items := make([]Item[V], len(idx.main))
	for i, it := range idx.main {
		items[i] = *it
	}
	return items
}

// Keys returns a memoized view over the current keys. The view is rebuilt
// after every mutation.
func (idx *Index[V]) Keys() *Collection[string] {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.keysView == nil {
		idx.keysView = buildCollection(idx, func(it *Item[V]) string { return it.key })
	}
	return idx.keysView
}

// Values returns a memoized view over the current values. The view is rebuilt
// after every mutation.
func (idx *Index[V]) Values() *Collection[V] {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.valuesView == nil {
		idx.valuesView = buildCollection(idx, func(it *Item[V]) V { return it.value })
	}
	return idx.valuesView
}

// touch records a mutation. Must be called with the lock held.
func (idx *Index[V]) touch() {
	idx.stamp.Add(1)
	idx.modTime = idx.now()
	idx.keysView = nil
	idx.valuesView = nil
}

func (idx *Index[V]) itemAt(loc int) *Item[V] {
	switch {
	case loc == notFound:
		return nil
	case loc >= 0:
		return idx.main[loc]
	default:
		return idx.recent[recentSlot(loc)]
	}
}

// sameValue reports whether a and b are the same value, treating values that
// cannot be compared as different.
func sameValue[V any](a, b V) (same bool) {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}
	if t := reflect.TypeOf(av); t != reflect.TypeOf(bv) || !t.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return av == bv
}
