package ordmap

// Entry is a key/value pair produced by an Enumerator.
type Entry[V any] struct {
	Key   string
	Value V
}

// Enumerator walks an Index in ascending key order.
//
// It remembers the Index change stamp at creation and fails with
// ErrEnumeratorInvalidated on any call made after the Index was mutated.
// Each step looks the value up afresh under the Index lock.
type Enumerator[V any] struct {
	idx   *Index[V]
	stamp uint64
	keys  []string
	pos   int
	cur   Entry[V]
}

// Enumerator returns a new enumerator positioned before the first entry.
func (idx *Index[V]) Enumerator() *Enumerator[V] {
	return &Enumerator[V]{idx: idx, stamp: idx.ChangeStamp(), pos: -1}
}

// MoveNext advances to the next entry and reports whether there is one.
func (e *Enumerator[V]) MoveNext() (bool, error) {
	idx := e.idx
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.stamp.Load() != e.stamp {
		return false, ErrEnumeratorInvalidated
	}

	if e.keys == nil {
		idx.reconcileIfNeeded()
		e.keys = make([]string, len(idx.main))
		for i, it := range idx.main {
			e.keys[i] = it.key
		}
	}

	if e.pos >= len(e.keys) {
		return false, nil
	}
	e.pos++
	if e.pos == len(e.keys) {
		e.cur = Entry[V]{}
		return false, nil
	}

	key := e.keys[e.pos]
	it := idx.itemAt(idx.locate(key))
	if it == nil {
		// unreachable while the stamp matches
		return false, ErrEnumeratorInvalidated
	}
	e.cur = Entry[V]{key, it.value}
	return true, nil
}

// Current returns the entry the enumerator is positioned on.
func (e *Enumerator[V]) Current() (Entry[V], error) {
	if e.idx.ChangeStamp() != e.stamp {
		return Entry[V]{}, ErrEnumeratorInvalidated
	}
	if e.keys == nil || e.pos < 0 || e.pos >= len(e.keys) {
		return Entry[V]{}, ErrOutOfRange
	}
	return e.cur, nil
}

// Reset moves the enumerator back before the first entry.
func (e *Enumerator[V]) Reset() error {
	if e.idx.ChangeStamp() != e.stamp {
		return ErrEnumeratorInvalidated
	}
	e.pos = -1
	e.cur = Entry[V]{}
	return nil
}

// Range calls f for each entry in ascending key order until f returns false.
// f runs without the Index lock held; if it mutates the Index, Range stops and
// returns ErrEnumeratorInvalidated.
func (idx *Index[V]) Range(f func(key string, value V) bool) error {
	e := idx.Enumerator()
	for {
		ok, err := e.MoveNext()
		if err != nil || !ok {
			return err
		}
		if !f(e.cur.Key, e.cur.Value) {
			return nil
		}
	}
}

// CollectionEnumerator walks a Collection positionally. It is invalidated by
// mutations of the Index the collection was built from.
type CollectionEnumerator[T any] struct {
	c     *Collection[T]
	stamp uint64
	pos   int
}

// MoveNext advances to the next element and reports whether there is one.
func (e *CollectionEnumerator[T]) MoveNext() (bool, error) {
	if e.c.src.ChangeStamp() != e.stamp {
		return false, ErrEnumeratorInvalidated
	}
	n := e.c.Len()
	if e.pos >= n {
		return false, nil
	}
	e.pos++
	return e.pos < n, nil
}

// Current returns the element the enumerator is positioned on.
func (e *CollectionEnumerator[T]) Current() (T, error) {
	var zero T
	if e.c.src.ChangeStamp() != e.stamp {
		return zero, ErrEnumeratorInvalidated
	}
	if e.pos < 0 || e.pos >= e.c.Len() {
		return zero, ErrOutOfRange
	}
	return e.c.At(e.pos), nil
}

// Reset moves the enumerator back before the first element.
func (e *CollectionEnumerator[T]) Reset() error {
	if e.c.src.ChangeStamp() != e.stamp {
		return ErrEnumeratorInvalidated
	}
	e.pos = -1
	return nil
}
