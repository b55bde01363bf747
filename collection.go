package ordmap

import (
	"fmt"
	"sync"
)

type stampSource interface {
	ChangeStamp() uint64
}

type slot[T any] struct {
	v  T
	ok bool
}

// Collection is a positional read-only snapshot of an Index's keys or values.
//
// Elements are in the Index's structural order (recent buffer first, then
// main), which is not necessarily sorted; use Index.SortedKeys or
// Index.SortedValues for sorted output. The snapshot does not change when the
// Index does, but enumerators over it fail once the Index has been mutated.
type Collection[T any] struct {
	src   stampSource
	stamp uint64
	count int

	compactOnce sync.Once
	slots       []slot[T]
}

// buildCollection copies a projection of every live item. Must be called with
// the lock held.
func buildCollection[V, T any](idx *Index[V], proj func(it *Item[V]) T) *Collection[T] {
	size := max(int(idx.nextOrder), len(idx.recent)+len(idx.main))
	c := &Collection[T]{
		src:   idx,
		stamp: idx.stamp.Load(),
		count: idx.countLocked(),
		slots: make([]slot[T], size),
	}
	i := 0
	for _, it := range idx.recent {
		if it != nil {
			c.slots[i] = slot[T]{proj(it), true}
		}
		i++
	}
	for _, it := range idx.main {
		c.slots[i] = slot[T]{proj(it), true}
		i++
	}
	return c
}

// Len returns the number of elements.
func (c *Collection[T]) Len() int {
	return c.count
}

// ChangeStamp returns the Index change stamp the snapshot was taken at.
func (c *Collection[T]) ChangeStamp() uint64 {
	return c.stamp
}

// At returns the i-th element. It panics if i is out of range.
func (c *Collection[T]) At(i int) T {
	c.compactOnce.Do(c.compact)
	if i < 0 || i >= c.count {
		panic(fmt.Errorf("ordmap: collection index %d out of range [0, %d)", i, c.count))
	}
	return c.slots[i].v
}

// Slice returns a copy of all elements.
func (c *Collection[T]) Slice() []T {
	c.compactOnce.Do(c.compact)
	out := make([]T, c.count)
	for i := range out {
		out[i] = c.slots[i].v
	}
	return out
}

// Enumerator returns a single-pass enumerator over the collection. It fails
// right away if the Index has changed since the snapshot was taken.
func (c *Collection[T]) Enumerator() *CollectionEnumerator[T] {
	return &CollectionEnumerator[T]{c: c, stamp: c.stamp, pos: -1}
}

// compact moves holes to the tail by shifting each hole's successor into it,
// repeating until a pass makes no move.
func (c *Collection[T]) compact() {
	for moved := true; moved; {
		moved = false
		for i := 0; i+1 < len(c.slots); i++ {
			if !c.slots[i].ok && c.slots[i+1].ok {
				c.slots[i], c.slots[i+1] = c.slots[i+1], slot[T]{}
				moved = true
			}
		}
	}
	c.slots = c.slots[:c.count]
}
