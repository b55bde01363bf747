package ordmap

import "strings"

// Item is a single key/value record of an Index. Key and order are fixed once
// the item is placed; only the value can change.
type Item[V any] struct {
	order int64
	key   string
	value V
}

// NewItem builds an item for NewFromItems.
func NewItem[V any](order int64, key string, value V) Item[V] {
	return Item[V]{order: order, key: key, value: value}
}

func (it Item[V]) Order() int64 { return it.order }
func (it Item[V]) Key() string  { return it.key }
func (it Item[V]) Value() V     { return it.value }

// compareItems orders items by key. Nil slots sort after populated ones, so
// sorting and searching survive stray holes.
func compareItems[V any](a, b *Item[V]) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return strings.Compare(a.key, b.key)
	}
}
