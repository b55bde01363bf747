package ordmap

import (
	"fmt"
	"math/rand"
	"testing"
)

func makeItems(keys ...string) []*Item[int] {
	items := make([]*Item[int], len(keys))
	for i, k := range keys {
		items[i] = &Item[int]{order: int64(i), key: k, value: i}
	}
	return items
}

func itemKeys(items []*Item[int]) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		if it == nil {
			keys[i] = "<nil>"
		} else {
			keys[i] = it.key
		}
	}
	return keys
}

func TestCompareItems(t *testing.T) {
	a, b := &Item[int]{key: "a"}, &Item[int]{key: "b"}
	eq(t, compareItems(a, b), -1)
	eq(t, compareItems(b, a), 1)
	eq(t, compareItems(a, a), 0)
	eq(t, compareItems[int](nil, nil), 0)
	eq(t, compareItems(nil, a), 1)
	eq(t, compareItems(a, nil), -1)
}

func TestBubbleSort(t *testing.T) {
	items := makeItems("d", "b", "a", "c")
	bubbleSort(items)
	deepEqual(t, itemKeys(items), []string{"a", "b", "c", "d"})

	items = makeItems()
	bubbleSort(items)
	eq(t, len(items), 0)
}

func TestSortsTolerateNil(t *testing.T) {
	items := makeItems("c", "a", "b")
	items = append(items, nil)
	items[0], items[3] = items[3], items[0]
	bubbleSort(items)
	deepEqual(t, itemKeys(items), []string{"a", "b", "c", "<nil>"})

	items = makeItems("c", "a", "b")
	items = append([]*Item[int]{nil}, items...)
	quicksort(items, 0, len(items)-1)
	deepEqual(t, itemKeys(items), []string{"a", "b", "c", "<nil>"})
}

func TestQuicksortRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for _, n := range []int{1, 2, 3, 81, 500, 4096} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			keys := make([]string, n)
			for i, p := range rnd.Perm(n) {
				keys[i] = fmt.Sprintf("k%06d", p)
			}
			items := makeItems(keys...)
			quicksort(items, 0, len(items)-1)
			for i := 1; i < n; i++ {
				if items[i-1].key >= items[i].key {
					t.Fatalf("not sorted at %d: %q >= %q", i, items[i-1].key, items[i].key)
				}
			}
		})
	}
}

func TestQuicksortAlreadySorted(t *testing.T) {
	keys := make([]string, 1000)
	for i := range keys {
		keys[i] = padKey(int64(i))
	}
	items := makeItems(keys...)
	quicksort(items, 0, len(items)-1)
	deepEqual(t, itemKeys(items), keys)
}
