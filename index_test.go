package ordmap

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestIndexSetOrdering(t *testing.T) {
	idx := New[int](Options{})
	idx.Set("b", 1)
	idx.Set("a", 2)
	idx.Set("c", 3)

	deepEqual(t, idx.SortedKeys(), []string{"a", "b", "c"})
	deepEqual(t, idx.SortedValues(), []int{2, 1, 3})
	eq(t, idx.Count(), 3)
	eq(t, get(t, idx, "a"), 2)

	_, ok := idx.Get("d")
	eq(t, ok, false)
}

func TestIndexSetOverwrites(t *testing.T) {
	idx := New[string](Options{RecentCapacity: 3})
	idx.Set("k", "v1")
	idx.Set("x", "x1")
	idx.Set("y", "y1") // triggers reconciliation
	idx.Set("k", "v2")
	idx.Set("y", "y2")

	eq(t, idx.Count(), 3)
	eq(t, get(t, idx, "k"), "v2")
	eq(t, get(t, idx, "y"), "y2")
	deepEqual(t, idx.SortedKeys(), []string{"k", "x", "y"})
}

func TestIndexSetSameValueKeepsStamp(t *testing.T) {
	idx := New[any](Options{})
	idx.Set("a", 1)
	s := idx.ChangeStamp()

	idx.Set("a", 1)
	eq(t, idx.ChangeStamp(), s)

	idx.Set("a", 2)
	if idx.ChangeStamp() <= s {
		t.Fatalf("ChangeStamp = %d, wanted > %d", idx.ChangeStamp(), s)
	}

	s = idx.ChangeStamp()
	idx.Set("a", []int{1})
	idx.Set("a", []int{1}) // slices are never considered equal
	eq(t, idx.ChangeStamp(), s+2)
}

func TestIndexAddGeneratesKeys(t *testing.T) {
	idx := New[string](Options{})
	eq(t, idx.Add("x"), "0000000000")
	eq(t, idx.Add("y"), "0000000001")
	idx.Set("named", "n")
	eq(t, idx.Add("z"), "0000000003")
}

func TestIndexRemoveThenPosition(t *testing.T) {
	idx := New[string](Options{})
	idx.Add("x")
	idx.Add("y")
	eq(t, idx.Remove("0000000000"), true)

	eq(t, idx.Count(), 1)
	v, ok := idx.GetAt(0)
	eq(t, ok, true)
	eq(t, v, "y")
	_, ok = idx.GetAt(1)
	eq(t, ok, false)

	// generated keys are not reissued
	eq(t, idx.Add("z"), "0000000002")
	deepEqual(t, idx.SortedValues(), []string{"y", "z"})
}

func TestIndexAddSkipsExplicitNumericKeys(t *testing.T) {
	idx := New[int](Options{})
	idx.Set("0000000005", -1)
	idx.Set("0000000000", -2)

	var keys []string
	for i := 0; i < 10; i++ {
		keys = append(keys, idx.Add(i))
	}
	deepEqual(t, keys, []string{
		"0000000002", "0000000003", "0000000004", "0000000006", "0000000007",
		"0000000008", "0000000009", "0000000010", "0000000011", "0000000012",
	})
	eq(t, idx.Count(), 12)
	eq(t, get(t, idx, "0000000005"), -1)
	eq(t, get(t, idx, "0000000000"), -2)
	eq(t, get(t, idx, "0000000012"), 9)
	checkSorted(t, idx)
}

func TestIndexRemove(t *testing.T) {
	t.Run("from recent", func(t *testing.T) {
		idx := New[int](Options{})
		idx.Set("a", 1)
		idx.Set("b", 2)
		idx.Set("c", 3)
		s := idx.ChangeStamp()
		eq(t, idx.Remove("b"), true)
		eq(t, idx.Count(), 2)
		eq(t, idx.Contains("b"), false)
		st := idx.Stats()
		eq(t, st.RecentHoles(), 1)
		eq(t, idx.ChangeStamp(), s+1)
		deepEqual(t, idx.SortedKeys(), []string{"a", "c"})
		eq(t, idx.Stats().RecentHoles(), 0)
	})

	t.Run("from main", func(t *testing.T) {
		idx := New[int](Options{})
		for i := 0; i < 10; i++ {
			idx.Set(fmt.Sprintf("k%d", i), i)
		}
		idx.Reconcile()
		eq(t, idx.Remove("k4"), true)
		st := idx.Stats()
		eq(t, st.MainSize, 9)
		eq(t, st.RecentSize, 0)
		eq(t, idx.Contains("k4"), false)
		for i := 0; i < 10; i++ {
			eq(t, idx.Contains(fmt.Sprintf("k%d", i)), i != 4)
		}
	})

	t.Run("absent key", func(t *testing.T) {
		idx := New[int](Options{})
		idx.Set("a", 1)
		s := idx.ChangeStamp()
		eq(t, idx.Remove("zzz"), false)
		eq(t, idx.ChangeStamp(), s)
		eq(t, idx.Count(), 1)
	})
}

func TestIndexClear(t *testing.T) {
	idx := New[int](Options{RecentCapacity: 4})
	for i := 0; i < 300; i++ {
		idx.Add(i)
	}
	s := idx.ChangeStamp()
	idx.Clear()

	eq(t, idx.Count(), 0)
	eq(t, idx.RecentCapacity(), 4)
	if idx.ChangeStamp() <= s {
		t.Fatalf("ChangeStamp = %d, wanted > %d", idx.ChangeStamp(), s)
	}
	eq(t, idx.Add(42), "0000000000")
	eq(t, get(t, idx, "0000000000"), 42)
}

func TestIndexLastModified(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	idx := New[int](Options{Now: func() time.Time { return now }})
	eq(t, idx.LastModified(), now)

	now = now.Add(time.Minute)
	idx.Set("a", 1)
	modified := now
	eq(t, idx.LastModified(), modified)

	now = now.Add(time.Minute)
	idx.Get("a")
	idx.Remove("nope")
	idx.Reconcile()
	eq(t, idx.LastModified(), modified)
}

func TestNewFromItems(t *testing.T) {
	idx, err := NewFromItems([]Item[int]{
		NewItem(0, "c", 3),
		NewItem(7, "a", 1),
		NewItem(2, "b", 2),
	}, Options{})
	noErr(t, err)

	deepEqual(t, idx.SortedKeys(), []string{"a", "b", "c"})
	eq(t, idx.Stats().Reconciliations, 0)
	eq(t, idx.Stats().Resorts, 1)
	eq(t, idx.Add(4), "0000000008")

	_, err = NewFromItems([]Item[int]{NewItem(0, "a", 1), NewItem(1, "a", 2)}, Options{})
	if de, ok := err.(*DuplicateKeyError); !ok || de.Key != "a" {
		t.Fatalf("err = %v, wanted DuplicateKeyError for a", err)
	}
}

func TestSnapshotItems(t *testing.T) {
	idx := New[string](Options{})
	idx.Set("b", "B")
	idx.Set("a", "A")
	items := idx.SnapshotItems()
	eq(t, len(items), 2)
	eq(t, items[0].Key(), "a")
	eq(t, items[0].Value(), "A")
	eq(t, items[0].Order(), int64(1))
	eq(t, items[1].Key(), "b")
	eq(t, items[1].Order(), int64(0))
}

// TestIndexUniqueness checks that after any sequence of sets every key has
// exactly one entry holding the last value set.
func TestIndexUniqueness(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	idx := New[int](Options{RecentCapacity: 7})
	want := make(map[string]int)
	for i := 0; i < 3000; i++ {
		k := fmt.Sprintf("key%03d", rnd.Intn(400))
		idx.Set(k, i)
		want[k] = i
	}

	eq(t, idx.Count(), len(want))
	checkSorted(t, idx)
	for k, v := range want {
		eq(t, get(t, idx, k), v)
	}
}

// TestIndexMergeEquivalence runs the same operations against indexes with
// different recent capacities; reconciliation must be unobservable.
func TestIndexMergeEquivalence(t *testing.T) {
	caps := []int{2, 3, 10, 64, 500}
	idxs := make([]*Index[int], len(caps))
	for i, c := range caps {
		idxs[i] = New[int](Options{RecentCapacity: c})
	}
	model := make(map[string]int)

	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		op := rnd.Intn(10)
		k := fmt.Sprintf("%c%d", 'a'+rnd.Intn(26), rnd.Intn(50))
		for _, idx := range idxs {
			switch {
			case op < 5:
				idx.Set(k, i)
			case op < 7:
				idx.Add(i)
			default:
				idx.Remove(k)
			}
		}
		switch {
		case op < 5:
			model[k] = i
		case op >= 7:
			delete(model, k)
		}
	}

	keys := idxs[0].SortedKeys()
	values := idxs[0].SortedValues()
	checkSorted(t, idxs[0])
	for _, idx := range idxs[1:] {
		deepEqual(t, idx.SortedKeys(), keys)
		deepEqual(t, idx.SortedValues(), values)
		eq(t, idx.Count(), idxs[0].Count())
	}

	var named []string
	for _, k := range keys {
		if _, isAuto := parseIntKey(k); !isAuto {
			named = append(named, k)
		}
	}
	var modelKeys []string
	for k := range model {
		modelKeys = append(modelKeys, k)
	}
	sort.Strings(modelKeys)
	deepEqual(t, named, modelKeys)
}

func TestIndexFastPath(t *testing.T) {
	const n = 2000
	idx := New[int](Options{RecentCapacity: 16})
	for i := 0; i < n; i++ {
		idx.Add(i * 10)
	}
	if idx.Stats().Reconciliations == 0 {
		t.Fatalf("expected at least one reconciliation")
	}
	for i := 0; i < n; i++ {
		v, ok := idx.GetAt(i)
		if !ok || v != i*10 {
			t.Fatalf("GetAt(%d) = %v, %v, wanted %d", i, v, ok, i*10)
		}
	}

	before := idx.Stats().FastPathHits
	for i := 0; i < n; i++ {
		eq(t, get(t, idx, padKey(int64(i))), i*10)
	}
	eq(t, idx.Stats().FastPathHits-before, uint64(n))

	// a short numeric key must not alias the padded one
	_, ok := idx.Get("5")
	eq(t, ok, false)
	idx.Set("5", -5)
	eq(t, get(t, idx, "5"), -5)
	eq(t, get(t, idx, padKey(5)), 50)
}

func TestIndexConcurrentAccess(t *testing.T) {
	idx := New[int](Options{RecentCapacity: 8})
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := fmt.Sprintf("w%d-%04d", w, i)
				idx.Set(k, i)
				if v, ok := idx.Get(k); !ok || v != i {
					t.Errorf("Get(%q) = %v, %v, wanted %d", k, v, ok, i)
					return
				}
				if i%3 == 0 {
					idx.Remove(k)
				}
			}
		}(w)
	}
	wg.Wait()

	eq(t, idx.Count(), 8*(500-167))
	checkSorted(t, idx)
}
