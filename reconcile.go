package ordmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var errLiveCountMismatch = errors.New("live item count mismatch")

func (idx *Index[V]) reconcileIfNeeded() {
	if len(idx.recent) > 0 {
		idx.reconcile(nil)
	}
}

// reconcile folds recent (plus the incoming item, if any) into a fresh main
// array. Must be called with the lock held.
func (idx *Index[V]) reconcile(incoming *Item[V]) {
	live := len(idx.main) + idx.recentCount
	if incoming != nil {
		live++
	}

	defer func() {
		if p := recover(); p != nil {
			if _, ok := p.(*MergeError); ok {
				panic(p)
			}
			panic(mergeErrf(live, -1, len(idx.main), idx.recentCount, len(idx.main), len(idx.recent), fmt.Errorf("%v", p)))
		}
	}()

	fresh := make([]*Item[V], 0, live)
	for _, it := range idx.main {
		if it != nil {
			fresh = append(fresh, it)
		}
	}

	sorted := true
	push := func(it *Item[V]) {
		fresh = append(fresh, it)
		n := len(fresh)
		if n < 2 || compareItems(fresh[n-2], fresh[n-1]) <= 0 {
			return
		}
		fresh[n-2], fresh[n-1] = fresh[n-1], fresh[n-2]
		if n >= 3 && compareItems(fresh[n-3], fresh[n-2]) > 0 {
			sorted = false
		}
	}
	for _, it := range idx.recent {
		if it != nil {
			push(it)
		}
	}
	if incoming != nil {
		push(incoming)
	}

	if len(fresh) != live {
		panic(mergeErrf(live, len(fresh), len(idx.main), idx.recentCount, len(idx.main), len(idx.recent), errLiveCountMismatch))
	}

	if !sorted {
		idx.resort(fresh)
	}

	for i := range idx.recent {
		idx.recent[i] = nil
	}
	idx.recent = idx.recent[:0]
	idx.recentCount = 0
	idx.main = fresh
	idx.updateRecentCapacity()
	idx.stats.Reconciliations++

	if idx.verbose {
		idx.logger.LogAttrs(context.Background(), slog.LevelDebug, "ordmap: reconciled",
			slog.Int("live", live),
			slog.Bool("resorted", !sorted),
			slog.Int("capacity", idx.recentCap))
	}
}

func (idx *Index[V]) updateRecentCapacity() {
	if n := len(idx.main); n > capacityThreshold {
		idx.recentCap = max(minRecentCapacity, min(maxRecentCapacity, n/capacityDivisor))
	}
}
