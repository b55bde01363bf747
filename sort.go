package ordmap

import (
	"context"
	"log/slog"
)

// quicksortThreshold is the array length above which resort switches from
// bubble sort to quicksort.
const quicksortThreshold = 80

func (idx *Index[V]) resort(items []*Item[V]) {
	idx.stats.Resorts++
	algo := "bubble"
	if len(items) > quicksortThreshold {
		algo = "quick"
		idx.stats.Quicksorts++
		quicksort(items, 0, len(items)-1)
	} else {
		idx.stats.BubbleSorts++
		bubbleSort(items)
	}
	if idx.verbose {
		idx.logger.LogAttrs(context.Background(), slog.LevelDebug, "ordmap: resorted",
			slog.Int("n", len(items)),
			slog.String("algo", algo))
	}
}

// quicksort sorts items[lo..hi] in place using Hoare partitioning around the
// midpoint.
func quicksort[V any](items []*Item[V], lo, hi int) {
	for lo < hi {
		p := hoarePartition(items, lo, hi)
		// recurse into the smaller side to bound stack depth
		if p-lo < hi-p {
			quicksort(items, lo, p)
			lo = p + 1
		} else {
			quicksort(items, p+1, hi)
			hi = p
		}
	}
}

func hoarePartition[V any](items []*Item[V], lo, hi int) int {
	pivot := items[lo+(hi-lo)/2]
	i, j := lo-1, hi+1
	for {
		for {
			i++
			if compareItems(items[i], pivot) >= 0 {
				break
			}
		}
		for {
			j--
			if compareItems(items[j], pivot) <= 0 {
				break
			}
		}
		if i >= j {
			return j
		}
		items[i], items[j] = items[j], items[i]
	}
}

func bubbleSort[V any](items []*Item[V]) {
	for n := len(items); n > 1; n-- {
		swapped := false
		for i := 1; i < n; i++ {
			if compareItems(items[i-1], items[i]) > 0 {
				items[i-1], items[i] = items[i], items[i-1]
				swapped = true
			}
		}
		if !swapped {
			return
		}
	}
}
