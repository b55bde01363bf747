package ordmap

import (
	"math"
	"strings"
)

// Locations returned by locate: a non-negative value is a main index, notFound
// means absent, and anything below notFound encodes a recent slot.
const notFound = -1

// autoKeyWidth is the width of generated keys; wide enough for any int32.
const autoKeyWidth = 10

func recentLoc(slot int) int { return -2 - slot }
func recentSlot(loc int) int { return -2 - loc }

// padKey formats n as a zero-padded decimal so that string order matches
// numeric order.
func padKey(n int64) string {
	var buf [20]byte
	i := len(buf)
	for n >= 10 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	i--
	buf[i] = byte('0' + n)
	for len(buf)-i < autoKeyWidth {
		i--
		buf[i] = '0'
	}
	return string(buf[i:])
}

// parseIntKey parses an all-digit key of at most autoKeyWidth characters whose
// value fits a signed 32-bit integer. Leading zeros are allowed.
func parseIntKey(key string) (int, bool) {
	n := len(key)
	if n == 0 || n > autoKeyWidth {
		return 0, false
	}
	const limit = math.MaxInt32
	var v int64
	for i := 0; i < n; i++ {
		c := key[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
		if v > limit {
			return 0, false
		}
	}
	return int(v), true
}

// locate finds key in recent, then main. Must be called with the lock held.
func (idx *Index[V]) locate(key string) int {
	for i, it := range idx.recent {
		if it != nil && it.key == key {
			return recentLoc(i)
		}
	}
	if len(idx.main) == 0 {
		return notFound
	}

	if i, ok := parseIntKey(key); ok && i < len(idx.main) {
		if it := idx.main[i]; it != nil && it.key == key {
			idx.stats.FastPathHits++
			return i
		}
	}

	idx.stats.PartitionSearches++
	return idx.partition(func(k string) int { return strings.Compare(k, key) })
}

// partition runs the tolerant binary partition over main. cmp compares a
// stored key with the target.
func (idx *Index[V]) partition(cmp func(k string) int) int {
	n := len(idx.main)
	if n == 0 {
		return notFound
	}
	return idx.partitionStep(cmp, -1, n, n/2)
}

// partitionStep probes main[p]. Every slot at or below lo is known to sort
// before the target and every slot at or above hi after it.
func (idx *Index[V]) partitionStep(cmp func(k string) int, lo, hi, p int) int {
	if p <= lo || p >= hi {
		return notFound
	}

	if idx.main[p] == nil {
		q := p - 1
		for q > lo && idx.main[q] == nil {
			q--
		}
		if q <= lo {
			q = p + 1
			for q < hi && idx.main[q] == nil {
				q++
			}
			if q >= hi {
				return notFound
			}
		}
		p = q
	}

	c := cmp(idx.main[p].key)
	switch {
	case c == 0:
		return p
	case c < 0:
		return idx.partitionStep(cmp, p, hi, p+max(1, (hi-p)/2))
	default:
		return idx.partitionStep(cmp, lo, p, p-max(1, (p-lo)/2))
	}
}
