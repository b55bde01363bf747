/*
Package ordmap implements an in-process ordered string-keyed dictionary
optimized for many rapid appends followed by occasional random lookups and
infrequent removals.

We implement:

1. Index, the dictionary itself. Iteration is always in ascending key order.

2. Collection, a read-only positional snapshot of an Index's keys or values.

3. Enumerators over an Index (key/value pairs) and a Collection (single
values), invalidated by any mutation made after they were created.

# Technical Details

**Two tiers.**
An Index keeps a small unsorted “recent” buffer and a larger sorted “main”
array. Appends land in the recent buffer. When it fills up, both tiers are
merged into a fresh main array (“reconciliation”), resorting only if the merge
could not keep the array sorted with local swaps. The recent buffer capacity
starts at 500 and, once main holds more than 100 items, is recomputed at every
reconciliation as min(100, main/10).

**Removal.**
Removing from main shifts the tail down immediately, so main never carries a
hole. Removing from recent nils the slot; holes are folded away during the
next reconciliation.

**Lookup.**
Recent is scanned linearly. Main is searched via an integer fast path (for
auto-generated keys, which are zero-padded decimal positions and so land at
their own array slot) and then via a recursive binary partition that tolerates
empty slots.

**Sorting.**
Arrays longer than 80 items are quicksorted (midpoint pivot, Hoare
partitioning); shorter ones are bubble sorted.

**Change stamp.**
Every structural mutation bumps a per-Index counter. Enumerators and views
remember the stamp they were created at and fail once it moves.

**Locking.**
A single mutex guards every public operation for its full duration,
including reconciliation triggered from within Set.
*/
package ordmap
