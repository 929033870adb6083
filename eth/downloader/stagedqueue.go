// Copyright 2024 The beaconsync Authors
// This file is part of the beaconsync library.
//
// The beaconsync library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The beaconsync library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the beaconsync library. If not, see <http://www.gnu.org/licenses/>.

package downloader

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/types"
)

// stagedHeaderChain is the payload a header-fetch worker stages: a
// reverse-contiguous run of headers whose top hash is `hash` and whose
// bottom header's parent is `parentHash` (§3 StagedHeaderChain).
type stagedHeaderChain struct {
	parentHash common.Hash
	hash       common.Hash
	revHdrs    []*types.Header // revHdrs[0] is the highest-numbered header
}

// topNumber is the key stagedHeaderChain entries are stored under: the
// block number of revHdrs[0].
func (c *stagedHeaderChain) topNumber() uint64 { return c.revHdrs[0].Number }

// bottomNumber is the block number of the lowest header in the chain.
func (c *stagedHeaderChain) bottomNumber() uint64 { return c.revHdrs[len(c.revHdrs)-1].Number }

// stagedBlockList is the payload a body-fetch worker stages: a
// forward-contiguous run of fully assembled blocks (§3 StagedBlockList).
type stagedBlockList struct {
	blocks []*types.Block // blocks[0] is the lowest-numbered block
}

func (l *stagedBlockList) bottomNumber() uint64 { return l.blocks[0].NumberU64() }
func (l *stagedBlockList) topNumber() uint64    { return l.blocks[len(l.blocks)-1].NumberU64() }

// StagedQueue is a sorted map keyed by a block number - the top of a
// header chain, or the bottom of a block list - over an emirpasic/gods
// treemap, exposing the ge/le neighbor lookups §4.B specifies. Generic
// over the staged payload type so the header and body pipelines share one
// implementation instead of go-ethereum's historic parallel,
// near-duplicated queues.
type StagedQueue[V any] struct {
	mu sync.Mutex
	tm *treemap.Map
}

// NewStagedQueue returns an empty staged queue.
func NewStagedQueue[V any]() *StagedQueue[V] {
	return &StagedQueue[V]{tm: treemap.NewWith(utils.UInt64Comparator)}
}

// Insert adds a new entry keyed by k. Duplicate staging under the same
// key is a programmer error per §7/§8 ("Invariant violation ... abort the
// process"), not a recoverable fault.
func (q *StagedQueue[V]) Insert(k uint64, v V) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.tm.Get(k); ok {
		panic(fmt.Sprintf("downloader: duplicate staged queue key %d", k))
	}
	q.tm.Put(k, v)
}

// Delete removes the entry keyed by k, if any.
func (q *StagedQueue[V]) Delete(k uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tm.Remove(k)
}

// Ge returns the entry with the smallest key >= k.
func (q *StagedQueue[V]) Ge(k uint64) (uint64, V, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ck, cv, ok := q.tm.Ceiling(k)
	if !ok {
		var zero V
		return 0, zero, false
	}
	return ck.(uint64), cv.(V), true
}

// Le returns the entry with the largest key <= k.
func (q *StagedQueue[V]) Le(k uint64) (uint64, V, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fk, fv, ok := q.tm.Floor(k)
	if !ok {
		var zero V
		return 0, zero, false
	}
	return fk.(uint64), fv.(V), true
}

// Max returns the entry with the largest key, used by the commit pass to
// always drain the staged queue from its top (§4.E point 6).
func (q *StagedQueue[V]) Max() (uint64, V, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tm.Empty() {
		var zero V
		return 0, zero, false
	}
	k, v := q.tm.Max()
	return k.(uint64), v.(V), true
}

// Min returns the entry with the smallest key, used by the body commit
// pass to always drain from the bottom (§4.F commit pass).
func (q *StagedQueue[V]) Min() (uint64, V, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tm.Empty() {
		var zero V
		return 0, zero, false
	}
	k, v := q.tm.Min()
	return k.(uint64), v.(V), true
}

// Clear empties the queue.
func (q *StagedQueue[V]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tm.Clear()
}

// Len reports the number of staged entries.
func (q *StagedQueue[V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tm.Size()
}

// Keys returns every staged key, in ascending order - used by the
// property tests in §8.
func (q *StagedQueue[V]) Keys() []uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	ks := q.tm.Keys()
	out := make([]uint64, 0, len(ks))
	for _, k := range ks {
		out = append(out, k.(uint64))
	}
	return out
}
