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
	"errors"
	"math"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

// ErrEmptyRangeSet is returned by Ge/Le when the set holds no ranges.
var ErrEmptyRangeSet = errors.New("downloader: range set is empty")

// Range is an inclusive block-number interval [Lo, Hi].
type Range struct {
	Lo, Hi uint64
}

// Len returns the number of block numbers the range spans. The caller
// must not call Len on the fringe "full" range [0, 2^64-1]; use Chunks
// instead, per the convention in §4.A of the spec.
func (r Range) Len() uint64 { return r.Hi - r.Lo + 1 }

func (r Range) empty() bool { return r.Lo > r.Hi }

// RangeSet is a disjoint, coalesced, ordered collection of block-number
// ranges. The zero value is not ready to use; construct with NewRangeSet.
//
// Internally backed by an emirpasic/gods treemap keyed by each range's Lo,
// so Floor/Ceiling give the engine its ge/le neighbor lookups directly
// instead of a hand-rolled binary search.
type RangeSet struct {
	mu sync.Mutex
	tm *treemap.Map
}

// NewRangeSet returns an empty RangeSet.
func NewRangeSet() *RangeSet {
	return &RangeSet{tm: treemap.NewWith(utils.UInt64Comparator)}
}

func (s *RangeSet) floorLocked(key uint64) (uint64, uint64, bool) {
	k, v, ok := s.tm.Floor(key)
	if !ok {
		return 0, 0, false
	}
	return k.(uint64), v.(uint64), true
}

func (s *RangeSet) ceilingLocked(key uint64) (uint64, uint64, bool) {
	k, v, ok := s.tm.Ceiling(key)
	if !ok {
		return 0, 0, false
	}
	return k.(uint64), v.(uint64), true
}

// entriesOverlappingLocked returns every stored range that strictly
// overlaps [lo, hi], in ascending order. Caller must hold s.mu.
func (s *RangeSet) entriesOverlappingLocked(lo, hi uint64) []Range {
	var out []Range
	cur := lo
	if fk, fv, ok := s.floorLocked(cur); ok && fv >= lo {
		out = append(out, Range{fk, fv})
		cur = fk + 1
	}
	for {
		ck, cv, ok := s.ceilingLocked(cur)
		if !ok || ck > hi {
			break
		}
		out = append(out, Range{ck, cv})
		if ck == math.MaxUint64 {
			break
		}
		cur = ck + 1
	}
	return out
}

// Merge absorbs r into the set, coalescing adjacent or overlapping ranges,
// and returns the number of block numbers newly added (not previously
// present). An empty r (Lo > Hi) is a no-op.
func (s *RangeSet) Merge(r Range) int {
	if r.empty() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	added := int(r.Len()) - s.coveredLocked(r)

	lo, hi := r.Lo, r.Hi
	if fk, fv, ok := s.floorLocked(lo); ok && fv+1 >= lo {
		s.tm.Remove(fk)
		if fk < lo {
			lo = fk
		}
		if fv > hi {
			hi = fv
		}
	}
	for {
		ck, cv, ok := s.ceilingLocked(lo)
		if !ok || (hi != math.MaxUint64 && ck > hi+1) {
			break
		}
		s.tm.Remove(ck)
		if cv > hi {
			hi = cv
		}
	}
	s.tm.Put(lo, hi)
	return added
}

// Reduce punches a hole matching r out of the set, splitting any range
// that straddles its boundary. An empty r is a no-op.
func (s *RangeSet) Reduce(r Range) {
	if r.empty() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entriesOverlappingLocked(r.Lo, r.Hi) {
		s.tm.Remove(e.Lo)
		if e.Lo < r.Lo {
			s.tm.Put(e.Lo, r.Lo-1)
		}
		if e.Hi > r.Hi {
			s.tm.Put(r.Hi+1, e.Hi)
		}
	}
}

func (s *RangeSet) coveredLocked(r Range) int {
	total := 0
	for _, e := range s.entriesOverlappingLocked(r.Lo, r.Hi) {
		lo, hi := e.Lo, e.Hi
		if lo < r.Lo {
			lo = r.Lo
		}
		if hi > r.Hi {
			hi = r.Hi
		}
		if lo <= hi {
			total += int(hi - lo + 1)
		}
	}
	return total
}

// Covered returns how many block numbers in r are already present in the
// set.
func (s *RangeSet) Covered(r Range) int {
	if r.empty() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coveredLocked(r)
}

func (s *RangeSet) allLocked() []Range {
	keys := s.tm.Keys()
	out := make([]Range, 0, len(keys))
	for _, k := range keys {
		v, _ := s.tm.Get(k)
		out = append(out, Range{k.(uint64), v.(uint64)})
	}
	return out
}

// Ranges returns a snapshot of every stored range, in ascending order.
func (s *RangeSet) Ranges() []Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allLocked()
}

// Total sums the length of every stored range. By convention the fringe
// "full" range [0, 2^64-1] contributes zero (see §4.A); use Chunks to
// discover it instead.
func (s *RangeSet) Total() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint64
	for _, r := range s.allLocked() {
		if r.Lo == 0 && r.Hi == math.MaxUint64 {
			continue
		}
		total += r.Len()
	}
	return total
}

// Fragments returns the number of disjoint ranges currently stored.
func (s *RangeSet) Fragments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tm.Size()
}

// Ge returns the leftmost (lowest) stored range.
func (s *RangeSet) Ge() (Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tm.Empty() {
		return Range{}, ErrEmptyRangeSet
	}
	k, v := s.tm.Min()
	return Range{k.(uint64), v.(uint64)}, nil
}

// Le returns the rightmost (highest) stored range.
func (s *RangeSet) Le() (Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tm.Empty() {
		return Range{}, ErrEmptyRangeSet
	}
	k, v := s.tm.Max()
	return Range{k.(uint64), v.(uint64)}, nil
}

// Chunks splits every stored range into sub-ranges of at most max block
// numbers each, in ascending order. This is the prescribed way to observe
// a set that includes the fringe full range, whose Total is otherwise
// reported as zero.
func (s *RangeSet) Chunks(max uint64) []Range {
	if max == 0 {
		max = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Range
	for _, r := range s.allLocked() {
		lo := r.Lo
		for {
			hi := r.Hi
			if r.Hi-lo >= max { // avoids overflow when r.Hi is math.MaxUint64
				hi = lo + max - 1
			}
			out = append(out, Range{lo, hi})
			if hi >= r.Hi {
				break
			}
			lo = hi + 1
		}
	}
	return out
}

// Clear empties the set.
func (s *RangeSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tm.Clear()
}
