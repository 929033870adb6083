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

import "sync"

// UnprocessedRanges is the priority-pair interval structure the snap-sync
// pivot subsystem uses to interleave many peers' work without
// fragmenting the number line: priority 0 holds the "preferred" work,
// priority 1 the overflow. It is a peripheral component of this spec (§3:
// "used by the snap-sync pivot subsystem", a distinct subsystem this
// repository's beacon header/body loops do not depend on - those use a
// plain *RangeSet, see headerfetch.go/bodyfetch.go) kept here, fully
// implemented and tested, because the spec's data model names it
// explicitly.
type UnprocessedRanges struct {
	mu sync.Mutex
	p0 *RangeSet
	p1 *RangeSet
}

// NewUnprocessedRanges returns an empty priority pair.
func NewUnprocessedRanges() *UnprocessedRanges {
	return &UnprocessedRanges{p0: NewRangeSet(), p1: NewRangeSet()}
}

// Merge adds r to priority 0.
func (u *UnprocessedRanges) Merge(r Range) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.p0.Merge(r)
}

// Reduce removes r from both priority sets.
func (u *UnprocessedRanges) Reduce(r Range) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.p0.Reduce(r)
	u.p1.Reduce(r)
}

// Fetch returns a sub-range of at most maxLen from priority 0, falling
// back to priority 1 (by swapping the two sets) when priority 0 is empty.
func (u *UnprocessedRanges) Fetch(maxLen uint64) (Range, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.p0.Fragments() == 0 {
		u.p0, u.p1 = u.p1, u.p0
	}
	r, err := u.p0.Ge()
	if err != nil {
		return Range{}, err
	}
	hi := r.Hi
	if r.Len() > maxLen {
		hi = r.Lo + maxLen - 1
	}
	borrowed := Range{r.Lo, hi}
	u.p0.Reduce(borrowed)
	return borrowed, nil
}

// MergeSplit splits r so its upper half is demoted to priority 0 and its
// lower half to priority 1, de-fragmenting peer interleaving.
func (u *UnprocessedRanges) MergeSplit(r Range) {
	if r.empty() {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	mid := r.Lo + (r.Hi-r.Lo)/2
	u.p1.Merge(Range{r.Lo, mid})
	u.p0.Merge(Range{mid + 1, r.Hi})
}

// Total sums the length of every range across both priority sets.
func (u *UnprocessedRanges) Total() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.p0.Total() + u.p1.Total()
}

// Fragments returns the number of disjoint ranges across both priority
// sets.
func (u *UnprocessedRanges) Fragments() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.p0.Fragments() + u.p1.Fragments()
}

// Clear empties both priority sets.
func (u *UnprocessedRanges) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.p0.Clear()
	u.p1.Clear()
}
