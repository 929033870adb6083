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
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeSetMergeCoalesces(t *testing.T) {
	s := NewRangeSet()
	require.Equal(t, 11, s.Merge(Range{10, 20}))
	require.Equal(t, 10, s.Merge(Range{21, 30}))
	require.Equal(t, []Range{{10, 30}}, s.Ranges())

	require.Equal(t, 5, s.Merge(Range{1, 5}))
	require.Equal(t, 4, s.Merge(Range{6, 9}))
	require.Equal(t, []Range{{1, 30}}, s.Ranges())
}

func TestRangeSetMergeCommutative(t *testing.T) {
	a := NewRangeSet()
	a.Merge(Range{5, 10})
	a.Merge(Range{20, 25})

	b := NewRangeSet()
	b.Merge(Range{20, 25})
	b.Merge(Range{5, 10})

	require.Equal(t, a.Ranges(), b.Ranges())
}

func TestRangeSetMergeIdempotent(t *testing.T) {
	s := NewRangeSet()
	s.Merge(Range{1, 100})
	before := s.Ranges()
	added := s.Merge(Range{10, 50})
	require.Equal(t, 0, added)
	require.Equal(t, before, s.Ranges())
}

func TestRangeSetReduceSplits(t *testing.T) {
	s := NewRangeSet()
	s.Merge(Range{1, 100})
	s.Reduce(Range{40, 60})
	require.Equal(t, []Range{{1, 39}, {61, 100}}, s.Ranges())
}

func TestRangeSetReduceUnaffectedIfAbsent(t *testing.T) {
	s := NewRangeSet()
	s.Merge(Range{1, 10})
	before := s.Ranges()
	s.Reduce(Range{200, 300})
	require.Equal(t, before, s.Ranges())
}

func TestRangeSetCoveredNeverExceedsLen(t *testing.T) {
	s := NewRangeSet()
	s.Merge(Range{10, 20})
	for _, r := range []Range{{0, 5}, {5, 15}, {15, 25}, {0, 100}, {12, 18}} {
		require.LessOrEqual(t, s.Covered(r), int(r.Len()))
	}
}

func TestRangeSetGeLe(t *testing.T) {
	s := NewRangeSet()
	_, err := s.Ge()
	require.ErrorIs(t, err, ErrEmptyRangeSet)
	_, err = s.Le()
	require.ErrorIs(t, err, ErrEmptyRangeSet)

	s.Merge(Range{5, 10})
	s.Merge(Range{50, 60})
	ge, err := s.Ge()
	require.NoError(t, err)
	require.Equal(t, Range{5, 10}, ge)
	le, err := s.Le()
	require.NoError(t, err)
	require.Equal(t, Range{50, 60}, le)
}

func TestRangeSetChunksRespectsMax(t *testing.T) {
	s := NewRangeSet()
	s.Merge(Range{1, 10})
	chunks := s.Chunks(3)
	require.Equal(t, []Range{{1, 3}, {4, 6}, {7, 9}, {10, 10}}, chunks)
}

func TestRangeSetChunksFullRangeNoOverflow(t *testing.T) {
	s := NewRangeSet()
	s.Merge(Range{0, math.MaxUint64})
	require.EqualValues(t, 0, s.Total())

	chunks := s.Chunks(math.MaxUint64 / 2)
	require.NotEmpty(t, chunks)
	require.Equal(t, uint64(0), chunks[0].Lo)
	require.Equal(t, uint64(math.MaxUint64), chunks[len(chunks)-1].Hi)
	for i := 1; i < len(chunks); i++ {
		require.Equal(t, chunks[i-1].Hi+1, chunks[i].Lo)
	}
}

func TestRangeSetFragments(t *testing.T) {
	s := NewRangeSet()
	require.Equal(t, 0, s.Fragments())
	s.Merge(Range{1, 5})
	s.Merge(Range{10, 15})
	require.Equal(t, 2, s.Fragments())
	s.Merge(Range{6, 9})
	require.Equal(t, 1, s.Fragments())
}

func TestRangeSetEmptyRangeIsNoOp(t *testing.T) {
	s := NewRangeSet()
	require.Equal(t, 0, s.Merge(Range{10, 5}))
	require.Empty(t, s.Ranges())
	s.Reduce(Range{10, 5})
	require.Empty(t, s.Ranges())
}

func TestRangeSetClear(t *testing.T) {
	s := NewRangeSet()
	s.Merge(Range{1, 5})
	s.Clear()
	require.Empty(t, s.Ranges())
	require.EqualValues(t, 0, s.Total())
}
