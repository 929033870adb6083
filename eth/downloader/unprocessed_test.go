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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnprocessedRangesFetchDrainsPriorityZero(t *testing.T) {
	u := NewUnprocessedRanges()
	u.Merge(Range{1, 10})

	r, err := u.Fetch(4)
	require.NoError(t, err)
	require.Equal(t, Range{1, 4}, r)
	require.EqualValues(t, 6, u.Total())
}

func TestUnprocessedRangesFetchFallsBackToPriorityOne(t *testing.T) {
	u := NewUnprocessedRanges()
	u.MergeSplit(Range{1, 10}) // p1 = {1,5}, p0 = {6,10}

	r, err := u.Fetch(5)
	require.NoError(t, err)
	require.Equal(t, Range{6, 10}, r) // drains p0 entirely

	r, err = u.Fetch(3)
	require.NoError(t, err)
	require.Equal(t, Range{1, 3}, r) // p0 empty, swapped in from p1
}

func TestUnprocessedRangesFetchEmpty(t *testing.T) {
	u := NewUnprocessedRanges()
	_, err := u.Fetch(5)
	require.ErrorIs(t, err, ErrEmptyRangeSet)
}

func TestUnprocessedRangesReduceBothPriorities(t *testing.T) {
	u := NewUnprocessedRanges()
	u.MergeSplit(Range{1, 10})
	require.EqualValues(t, 10, u.Total())
	u.Reduce(Range{1, 10})
	require.EqualValues(t, 0, u.Total())
}

func TestUnprocessedRangesFragments(t *testing.T) {
	u := NewUnprocessedRanges()
	u.Merge(Range{1, 5})
	u.Merge(Range{10, 15})
	require.Equal(t, 2, u.Fragments())
}

func TestUnprocessedRangesClear(t *testing.T) {
	u := NewUnprocessedRanges()
	u.Merge(Range{1, 100})
	u.Clear()
	require.EqualValues(t, 0, u.Total())
	require.Equal(t, 0, u.Fragments())
}
