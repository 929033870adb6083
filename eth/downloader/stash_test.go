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

	"github.com/ethbeacon/beaconsync/core/rawdb"
	"github.com/ethbeacon/beaconsync/core/types"
	"github.com/ethbeacon/beaconsync/ethdb/memorydb"
)

func mkHeader(number uint64, parent uint64) *types.Header {
	return &types.Header{Number: number, ParentHash: headerNumHash(parent)}
}

// headerNumHash derives a deterministic stand-in hash from a number, only
// for use as the parent-link fixture in these tests.
func headerNumHash(n uint64) (h [32]byte) {
	for i := 0; i < 8; i++ {
		h[31-i] = byte(n >> (8 * i))
	}
	return h
}

func TestHeaderStashWritesThroughWhenWritable(t *testing.T) {
	db := memorydb.New()
	s := NewHeaderStash(db)

	blobs := [][]byte{mkHeader(12, 11).Encode(), mkHeader(11, 10).Encode(), mkHeader(10, 9).Encode()}
	s.Stash(10, blobs)

	h, ok := s.Peek(12)
	require.True(t, ok)
	require.EqualValues(t, 12, h.Number)

	h, ok = s.Peek(10)
	require.True(t, ok)
	require.EqualValues(t, 10, h.Number)

	_, ok = s.Peek(999)
	require.False(t, ok)
}

func TestHeaderStashOverflowWhenNotWritable(t *testing.T) {
	db := memorydb.New()
	db.BeginWrite()
	defer db.EndWrite()

	s := NewHeaderStash(db)
	blobs := [][]byte{mkHeader(5, 4).Encode()}
	s.Stash(5, blobs)

	// buffered in the overflow map, not in the KV store
	require.False(t, db.Writable())
	require.False(t, rawdb.HasStashHeader(db, 5))

	h, found := s.Peek(5)
	require.True(t, found)
	require.EqualValues(t, 5, h.Number)
}

func TestHeaderStashFlushOverflowOnceWritable(t *testing.T) {
	db := memorydb.New()
	db.BeginWrite()
	s := NewHeaderStash(db)
	s.Stash(7, [][]byte{mkHeader(7, 6).Encode()})
	db.EndWrite()

	require.True(t, db.Writable())
	s.FlushOverflow()

	require.True(t, rawdb.HasStashHeader(db, 7))
	h, ok := s.Peek(7)
	require.True(t, ok)
	require.EqualValues(t, 7, h.Number)
}

func TestHeaderStashOverflowTakesPrecedenceOverKV(t *testing.T) {
	// The resolved Open Question (§9): when both the overflow map and the
	// KV store hold an entry for the same number, Peek must prefer the
	// overflow map's (newer) value.
	db := memorydb.New()
	s := NewHeaderStash(db)
	s.Stash(3, [][]byte{mkHeader(3, 2).Encode()})

	db.BeginWrite()
	newer := mkHeader(3, 99)
	s.Stash(3, [][]byte{newer.Encode()})

	h, ok := s.Peek(3)
	require.True(t, ok)
	require.Equal(t, newer.ParentHash, h.ParentHash)
	db.EndWrite()
}

func TestHeaderStashUnstash(t *testing.T) {
	db := memorydb.New()
	s := NewHeaderStash(db)
	s.Stash(1, [][]byte{mkHeader(1, 0).Encode()})
	s.Unstash(1)
	_, ok := s.Peek(1)
	require.False(t, ok)
}

func TestHeaderStashParentHash(t *testing.T) {
	db := memorydb.New()
	s := NewHeaderStash(db)
	s.Stash(2, [][]byte{mkHeader(2, 1).Encode()})
	ph, ok := s.ParentHash(2)
	require.True(t, ok)
	require.Equal(t, headerNumHash(1), [32]byte(ph))

	_, ok = s.ParentHash(999)
	require.False(t, ok)
}
