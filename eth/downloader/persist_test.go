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
)

func TestTryResumeAcceptsConsistentLayout(t *testing.T) {
	fc := newFakeForkChoice() // base 0, latest 0
	s := newTestSyncer(fc, newFakeWire())

	layout := &SyncStateLayout{
		Coupler:   2,
		Dangling:  5,
		Final:     0,
		Head:      10,
		LastState: StateCollectingHeaders,
	}
	require.NoError(t, rawdb.WriteSyncStateLayout(fc.KV(), layout.Encode()))

	s.tryResume()

	require.False(t, s.hibernate.Load())
	s.layoutMu.Lock()
	c, d, h, last := s.coupler, s.dangling, s.head, s.lastState
	s.layoutMu.Unlock()
	require.EqualValues(t, 2, c)
	require.EqualValues(t, 5, d)
	require.EqualValues(t, 10, h)
	require.Equal(t, StateCollectingHeaders, last)
	require.EqualValues(t, 2, s.hdrUnproc.Total()) // [C+1, D-1] = [3, 4]
}

func TestTryResumeDiscardsWhenLastStateNotCollectingHeaders(t *testing.T) {
	fc := newFakeForkChoice()
	s := newTestSyncer(fc, newFakeWire())

	layout := &SyncStateLayout{
		Coupler:   2,
		Dangling:  2,
		Final:     0,
		Head:      10,
		LastState: StateProcessingBlocks,
	}
	require.NoError(t, rawdb.WriteSyncStateLayout(fc.KV(), layout.Encode()))
	require.NoError(t, rawdb.WriteStashHeader(fc.KV(), 10, []byte{0x01}))

	s.tryResume()

	require.True(t, s.hibernate.Load())
	require.Nil(t, rawdb.ReadSyncStateLayout(fc.KV()))
	require.False(t, rawdb.HasStashHeader(fc.KV(), 10))
}

func TestTryResumeDiscardsWhenBaseAheadOfFinal(t *testing.T) {
	fc := newFakeForkChoice()
	fc.base = 5
	s := newTestSyncer(fc, newFakeWire())

	layout := &SyncStateLayout{
		Coupler:   2,
		Dangling:  3,
		Final:     1, // base(5) > final(1): inconsistent, must discard
		Head:      10,
		LastState: StateCollectingHeaders,
	}
	require.NoError(t, rawdb.WriteSyncStateLayout(fc.KV(), layout.Encode()))

	s.tryResume()

	require.True(t, s.hibernate.Load())
	require.Nil(t, rawdb.ReadSyncStateLayout(fc.KV()))
}

func TestTryResumeDiscardsWhenLatestAlreadyAtHead(t *testing.T) {
	fc := newFakeForkChoice()
	fc.latest = &types.Header{Number: 10}
	s := newTestSyncer(fc, newFakeWire())

	layout := &SyncStateLayout{
		Coupler:   2,
		Dangling:  3,
		Final:     0,
		Head:      10, // L(10) !< Head(10): already caught up, discard
		LastState: StateCollectingHeaders,
	}
	require.NoError(t, rawdb.WriteSyncStateLayout(fc.KV(), layout.Encode()))

	s.tryResume()

	require.True(t, s.hibernate.Load())
}

func TestTryResumeNoOpWhenNoPersistedLayout(t *testing.T) {
	s := newTestSyncer(newFakeForkChoice(), newFakeWire())
	s.tryResume()
	require.Equal(t, StateIdle, s.lastState)
}

func TestPurgeStaleStashWalksBackUntilDry(t *testing.T) {
	fc := newFakeForkChoice()
	s := newTestSyncer(fc, newFakeWire())

	for n := uint64(1); n <= 5; n++ {
		require.NoError(t, rawdb.WriteStashHeader(fc.KV(), n, []byte{byte(n)}))
	}
	// Leave a gap at 3 so the backward walk stops there, even though
	// entries exist below it: purgeStaleStash walks contiguously.
	rawdb.DeleteStashHeader(fc.KV(), 3)

	s.purgeStaleStash(5)

	require.False(t, rawdb.HasStashHeader(fc.KV(), 5))
	require.False(t, rawdb.HasStashHeader(fc.KV(), 4))
	require.True(t, s.hibernate.Load())
}
