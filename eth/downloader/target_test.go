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

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/types"
)

func TestTargetUpdateBeaconHeaderAccepts(t *testing.T) {
	tg := NewTarget()
	h := &types.Header{Number: 100}
	ok := tg.UpdateBeaconHeader(h, common.HexToHash("0x01"), 50)
	require.True(t, ok)
	require.True(t, tg.Changed())

	got, finalHash, _ := tg.Snapshot()
	require.Equal(t, h, got)
	require.Equal(t, common.HexToHash("0x01"), finalHash)
}

func TestTargetUpdateBeaconHeaderRejectsBelowCurrentHead(t *testing.T) {
	tg := NewTarget()
	h := &types.Header{Number: 40}
	ok := tg.UpdateBeaconHeader(h, common.Hash{}, 50)
	require.False(t, ok)
	require.False(t, tg.Changed())
}

func TestTargetUpdateBeaconHeaderRejectsNotStrictlyGreaterThanStored(t *testing.T) {
	tg := NewTarget()
	tg.UpdateBeaconHeader(&types.Header{Number: 100}, common.Hash{}, 0)
	tg.ClearChanged()

	ok := tg.UpdateBeaconHeader(&types.Header{Number: 100}, common.Hash{}, 0)
	require.False(t, ok)
	require.False(t, tg.Changed())

	ok = tg.UpdateBeaconHeader(&types.Header{Number: 101}, common.Hash{}, 0)
	require.True(t, ok)
}

func TestTargetUpdateBeaconHeaderRejectsWhileLocked(t *testing.T) {
	tg := NewTarget()
	tg.Lock()
	ok := tg.UpdateBeaconHeader(&types.Header{Number: 100}, common.Hash{}, 0)
	require.False(t, ok)
	tg.Unlock()
	ok = tg.UpdateBeaconHeader(&types.Header{Number: 100}, common.Hash{}, 0)
	require.True(t, ok)
}

func TestTargetUpdateFinalBlockHeader(t *testing.T) {
	tg := NewTarget()
	require.False(t, tg.UpdateFinalBlockHeader(5, 10))
	require.True(t, tg.UpdateFinalBlockHeader(10, 10))
	_, _, final := tg.Snapshot()
	require.EqualValues(t, 10, final)
}

func TestTargetClearChangedIsConsumedOnce(t *testing.T) {
	tg := NewTarget()
	tg.UpdateBeaconHeader(&types.Header{Number: 100}, common.Hash{}, 0)
	require.True(t, tg.Changed())
	tg.ClearChanged()
	require.False(t, tg.Changed())
}

func TestTargetReset(t *testing.T) {
	tg := NewTarget()
	tg.UpdateBeaconHeader(&types.Header{Number: 100}, common.HexToHash("0x01"), 0)
	tg.Reset()
	head, finalHash, final := tg.Snapshot()
	require.Nil(t, head)
	require.Equal(t, common.Hash{}, finalHash)
	require.EqualValues(t, 0, final)
	require.False(t, tg.Changed())
}
