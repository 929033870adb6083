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
)

func TestComputeState(t *testing.T) {
	cases := []struct {
		name       string
		b, l, c, d, h uint64
		want       State
	}{
		{"head behind coupler", 0, 0, 10, 11, 10, StateIdle},
		{"head behind latest", 0, 20, 10, 11, 15, StateIdle},
		{"collecting headers, gap open", 100, 0, 50, 60, 200, StateCollectingHeaders},
		{"finished headers, single gap left", 100, 0, 50, 51, 200, StateFinishedHeaders},
		{"processing blocks, coupler caught dangling", 100, 0, 60, 60, 200, StateProcessingBlocks},
		{"coupler drifted past base", 50, 0, 60, 61, 200, StateIdle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ComputeState(tc.b, tc.l, tc.c, tc.d, tc.h))
		})
	}
}

func TestSyncStateLayoutEncodeDecodeRoundTrip(t *testing.T) {
	l := &SyncStateLayout{
		Coupler:        42,
		CouplerHash:    common.HexToHash("0x01"),
		Dangling:       43,
		DanglingParent: common.HexToHash("0x02"),
		Final:          40,
		FinalHash:      common.HexToHash("0x03"),
		Head:           1000,
		HeadHash:       common.HexToHash("0x04"),
		LastState:      StateCollectingHeaders,
	}
	enc := l.Encode()
	require.Len(t, enc, layoutEncodedLen)

	got, err := DecodeSyncStateLayout(enc)
	require.NoError(t, err)
	require.Equal(t, l, got)
}

func TestSyncStateLayoutDecodeRejectsWrongLength(t *testing.T) {
	_, err := DecodeSyncStateLayout([]byte{1, 2, 3})
	require.Error(t, err)
}
