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
	"encoding/binary"
	"fmt"

	"github.com/ethbeacon/beaconsync/common"
)

// State is the sync controller's current phase, a pure function of the
// five layout anchors (§4.D).
type State uint8

const (
	StateIdle State = iota
	StateCollectingHeaders
	StateFinishedHeaders
	StateProcessingBlocks
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollectingHeaders:
		return "collectingHeaders"
	case StateFinishedHeaders:
		return "finishedHeaders"
	case StateProcessingBlocks:
		return "processingBlocks"
	default:
		return "unknown"
	}
}

// ComputeState derives the sync state from the five anchors on the number
// line (§4.D): base B and latest L are supplied live by Forkchoice;
// coupler C, dangling D and head H come from the persisted layout.
func ComputeState(b, l, c, d, h uint64) State {
	switch {
	case h <= c || h <= l:
		return StateIdle
	case c <= b && c+1 < d:
		return StateCollectingHeaders
	case c <= b && c+1 == d:
		return StateFinishedHeaders
	case c == d:
		return StateProcessingBlocks
	default:
		// Notably b < c: the coupler has drifted ahead of what
		// Forkchoice actually knows. Not data we can repair here.
		return StateIdle
	}
}

// SyncStateLayout is the persisted record of the sync session's anchors
// (§3): coupler C, dangling D, finalised F, head H, and the last observed
// state, used to decide whether a saved session may resume.
type SyncStateLayout struct {
	Coupler        uint64
	CouplerHash    common.Hash
	Dangling       uint64
	DanglingParent common.Hash
	Final          uint64
	FinalHash      common.Hash
	Head           uint64
	HeadHash       common.Hash
	LastState      State
}

// layoutEncodedLen is the fixed width of the canonical encoding: four
// uint64 fields, four 32-byte hashes, one state byte.
const layoutEncodedLen = 8 + 32 + 8 + 32 + 8 + 32 + 8 + 32 + 1

// Encode serializes the layout into the fixed-width canonical byte record
// specified in §6: coupler, couplerHash, dangling, danglingParent, final,
// finalHash, head, headHash, lastState, in that exact order. A
// fixed-width binary encoding (not RLP) is the faithful choice here since
// the spec pins an exact field order and width, the same way
// core/rawdb's own schema encodes simple fixed keys.
func (l *SyncStateLayout) Encode() []byte {
	buf := make([]byte, layoutEncodedLen)
	off := 0
	putUint64 := func(v uint64) {
		binary.BigEndian.PutUint64(buf[off:], v)
		off += 8
	}
	putHash := func(h common.Hash) {
		copy(buf[off:], h[:])
		off += 32
	}
	putUint64(l.Coupler)
	putHash(l.CouplerHash)
	putUint64(l.Dangling)
	putHash(l.DanglingParent)
	putUint64(l.Final)
	putHash(l.FinalHash)
	putUint64(l.Head)
	putHash(l.HeadHash)
	buf[off] = byte(l.LastState)
	return buf
}

// DecodeSyncStateLayout parses a layout previously produced by Encode.
func DecodeSyncStateLayout(data []byte) (*SyncStateLayout, error) {
	if len(data) != layoutEncodedLen {
		return nil, fmt.Errorf("downloader: sync state layout has %d bytes, want %d", len(data), layoutEncodedLen)
	}
	l := &SyncStateLayout{}
	off := 0
	getUint64 := func() uint64 {
		v := binary.BigEndian.Uint64(data[off:])
		off += 8
		return v
	}
	getHash := func() common.Hash {
		var h common.Hash
		copy(h[:], data[off:off+32])
		off += 32
		return h
	}
	l.Coupler = getUint64()
	l.CouplerHash = getHash()
	l.Dangling = getUint64()
	l.DanglingParent = getHash()
	l.Final = getUint64()
	l.FinalHash = getHash()
	l.Head = getUint64()
	l.HeadHash = getHash()
	l.LastState = State(data[off])
	return l, nil
}
