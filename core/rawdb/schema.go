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


// Package rawdb defines the on-disk key layout the beacon sync core uses
// and the accessors built on top of it, following go-ethereum's own
// core/rawdb convention of a flat key-prefix scheme over a KeyValueStore
// rather than a relational or document layout.
package rawdb

import "encoding/binary"

var (
	// syncStateLayoutKey is the single fixed key the persisted
	// SyncStateLayout record lives under (§6: "single KV key").
	syncStateLayoutKey = []byte("beacon-sync-layout")

	// stashHeaderPrefix namespaces stashed header blobs, keyed by
	// number.BigEndian as specified in §6 (key = 0xBE ∥ number).
	stashHeaderPrefix = []byte{0xBE}
)

// encodeBlockNumber turns a block number into its big-endian byte
// representation, the same trick go-ethereum's schema.go uses so that
// numeric keys sort lexicographically the same as numerically.
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// stashHeaderKey returns the KV key under which the stashed header for
// the given block number is stored.
func stashHeaderKey(number uint64) []byte {
	return append(append([]byte{}, stashHeaderPrefix...), encodeBlockNumber(number)...)
}
