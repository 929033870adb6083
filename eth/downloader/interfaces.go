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
	"context"

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/types"
	"github.com/ethbeacon/beaconsync/ethdb"
)

// ForkChoice is the subset of the node's import/chain-head module the core
// consumes (§6): base/latest accessors for the local chain, header lookup
// by hash, block import, and fork-choice update. It is implemented
// elsewhere in this node (out of scope per §1) - here it is only the
// boundary interface plus whatever fakes the tests need.
type ForkChoice interface {
	// BaseNumber is B: the lowest block number known to the importer.
	BaseNumber() uint64
	// LatestNumber is L: the current head number imported by FC.
	LatestNumber() uint64
	// LatestHash is the hash of the block at LatestNumber.
	LatestHash() common.Hash
	// LatestHeader is the header at LatestNumber.
	LatestHeader() *types.Header
	// HeaderByHash looks up a header FC already knows, used by
	// linkIntoFc to find where a downloaded chain couples in.
	HeaderByHash(hash common.Hash) (*types.Header, bool)
	// ImportBlock hands a fully assembled block to the importer.
	ImportBlock(block *types.Block) error
	// ForkChoiceUpdate advances FC's notion of head/finalised.
	ForkChoiceUpdate(headHash, finalHash common.Hash) error

	// KV exposes the key-value facade the stash and layout persist
	// through.
	KV() ethdb.KeyValueStore
}

// Wire is the subset of the peer-to-peer protocol module the core
// consumes (§6). The core assumes reverse order for headers (result[0]
// is the top) and order-matching for bodies.
type Wire interface {
	// HeadersFetchReversed requests up to count headers counting down
	// from topNumber, addressed by topHash when it is non-zero
	// (deterministic mode) or by topNumber alone (opportunistic mode).
	HeadersFetchReversed(ctx context.Context, peer string, topHash common.Hash, topNumber uint64, count int) ([]*types.Header, error)
	// BodiesFetch requests bodies for exactly the given hashes, in
	// order.
	BodiesFetch(ctx context.Context, peer string, hashes []common.Hash) ([]*types.Body, error)
}

// BeaconTargetCB is the RPC ingress callback signature (§6): invoked
// whenever the consensus layer publishes a new (head, finalisedHash)
// pair. This package declares the signature only and registers no
// callback of this type; Target.UpdateBeaconHeader handles such pairs.
type BeaconTargetCB func(head *types.Header, finalHash common.Hash)

// TickerStats is the accessor structure exposed to an external
// ticker/metrics reporter (§6), mirroring the field set the spec pins
// exactly.
type TickerStats struct {
	Base    uint64
	Latest  uint64
	Coupler uint64
	Dangling uint64
	Head    uint64
	Target  uint64
	HeadOk  bool
	TargetOk bool

	NHdrStaged      int
	HdrStagedTop    uint64
	HdrUnprocTop    uint64
	NHdrUnprocessed uint64
	NHdrUnprocFragm int

	NBlkStaged      int
	BlkStagedBottom uint64
	BlkUnprocBottom uint64
	NBlkUnprocessed uint64
	NBlkUnprocFragm int

	Reorg    bool
	NBuddies int
}
