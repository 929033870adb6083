// Copyright 2024 The beaconsync Authors
// This file is part of beaconsync.
//
// beaconsync is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// beaconsync is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with beaconsync. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"sync"

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/types"
	"github.com/ethbeacon/beaconsync/ethdb"
)

// errNoWire is returned by the standalone binary's Wire stub: the real
// getBlockHeaders/getBlockBodies peer protocol is out of this
// repository's scope (§1) and is supplied by the rest of the node this
// engine is embedded in, not by this command-line demonstration.
var errNoWire = errors.New("beaconsync: no peer-to-peer wire configured")

// localForkChoice is the minimal ForkChoice this standalone binary runs
// against: a single in-process genesis-rooted chain backed by the pebble
// store, standing in for the real importer module (§1, out of scope)
// closely enough to let Start/Tick/Stop exercise the full state machine.
type localForkChoice struct {
	mu     sync.Mutex
	db     ethdb.KeyValueStore
	base   uint64
	latest *types.Header
}

func newStubForkChoice(db ethdb.KeyValueStore) *localForkChoice {
	genesis := &types.Header{Number: 0}
	return &localForkChoice{db: db, base: 0, latest: genesis}
}

func (f *localForkChoice) BaseNumber() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base
}

func (f *localForkChoice) LatestNumber() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest.Number
}

func (f *localForkChoice) LatestHash() common.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest.Hash()
}

func (f *localForkChoice) LatestHeader() *types.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *localForkChoice) HeaderByHash(hash common.Hash) (*types.Header, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest.Hash() == hash {
		return f.latest, true
	}
	return nil, false
}

func (f *localForkChoice) ImportBlock(block *types.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if block.Header.ParentHash != f.latest.Hash() {
		return errors.New("beaconsync: block does not extend local head")
	}
	f.latest = block.Header
	return nil
}

func (f *localForkChoice) ForkChoiceUpdate(headHash, finalHash common.Hash) error {
	return nil
}

func (f *localForkChoice) KV() ethdb.KeyValueStore { return f.db }

// stubWire is the standalone binary's placeholder Wire: it always
// reports no peer available, since the real peer-to-peer protocol is out
// of scope here (see errNoWire). A node embedding this engine supplies a
// real implementation instead of this stub.
type stubWire struct{}

func newStubWire() *stubWire { return &stubWire{} }

func (w *stubWire) HeadersFetchReversed(ctx context.Context, peer string, topHash common.Hash, topNumber uint64, count int) ([]*types.Header, error) {
	return nil, errNoWire
}

func (w *stubWire) BodiesFetch(ctx context.Context, peer string, hashes []common.Hash) ([]*types.Body, error) {
	return nil, errNoWire
}
