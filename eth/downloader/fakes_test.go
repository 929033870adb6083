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
	"errors"
	"sync"

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/types"
	"github.com/ethbeacon/beaconsync/ethdb"
	"github.com/ethbeacon/beaconsync/ethdb/memorydb"
)

// buildHeaderChain returns n headers for numbers first..first+n-1, each
// linked to the previous by ParentHash, the bottom header's parent set to
// parent.
func buildHeaderChain(first uint64, n int, parent common.Hash) []*types.Header {
	out := make([]*types.Header, n)
	prev := parent
	for i := 0; i < n; i++ {
		h := &types.Header{Number: first + uint64(i), ParentHash: prev, GasLimit: 1, TxHash: types.EmptyTxRoot}
		out[i] = h
		prev = h.Hash()
	}
	return out
}

// reverseHeaders returns a new slice in reverse order, leaving in
// unmodified.
func reverseHeaders(in []*types.Header) []*types.Header {
	out := make([]*types.Header, len(in))
	for i, h := range in {
		out[len(in)-1-i] = h
	}
	return out
}

// fakeForkChoice is a minimal in-memory ForkChoice used to drive the
// commit-pass and controller-transition tests without a real chain
// importer.
type fakeForkChoice struct {
	mu      sync.Mutex
	db      ethdb.KeyValueStore
	base    uint64
	latest  *types.Header
	known   map[common.Hash]*types.Header
	imports []*types.Block
	fcus    []common.Hash

	importErr error
	failAt    uint64
}

func newFakeForkChoice() *fakeForkChoice {
	genesis := &types.Header{Number: 0}
	f := &fakeForkChoice{
		db:     memorydb.New(),
		base:   0,
		latest: genesis,
		known:  make(map[common.Hash]*types.Header),
	}
	f.known[genesis.Hash()] = genesis
	return f
}

func (f *fakeForkChoice) BaseNumber() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base
}

func (f *fakeForkChoice) LatestNumber() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest.Number
}

func (f *fakeForkChoice) LatestHash() common.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest.Hash()
}

func (f *fakeForkChoice) LatestHeader() *types.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *fakeForkChoice) HeaderByHash(hash common.Hash) (*types.Header, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.known[hash]
	return h, ok
}

func (f *fakeForkChoice) ImportBlock(block *types.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.importErr != nil {
		return f.importErr
	}
	if f.failAt != 0 && block.NumberU64() == f.failAt {
		return errFakeWire
	}
	f.imports = append(f.imports, block)
	f.known[block.Hash()] = block.Header
	if block.NumberU64() > f.latest.Number {
		f.latest = block.Header
	}
	return nil
}

func (f *fakeForkChoice) ForkChoiceUpdate(headHash, finalHash common.Hash) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fcus = append(f.fcus, headHash)
	return nil
}

func (f *fakeForkChoice) KV() ethdb.KeyValueStore { return f.db }

// fakeWire serves headers/bodies from a pre-built ascending chain and lets
// tests inject failures.
type fakeWire struct {
	mu      sync.Mutex
	byNum   map[uint64]*types.Header
	bodies  map[common.Hash]*types.Body
	headErr error
	bodyErr error
}

func newFakeWire() *fakeWire {
	return &fakeWire{byNum: make(map[uint64]*types.Header), bodies: make(map[common.Hash]*types.Body)}
}

func (w *fakeWire) addHeaders(hdrs []*types.Header) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range hdrs {
		w.byNum[h.Number] = h
	}
}

func (w *fakeWire) addBody(h *types.Header, body *types.Body) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bodies[h.Hash()] = body
}

var errFakeWire = errors.New("fakewire: injected failure")

func (w *fakeWire) HeadersFetchReversed(ctx context.Context, peer string, topHash common.Hash, topNumber uint64, count int) ([]*types.Header, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.headErr != nil {
		return nil, w.headErr
	}
	var out []*types.Header
	for n := topNumber; len(out) < count; n-- {
		h, ok := w.byNum[n]
		if !ok {
			break
		}
		out = append(out, h)
		if n == 0 {
			break
		}
	}
	return out, nil
}

func (w *fakeWire) BodiesFetch(ctx context.Context, peer string, hashes []common.Hash) ([]*types.Body, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bodyErr != nil {
		return nil, w.bodyErr
	}
	out := make([]*types.Body, 0, len(hashes))
	for _, hash := range hashes {
		b, ok := w.bodies[hash]
		if !ok {
			break
		}
		out = append(out, b)
	}
	return out, nil
}

// emptyBody returns a body whose TxHash-matching shape is "empty".
func emptyBody() *types.Body { return &types.Body{} }

// newTestSyncer builds a Syncer wired to fake collaborators, with a config
// tuned small to keep tests fast and deterministic.
func newTestSyncer(fc ForkChoice, wire Wire) *Syncer {
	cfg := DefaultConfig
	cfg.NFetchHeadersBatch = 1 << 20
	cfg.NFetchHeadersRequest = 1 << 20
	cfg.NFetchBodiesBatch = 1 << 20
	cfg.NFetchBodiesRequest = 1 << 20
	return NewSyncer(fc, wire, cfg)
}
