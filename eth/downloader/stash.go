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
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/rawdb"
	"github.com/ethbeacon/beaconsync/core/types"
	"github.com/ethbeacon/beaconsync/ethdb"
	"github.com/ethbeacon/beaconsync/log"
)

// overflowWatermark is the overflow map size above which HeaderStash logs
// a warning: the KV write-transaction that is forcing headers into memory
// has stayed open unusually long. It is instrumentation only, never an
// eviction trigger - evicting a stash entry would violate the invariant
// that every number in [D, H] is stashed (§8).
const overflowWatermark = 4096

// HeaderStash is the scratchpad of not-yet-committed headers described in
// §4.C: a number -> encoded-header map backed by the persistent KV store
// when it is writable, and by an in-memory overflow map otherwise.
type HeaderStash struct {
	mu       sync.Mutex
	db       ethdb.KeyValueStore
	overflow map[uint64][]byte

	// watch is a bounded tracker used purely to log unusually long
	// overflow growth; it never evicts entries (see overflowWatermark).
	watch *lru.Cache[uint64, struct{}]
	log   log.Logger
}

// NewHeaderStash creates a stash backed by db.
func NewHeaderStash(db ethdb.KeyValueStore) *HeaderStash {
	watch, _ := lru.New[uint64, struct{}](overflowWatermark)
	return &HeaderStash{
		db:       db,
		overflow: make(map[uint64][]byte),
		watch:    watch,
		log:      log.New("component", "stash"),
	}
}

func (s *HeaderStash) putLocked(number uint64, enc []byte) {
	if s.db.Writable() {
		if err := rawdb.WriteStashHeader(s.db, number, enc); err != nil {
			s.log.Error("failed to write stashed header", "number", number, "err", err)
		}
		return
	}
	s.overflow[number] = enc
	s.watch.Add(number, struct{}{})
	if s.watch.Len() >= overflowWatermark {
		s.log.Warn("header stash overflow map growing large", "entries", s.watch.Len())
	}
}

// Stash stores a reverse-contiguous run of encoded headers: revBlobs[i]
// is stored under number first+(len(revBlobs)-1-i), so revBlobs[0] is the
// top (highest) header's encoding and revBlobs[last] the bottom.
func (s *HeaderStash) Stash(first uint64, revBlobs [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(revBlobs)
	for i, blob := range revBlobs {
		number := first + uint64(n-1-i)
		s.putLocked(number, blob)
	}
}

// Peek returns the header stashed for number, if any, trying the overflow
// map first and falling back to the KV store - the "newer semantics" the
// spec's Open Question calls out as correct (§9).
func (s *HeaderStash) Peek(number uint64) (*types.Header, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enc, ok := s.overflow[number]; ok {
		h, err := types.DecodeHeader(enc)
		if err != nil {
			s.log.Error("corrupt overflow header", "number", number, "err", err)
			return nil, false
		}
		return h, true
	}
	enc := rawdb.ReadStashHeader(s.db, number)
	if enc == nil {
		return nil, false
	}
	h, err := types.DecodeHeader(enc)
	if err != nil {
		s.log.Error("corrupt stashed header", "number", number, "err", err)
		return nil, false
	}
	return h, true
}

// ParentHash returns the parent hash of the header stashed for number.
func (s *HeaderStash) ParentHash(number uint64) (common.Hash, bool) {
	h, ok := s.Peek(number)
	if !ok {
		return common.Hash{}, false
	}
	return h.ParentHash, true
}

// Unstash removes the header stashed for number, trying the overflow map
// first and deleting from whichever held the entry.
func (s *HeaderStash) Unstash(number uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.overflow[number]; ok {
		delete(s.overflow, number)
		s.watch.Remove(number)
		return
	}
	if err := rawdb.DeleteStashHeader(s.db, number); err != nil {
		s.log.Error("failed to delete stashed header", "number", number, "err", err)
	}
}

// FlushOverflow drains the overflow map into the KV store once the store
// is writable again, i.e. the FC write transaction that forced buffering
// has closed; while it is not writable the call does nothing. The
// controller invokes this at the start of every Tick.
func (s *HeaderStash) FlushOverflow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.db.Writable() || len(s.overflow) == 0 {
		return
	}
	for number, enc := range s.overflow {
		if err := rawdb.WriteStashHeader(s.db, number, enc); err != nil {
			s.log.Error("failed to flush overflow header", "number", number, "err", err)
			continue
		}
		delete(s.overflow, number)
		s.watch.Remove(number)
	}
}

// Clear drops the in-memory overflow scratchpad. Persistently stashed
// headers are removed individually via Unstash as part of the commit/
// import/cleanup flows (§4.H), not by a blanket wipe here.
func (s *HeaderStash) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overflow = make(map[uint64][]byte)
	s.watch.Purge()
}
