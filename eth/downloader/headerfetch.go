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
	"time"

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/types"
)

// headerFetchLoop is the per-peer header-fetch task of §4.E, run as a
// goroutine for as long as the peer is connected. It idles whenever the
// sync state is not collectingHeaders, and otherwise repeatedly borrows a
// batch from the unprocessed header range, fetches it in chunks, stages
// the result, and runs a commit pass.
func (s *Syncer) headerFetchLoop(ctx context.Context, peerID string, p *PeerState) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if p.Stopped() {
			return nil
		}
		if s.State() != StateCollectingHeaders {
			if !s.sleepOrDone(ctx, s.cfg.AsyncThreadSwitchTimeSlot) {
				return nil
			}
			continue
		}
		if s.poolMode.Load() {
			select {
			case <-ctx.Done():
				return nil
			case <-s.poolModeCh():
			}
			continue
		}

		borrowed, ok := s.borrowHeaderRange()
		if !ok {
			if !s.sleepOrDone(ctx, s.cfg.AsyncThreadSwitchTimeSlot) {
				return nil
			}
			continue
		}

		s.fetchAndStageHeaders(ctx, peerID, p, borrowed)
		s.headersStagedProcess()
		s.maybeEnterPoolMode()
	}
}

// sleepOrDone sleeps d unless ctx is cancelled first, returning false on
// cancellation.
func (s *Syncer) sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// borrowHeaderRange draws up to cfg.NFetchHeadersBatch from the top of the
// unprocessed header range set (§4.E point 1).
func (s *Syncer) borrowHeaderRange() (Range, bool) {
	r, err := s.hdrUnproc.Le()
	if err != nil {
		return Range{}, false
	}
	lo := r.Lo
	if r.Len() > uint64(s.cfg.NFetchHeadersBatch) {
		lo = r.Hi - uint64(s.cfg.NFetchHeadersBatch) + 1
	}
	borrowed := Range{Lo: lo, Hi: r.Hi}
	s.hdrUnproc.Reduce(borrowed)
	return borrowed, true
}

// headerFetchMode selects deterministic vs. opportunistic mode (§4.E
// point 2): deterministic when the top of the borrowed interval is
// exactly D-1, i.e. we hold the parent hash of D.
func (s *Syncer) headerFetchMode(borrowed Range) (deterministic bool, anchorHash common.Hash) {
	s.layoutMu.Lock()
	d, dp := s.dangling, s.danglingParent
	s.layoutMu.Unlock()
	if d != 0 && borrowed.Hi == d-1 {
		return true, dp
	}
	return false, common.Hash{}
}

// fetchAndStageHeaders performs the chunked request (§4.E point 3),
// validates chain extension (point 4), and stages the outcome (point 5).
func (s *Syncer) fetchAndStageHeaders(ctx context.Context, peerID string, p *PeerState, borrowed Range) {
	deterministic, anchorHash := s.headerFetchMode(borrowed)

	var collected []*types.Header // descending by number, collected[0] is the top
	topNumber := borrowed.Hi
	topHash := anchorHash
	remaining := borrowed

	for !remaining.empty() {
		count := int(remaining.Len())
		if count > s.cfg.NFetchHeadersRequest {
			count = s.cfg.NFetchHeadersRequest
		}
		reqTopHash := common.Hash{}
		if deterministic || len(collected) > 0 {
			reqTopHash = topHash
		}

		start := time.Now()
		hdrs, err := s.wire.HeadersFetchReversed(ctx, peerID, reqTopHash, topNumber, count)
		p.ObserveLatency(time.Since(start))
		if err != nil || len(hdrs) == 0 {
			p.RecordHeaderRespErr()
			break
		}

		ok := s.checkChainExtension(hdrs, topNumber, reqTopHash, deterministic && len(collected) == 0)
		if !ok {
			p.RecordHeaderProcErr()
			break
		}

		collected = append(collected, hdrs...)
		last := hdrs[len(hdrs)-1]
		topNumber = last.Number - 1
		topHash = last.ParentHash
		remaining = Range{Lo: remaining.Lo, Hi: topNumber}

		if len(hdrs) < count {
			// Peer delivered fewer than requested: stop this pass,
			// whatever is left over returns to unprocessed below.
			break
		}
	}

	switch {
	case len(collected) == 0:
		s.hdrUnproc.Merge(borrowed)
		if p.Stopped() {
			return
		}
	case uint64(len(collected)) == borrowed.Len():
		chain := &stagedHeaderChain{
			parentHash: collected[len(collected)-1].ParentHash,
			hash:       collected[0].Hash(),
			revHdrs:    collected,
		}
		s.hdrStaged.Insert(chain.topNumber(), chain)
	default:
		// Partial success: keep what we have, return the unused
		// bottom of the borrowed interval.
		chain := &stagedHeaderChain{
			parentHash: collected[len(collected)-1].ParentHash,
			hash:       collected[0].Hash(),
			revHdrs:    collected,
		}
		s.hdrStaged.Insert(chain.topNumber(), chain)
		unused := Range{Lo: borrowed.Lo, Hi: collected[len(collected)-1].Number - 1}
		if !unused.empty() {
			s.hdrUnproc.Merge(unused)
		}
	}
}

// checkChainExtension validates a single reversed header batch (§4.E
// point 4): contiguity without gaps, each link's hash equal to the next
// header's parentHash, and - in deterministic mode, on the first
// sub-request only - the batch top's hash equal to the expected anchor.
func (s *Syncer) checkChainExtension(hdrs []*types.Header, expectTop uint64, expectTopParent common.Hash, checkAnchor bool) bool {
	if hdrs[0].Number != expectTop {
		return false
	}
	for i := 0; i < len(hdrs)-1; i++ {
		if hdrs[i].Number != hdrs[i+1].Number+1 {
			return false
		}
		if hdrs[i+1].Hash() != hdrs[i].ParentHash {
			return false
		}
	}
	if checkAnchor && hdrs[0].Hash() != expectTopParent && expectTopParent != (common.Hash{}) {
		return false
	}
	return true
}

// headersStagedProcess is the single-writer commit pass of §4.E point 6:
// repeatedly take the staged entry with the largest key and, if it chains
// correctly onto the current dangling parent, stash it and advance D.
func (s *Syncer) headersStagedProcess() {
	for {
		k, chain, ok := s.hdrStaged.Max()
		if !ok {
			return
		}
		s.layoutMu.Lock()
		d, dp := s.dangling, s.danglingParent
		s.layoutMu.Unlock()

		if k+1 < d {
			return // gap: nothing more to commit yet
		}
		if k+1 == d && chain.hash == dp {
			s.hdrStaged.Delete(k)
			blobs := make([][]byte, len(chain.revHdrs))
			for i, h := range chain.revHdrs {
				blobs[i] = h.Encode()
			}
			s.stash.Stash(chain.bottomNumber(), blobs)
			bottom := chain.bottomNumber()
			s.layoutMu.Lock()
			s.dangling = bottom
			s.danglingParent = chain.parentHash
			s.layoutMu.Unlock()
			s.persistLayout()
			continue
		}
		// Hash mismatch or the entry doesn't directly couple onto D
		// yet: discard it and return its range to unprocessed - it
		// may have come from a peer racing another chain.
		s.hdrStaged.Delete(k)
		s.hdrUnproc.Merge(Range{Lo: chain.bottomNumber(), Hi: chain.topNumber()})
	}
}

// maybeEnterPoolMode sets the pool-mode flag once the staged header queue
// crosses its high-water mark (§4.E "Pool-mode trigger").
func (s *Syncer) maybeEnterPoolMode() {
	if s.hdrStaged.Len() > s.cfg.HeadersStagedQueueLengthHwm {
		s.poolMode.Store(true)
	}
}
