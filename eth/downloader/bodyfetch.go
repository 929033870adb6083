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

// bodyFetchLoop is the per-peer body-fetch task of §4.F, symmetric to
// headerFetchLoop but forward: it borrows from the bottom of the
// unprocessed body range, fetches bodies keyed by stashed headers, stages
// the result, and drives the import commit pass.
func (s *Syncer) bodyFetchLoop(ctx context.Context, peerID string, p *PeerState) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if p.Stopped() {
			return nil
		}
		if s.State() != StateProcessingBlocks {
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

		borrowed, ok := s.borrowBodyRange()
		if !ok {
			if !s.sleepOrDone(ctx, s.cfg.AsyncThreadSwitchTimeSlot) {
				return nil
			}
			continue
		}

		s.fetchAndStageBodies(ctx, peerID, p, borrowed)
		s.blocksStagedImport()
	}
}

// borrowBodyRange draws up to cfg.NFetchBodiesBatch from the bottom of
// the unprocessed body range set (§4.F point 1).
func (s *Syncer) borrowBodyRange() (Range, bool) {
	r, err := s.bdyUnproc.Ge()
	if err != nil {
		return Range{}, false
	}
	hi := r.Hi
	if r.Len() > uint64(s.cfg.NFetchBodiesBatch) {
		hi = r.Lo + uint64(s.cfg.NFetchBodiesBatch) - 1
	}
	borrowed := Range{Lo: r.Lo, Hi: hi}
	s.bdyUnproc.Reduce(borrowed)
	return borrowed, true
}

// fetchAndStageBodies pre-populates headers from the stash, requests
// bodies, validates their shape, and stages the assembled block list
// (§4.F points 2-6).
func (s *Syncer) fetchAndStageBodies(ctx context.Context, peerID string, p *PeerState, borrowed Range) {
	headers := make([]*types.Header, 0, borrowed.Len())
	for n := borrowed.Lo; n <= borrowed.Hi; n++ {
		hdr, ok := s.stash.Peek(n)
		if !ok {
			s.poolMode.Store(true)
			s.bdyUnproc.Merge(borrowed)
			return
		}
		headers = append(headers, hdr)
	}

	hashes := make([]common.Hash, len(headers))
	for i, hdr := range headers {
		hashes[i] = hdr.Hash()
	}

	start := time.Now()
	bodies, err := s.wire.BodiesFetch(ctx, peerID, hashes)
	p.ObserveLatency(time.Since(start))
	if err != nil || len(bodies) == 0 {
		p.RecordBodyRespErr()
		s.bdyUnproc.Merge(borrowed)
		return
	}

	n := len(bodies)
	for i, body := range bodies {
		empty := len(body.Transactions) == 0
		wantEmpty := headers[i].TxHash == types.EmptyTxRoot
		if empty != wantEmpty {
			p.RecordBodyProcErr()
			n = i
			break
		}
	}
	if n < len(headers) {
		bodies = bodies[:n]
	}
	if n == 0 {
		s.bdyUnproc.Merge(borrowed)
		return
	}

	blocks := make([]*types.Block, n)
	for i := 0; i < n; i++ {
		blocks[i] = types.NewBlock(headers[i], bodies[i])
	}
	s.bdyStaged.Insert(blocks[0].NumberU64(), &stagedBlockList{blocks: blocks})

	if n < len(headers) {
		unused := Range{Lo: borrowed.Lo + uint64(n), Hi: borrowed.Hi}
		s.bdyUnproc.Merge(unused)
	}
}

// blocksStagedImport is the single-writer commit pass of §4.F: take the
// entry with the smallest key and import its blocks one by one into FC.
func (s *Syncer) blocksStagedImport() {
	for {
		k, list, ok := s.bdyStaged.Min()
		if !ok {
			return
		}
		l := s.fc.LatestNumber()
		if l+1 < k {
			s.bdyUnproc.Merge(Range{Lo: l + 1, Hi: k - 1})
			return
		}
		s.bdyStaged.Delete(k)
		s.importStagedBlocks(list, l)
	}
}

// importStagedBlocks imports one staged list's blocks in order, honoring
// the base-number skip, rollback-on-failure, periodic ForkChoiceUpdate,
// and per-block unstash described in §4.F's commit pass. latest is the
// FC head number observed by the caller: a block already at or below it
// was imported out of band (e.g. by a concurrent importer) and must be
// skipped the same way a block at or below base is, or ImportBlock would
// see it resubmitted as if it were new.
func (s *Syncer) importStagedBlocks(list *stagedBlockList, latest uint64) {
	s.layoutMu.Lock()
	finalNumber := s.final
	finalHash := s.finalHash
	s.layoutMu.Unlock()

	b := s.fc.BaseNumber()
	skipThreshold := b
	if latest > skipThreshold {
		skipThreshold = latest
	}
	imported := 0
	var lastHash common.Hash

	for i, block := range list.blocks {
		if block.NumberU64() <= skipThreshold {
			s.stash.Unstash(block.NumberU64())
			continue
		}
		if err := s.fc.ImportBlock(block); err != nil {
			s.log.Warn("block import failed", "number", block.NumberU64(), "err", err)
			tail := list.blocks[i:]
			s.bdyUnproc.Merge(Range{Lo: tail[0].NumberU64(), Hi: tail[len(tail)-1].NumberU64()})
			return
		}
		lastHash = block.Hash()
		s.stash.Unstash(block.NumberU64())
		imported++

		if imported%s.cfg.FinaliserChainLengthMax == 0 || i == len(list.blocks)-1 {
			fh := lastHash
			if finalNumber != 0 && block.NumberU64() >= finalNumber {
				fh = finalHash
			}
			if err := s.fc.ForkChoiceUpdate(lastHash, fh); err != nil {
				s.log.Warn("fork choice update failed", "err", err)
			}
		}
	}
}
