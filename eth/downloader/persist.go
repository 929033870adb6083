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
	"github.com/ethbeacon/beaconsync/core/rawdb"
)

// tryResume implements §4.H's resume logic: fetch the persisted layout
// and accept it only if B <= F, L < H, and lastState == collectingHeaders.
// Any other outcome discards the layout and cleans up stale stashed
// headers by walking backward from max(head, L) until the stash runs dry.
func (s *Syncer) tryResume() {
	raw := rawdb.ReadSyncStateLayout(s.fc.KV())
	if raw == nil {
		return
	}
	layout, err := DecodeSyncStateLayout(raw)
	if err != nil {
		s.log.Error("corrupt persisted sync state layout, discarding", "err", err)
		s.purgeStaleStash(0)
		return
	}

	b := s.fc.BaseNumber()
	l := s.fc.LatestNumber()
	if !(b <= layout.Final && l < layout.Head && layout.LastState == StateCollectingHeaders) {
		s.log.Info("discarding stale sync state on resume",
			"base", b, "latest", l, "final", layout.Final, "head", layout.Head, "lastState", layout.LastState)
		from := l
		if layout.Head > from {
			from = layout.Head
		}
		s.purgeStaleStash(from)
		return
	}

	s.layoutMu.Lock()
	s.coupler = layout.Coupler
	s.couplerHash = layout.CouplerHash
	s.dangling = layout.Dangling
	s.danglingParent = layout.DanglingParent
	s.final = layout.Final
	s.finalHash = layout.FinalHash
	s.head = layout.Head
	s.headHash = layout.HeadHash
	s.lastState = layout.LastState
	s.layoutMu.Unlock()

	// Testable property (§8): the reconstructed unprocessed header range
	// is exactly (C+1, D-1).
	if layout.Coupler+1 <= layout.Dangling-1 {
		s.hdrUnproc.Merge(Range{Lo: layout.Coupler + 1, Hi: layout.Dangling - 1})
	}
	s.hibernate.Store(false)
	s.log.Info("resumed sync session", "coupler", layout.Coupler, "dangling", layout.Dangling, "head", layout.Head)
}

// purgeStaleStash walks backward from `from`, unstashing headers until the
// first number with no stashed header (§4.H). The layout record is deleted
// once, before the walk, so a crash mid-purge does not resurrect a
// half-cleaned session; during the walk progress is logged every
// flushEvery headers and no further write or flush is issued.
func (s *Syncer) purgeStaleStash(from uint64) {
	if err := rawdb.DeleteSyncStateLayout(s.fc.KV()); err != nil {
		s.log.Error("failed to delete stale sync state layout", "err", err)
	}
	n := from
	const flushEvery = 4096
	purged := 0
	for n > 0 && rawdb.HasStashHeader(s.fc.KV(), n) {
		s.stash.Unstash(n)
		n--
		purged++
		if purged%flushEvery == 0 {
			s.log.Info("purging stale stashed headers", "remaining_from", n)
		}
	}
	s.hibernate.Store(true)
}
