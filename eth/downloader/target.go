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

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/types"
)

// Target is the sync target pushed by the consensus layer (§3): the
// beacon head header, the finalised hash/number, and two flags -
// `changed` signals a fresh target to the controller, `locked` prevents a
// concurrent update while a header is being fetched for validation.
type Target struct {
	mu sync.Mutex

	consHead  *types.Header
	finalHash common.Hash
	final     uint64
	locked    bool
	changed   bool
}

// NewTarget returns an empty, unset target.
func NewTarget() *Target {
	return &Target{}
}

// Lock prevents concurrent target updates while a header fetched from the
// wire is being validated against the current target.
func (t *Target) Lock() {
	t.mu.Lock()
	t.locked = true
	t.mu.Unlock()
}

// Unlock releases the lock taken by Lock.
func (t *Target) Unlock() {
	t.mu.Lock()
	t.locked = false
	t.mu.Unlock()
}

// UpdateBeaconHeader is the RPC ingress callback (§4.G
// updateBeaconHeaderCB): it stores (head, finalHash) and sets Changed,
// but only if the incoming head is strictly greater than both the current
// head and the already-stored target head. Returns true if the update was
// accepted.
func (t *Target) UpdateBeaconHeader(head *types.Header, finalHash common.Hash, currentHead uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.locked {
		return false
	}
	if head.Number <= currentHead {
		return false
	}
	if t.consHead != nil && head.Number <= t.consHead.Number {
		return false
	}
	t.consHead = head
	t.finalHash = finalHash
	t.changed = true
	return true
}

// UpdateFinalBlockHeader is §4.G's updateFinalBlockHeader: accepts a
// finalised block number if it is not below base, recording it on the
// target. Returns whether it was accepted.
func (t *Target) UpdateFinalBlockHeader(final, base uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if final < base {
		return false
	}
	t.final = final
	return true
}

// Changed reports the changed flag without clearing it; the controller
// calls ClearChanged once it has acted on the fresh target.
func (t *Target) Changed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// ClearChanged clears the changed flag after the controller has acted on
// it.
func (t *Target) ClearChanged() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changed = false
}

// Snapshot returns a consistent copy of the target's fields for read-only
// use by the controller.
func (t *Target) Snapshot() (consHead *types.Header, finalHash common.Hash, final uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consHead, t.finalHash, t.final
}

// Reset clears the target entirely, called on hibernate (§4.G "any ->
// idle").
func (t *Target) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consHead = nil
	t.finalHash = common.Hash{}
	t.final = 0
	t.changed = false
	t.locked = false
}
