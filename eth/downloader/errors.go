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

import "errors"

// Sentinel errors for the taxonomy in §7: everything here names a
// data-dependent, locally recoverable fault class. The fetch loops and the
// controller do not return these values; they handle such faults in place
// through PeerState counters, boolean results, range-set merges and log
// lines. Invariant violations (duplicate staged-queue key,
// commit-time overlap) are not modeled as errors - they panic, the Go
// idiom for "abort the process" (see StagedQueue.Insert).
var (
	// errNetworkResponse covers timeouts, transport drops, and empty
	// replies where at least one header/body was expected.
	errNetworkResponse = errors.New("downloader: network response error")

	// errChainGap means the returned headers are not contiguous by
	// decreasing block number.
	errChainGap = errors.New("downloader: header batch has a number gap")

	// errChainForked means a header's hash does not equal the next
	// header's parentHash, or the batch's top does not match the
	// expected anchor hash in deterministic mode.
	errChainForked = errors.New("downloader: header batch fails chain-extension check")

	// errBodyRootMismatch means a body's shape disagrees with its
	// header (transactionsRoot emptiness).
	errBodyRootMismatch = errors.New("downloader: body does not match header root")

	// errStashMiss means a header expected in the stash during body
	// pre-population was not found; triggers a pool-mode reorg of the
	// body range.
	errStashMiss = errors.New("downloader: stash miss during body pre-population")

	// errStagedHashMismatch means a staged chain's top hash does not
	// equal the stash's current dangling parent at commit time.
	errStagedHashMismatch = errors.New("downloader: staged chain hash mismatch at commit")

	// errImportFailed names a Forkchoice ImportBlock/ForkChoiceUpdate
	// failure.
	errImportFailed = errors.New("downloader: forkchoice import failed")

	// errStaleState means a resumed layout failed the consistency
	// checks in §4.H and must be discarded.
	errStaleState = errors.New("downloader: persisted sync state is stale")

	// errNoLinkage means finishedHeaders could not find any header in
	// (min(L,C), L+1] whose parent is known to FC.
	errNoLinkage = errors.New("downloader: downloaded chain does not link into forkchoice")

	// errSyncerStopped names an operation attempted after Stop.
	errSyncerStopped = errors.New("downloader: syncer is stopped")
)
