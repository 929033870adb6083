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


// Package downloader implements the beacon-chain-driven header/body sync
// engine: interval-set bookkeeping over unprocessed block ranges, staged
// queues for out-of-order chain/body assembly, a persistent sync-state
// layout, and the per-peer fetch loops and single-writer commit passes
// that drive blocks from a consensus-layer target into a Forkchoice
// importer.
package downloader

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/rawdb"
	"github.com/ethbeacon/beaconsync/log"
)

// Syncer is the sync controller (§4.G): it owns the layout anchors, the
// unprocessed range sets, the staged queues, the stash, the peer set and
// target, and drives state transitions from Tick.
type Syncer struct {
	fc   ForkChoice
	wire Wire
	cfg  Config
	log  log.Logger

	stash *HeaderStash

	hdrUnproc *RangeSet
	bdyUnproc *RangeSet

	hdrStaged *StagedQueue[*stagedHeaderChain]
	bdyStaged *StagedQueue[*stagedBlockList]

	peers  *PeerSet
	target *Target

	layoutMu       sync.Mutex
	coupler        uint64
	couplerHash    common.Hash
	dangling       uint64
	danglingParent common.Hash
	final          uint64
	finalHash      common.Hash
	head           uint64
	headHash       common.Hash
	lastState      State

	poolMode   atomic.Bool
	poolSignal atomic.Pointer[chan struct{}]

	hibernate atomic.Bool

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSyncer constructs a Syncer over the given Forkchoice/Wire
// collaborators and KV store.
func NewSyncer(fc ForkChoice, wire Wire, cfg Config) *Syncer {
	s := &Syncer{
		fc:        fc,
		wire:      wire,
		cfg:       cfg,
		log:       log.New("component", "downloader"),
		stash:     NewHeaderStash(fc.KV()),
		hdrUnproc: NewRangeSet(),
		bdyUnproc: NewRangeSet(),
		hdrStaged: NewStagedQueue[*stagedHeaderChain](),
		bdyStaged: NewStagedQueue[*stagedBlockList](),
		peers:     NewPeerSet(),
		target:    NewTarget(),
		lastState: StateIdle,
	}
	s.hibernate.Store(true)
	ch := make(chan struct{})
	s.poolSignal.Store(&ch)
	return s
}

// Peers exposes the peer set so the owning node can register/unregister
// connections.
func (s *Syncer) Peers() *PeerSet { return s.peers }

// Target exposes the sync target so RPC ingress can push updates.
func (s *Syncer) Target() *Target { return s.target }

// State returns the currently computed sync state (§4.D), a pure function
// of the live FC anchors and the persisted layout anchors.
func (s *Syncer) State() State {
	b := s.fc.BaseNumber()
	l := s.fc.LatestNumber()
	s.layoutMu.Lock()
	c, d, h := s.coupler, s.dangling, s.head
	s.layoutMu.Unlock()
	return ComputeState(b, l, c, d, h)
}

func (s *Syncer) layoutSnapshot() *SyncStateLayout {
	s.layoutMu.Lock()
	defer s.layoutMu.Unlock()
	return &SyncStateLayout{
		Coupler:        s.coupler,
		CouplerHash:    s.couplerHash,
		Dangling:       s.dangling,
		DanglingParent: s.danglingParent,
		Final:          s.final,
		FinalHash:      s.finalHash,
		Head:           s.head,
		HeadHash:       s.headHash,
		LastState:      s.lastState,
	}
}

// persistLayout writes the layout key, but only when no FC write
// transaction is open and the stash overflow is empty (§4.H).
func (s *Syncer) persistLayout() {
	s.stash.mu.Lock()
	pending := len(s.stash.overflow)
	s.stash.mu.Unlock()
	if s.fc.KV().Level() != 0 || pending != 0 {
		return
	}
	l := s.layoutSnapshot()
	if err := rawdb.WriteSyncStateLayout(s.fc.KV(), l.Encode()); err != nil {
		s.log.Error("failed to persist sync state layout", "err", err)
	}
}

// Start launches the controller under ctx: the per-peer fetch loops are
// spawned lazily as peers register, all under one errgroup so Stop
// cancels and waits for every worker.
func (s *Syncer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	s.ctx, s.cancel, s.group = gctx, cancel, g
	s.tryResume()
}

// Stop cancels every worker and waits for clean shutdown.
func (s *Syncer) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return s.group.Wait()
}

// RunPeer launches the header- and (once relevant) body-fetch loops for a
// newly registered peer. Called once per connected peer; it returns when
// ctx (the syncer's own context) is cancelled.
func (s *Syncer) RunPeer(id string) {
	p := s.peers.Register(id, &s.cfg)
	s.group.Go(func() error {
		return s.headerFetchLoop(s.ctx, id, p)
	})
	s.group.Go(func() error {
		return s.bodyFetchLoop(s.ctx, id, p)
	})
}

// Tick is invoked periodically by the owning scheduler (§6 tick()) and
// drives every state transition that is not itself triggered inline by a
// fetch-loop commit pass.
//
// The completion check is keyed off lastState rather than the freshly
// computed State(): ComputeState reports idle as soon as h<=l, which is
// exactly the moment blocksStagedImport finishes importing up to the
// target, so by the time Tick observes it the live state has already
// moved past processingBlocks. Gating the check on the previously
// recorded phase is what actually lets it fire.
func (s *Syncer) Tick() {
	s.stash.FlushOverflow()
	if s.poolMode.Load() {
		s.runPoolModeReorg()
		return
	}

	s.layoutMu.Lock()
	lastState, head := s.lastState, s.head
	s.layoutMu.Unlock()
	if lastState == StateProcessingBlocks && head != 0 && s.fc.LatestNumber() >= head {
		s.hibernateLocked("reached sync target")
		return
	}

	switch s.State() {
	case StateIdle:
		s.tryStartCollectingHeaders()
	case StateCollectingHeaders:
		// Transition to finishedHeaders is observed, not forced: it
		// happens naturally once a header commit sets D == C+1; the
		// next Tick (or State() call) will see it.
	case StateFinishedHeaders:
		s.tryLinkIntoFc()
	}
}

// tryStartCollectingHeaders implements §4.G's "idle -> collectingHeaders"
// transition.
func (s *Syncer) tryStartCollectingHeaders() {
	if !s.target.Changed() {
		return
	}
	consHead, finalHash, final := s.target.Snapshot()
	if final == 0 || consHead == nil {
		return
	}
	if s.hdrUnproc.Fragments() != 0 || s.bdyUnproc.Fragments() != 0 || s.hdrStaged.Len() != 0 || s.bdyStaged.Len() != 0 {
		panic("downloader: collectingHeaders started with non-empty queues")
	}
	b := s.fc.BaseNumber()

	s.layoutMu.Lock()
	s.coupler = b
	s.couplerHash = common.Hash{}
	s.dangling = consHead.Number
	s.danglingParent = consHead.ParentHash
	s.head = consHead.Number
	s.headHash = consHead.Hash()
	s.final = final
	s.finalHash = finalHash
	s.lastState = StateCollectingHeaders
	s.layoutMu.Unlock()

	s.stash.Stash(consHead.Number, [][]byte{consHead.Encode()})
	s.persistLayout()
	if consHead.Number > b+1 {
		s.hdrUnproc.Merge(Range{Lo: b + 1, Hi: consHead.Number - 1})
	}
	s.target.ClearChanged()
	s.hibernate.Store(false)
	s.log.Info("sync target accepted", "head", consHead.Number, "final", final)
}

// tryLinkIntoFc implements §4.G's "finishedHeaders -> processingBlocks"
// transition: search bn from min(L,C)+1 up to L+1 for a header whose
// parent hash FC already knows.
func (s *Syncer) tryLinkIntoFc() {
	l := s.fc.LatestNumber()

	s.layoutMu.Lock()
	c := s.coupler
	s.layoutMu.Unlock()

	lo := c
	if l < lo {
		lo = l
	}
	var linked uint64
	var found bool
	for bn := lo + 1; bn <= l+1; bn++ {
		hdr, ok := s.stash.Peek(bn)
		if !ok {
			continue
		}
		if _, known := s.fc.HeaderByHash(hdr.ParentHash); known {
			linked = bn - 1
			found = true
			break
		}
	}
	if !found {
		s.hibernateLocked("downloaded chain does not link into forkchoice")
		return
	}

	s.layoutMu.Lock()
	s.coupler = linked
	s.dangling = linked
	h := s.head
	s.lastState = StateProcessingBlocks
	s.layoutMu.Unlock()

	s.persistLayout()
	if h > linked {
		s.bdyUnproc.Merge(Range{Lo: linked + 1, Hi: h})
	}
	s.log.Info("header chain linked into forkchoice", "coupler", linked)
}

// hibernateLocked implements §4.G's "any -> idle" transition: reset target
// and layout, clear every queue and the stash.
func (s *Syncer) hibernateLocked(reason string) {
	s.target.Reset()
	s.layoutMu.Lock()
	head := s.head
	s.coupler, s.dangling, s.final, s.head = 0, 0, 0, 0
	s.couplerHash, s.danglingParent, s.finalHash, s.headHash = common.Hash{}, common.Hash{}, common.Hash{}, common.Hash{}
	s.lastState = StateIdle
	s.layoutMu.Unlock()

	s.hdrUnproc.Clear()
	s.bdyUnproc.Clear()
	s.hdrStaged.Clear()
	s.bdyStaged.Clear()
	s.stash.Clear()
	s.purgeStaleStash(head)
	if err := rawdb.DeleteSyncStateLayout(s.fc.KV()); err != nil {
		s.log.Error("failed to delete sync state layout", "err", err)
	}

	s.hibernate.Store(true)
	s.log.Info("sync hibernating", "reason", reason)
}

// runPoolModeReorg flushes the staged queue back down to the low-water
// mark and clears the flag. Tick runs it as soon as it sees poolMode set;
// it does not wait for the fetch loops to finish their current step.
func (s *Syncer) runPoolModeReorg() {
	for {
		k, v, ok := s.hdrStaged.Max()
		if !ok || s.hdrStaged.Len() <= s.cfg.HeadersStagedQueueLengthLwm {
			break
		}
		s.hdrStaged.Delete(k)
		s.hdrUnproc.Merge(Range{Lo: v.bottomNumber(), Hi: v.topNumber()})
	}
	s.poolMode.Store(false)
	old := s.poolSignal.Load()
	close(*old)
	fresh := make(chan struct{})
	s.poolSignal.Store(&fresh)
}

// poolModeCh returns the channel fetch loops select on to observe a
// pool-mode broadcast.
func (s *Syncer) poolModeCh() <-chan struct{} {
	return *s.poolSignal.Load()
}

// Stats implements the ticker-stats accessor of §6.
func (s *Syncer) Stats() TickerStats {
	s.layoutMu.Lock()
	c, d, h, f := s.coupler, s.dangling, s.head, s.final
	s.layoutMu.Unlock()

	var hdrTop, bdyBottom uint64
	if _, v, ok := s.hdrStaged.Max(); ok {
		hdrTop = v.topNumber()
	}
	if _, v, ok := s.bdyStaged.Min(); ok {
		bdyBottom = v.bottomNumber()
	}
	var hdrUnprocTop, bdyUnprocBottom uint64
	if r, err := s.hdrUnproc.Le(); err == nil {
		hdrUnprocTop = r.Hi
	}
	if r, err := s.bdyUnproc.Ge(); err == nil {
		bdyUnprocBottom = r.Lo
	}
	return TickerStats{
		Base:            s.fc.BaseNumber(),
		Latest:          s.fc.LatestNumber(),
		Coupler:         c,
		Dangling:        d,
		Head:            h,
		Target:          f,
		HeadOk:          h != 0,
		TargetOk:        f != 0,
		NHdrStaged:      s.hdrStaged.Len(),
		HdrStagedTop:    hdrTop,
		HdrUnprocTop:    hdrUnprocTop,
		NHdrUnprocessed: s.hdrUnproc.Total(),
		NHdrUnprocFragm: s.hdrUnproc.Fragments(),
		NBlkStaged:      s.bdyStaged.Len(),
		BlkStagedBottom: bdyBottom,
		BlkUnprocBottom: bdyUnprocBottom,
		NBlkUnprocessed: s.bdyUnproc.Total(),
		NBlkUnprocFragm: s.bdyUnproc.Fragments(),
		Reorg:           s.poolMode.Load(),
		NBuddies:        s.peers.Len(),
	}
}
