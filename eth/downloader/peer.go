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
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/time/rate"

	"github.com/ethbeacon/beaconsync/log"
)

// peerCtrl is a peer's lifecycle flag (§3 PeerState.ctrl).
type peerCtrl int

const (
	peerRunning peerCtrl = iota
	peerStopped
	peerZombie
)

func (c peerCtrl) String() string {
	switch c {
	case peerRunning:
		return "running"
	case peerStopped:
		return "stopped"
	case peerZombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// PeerState is the per-peer bookkeeping record (§3): separate response-
// and process-error counters for headers and bodies, a lifecycle flag, a
// slow-reply strike counter, and a rate limiter that paces requests.
//
// Slow peers are tracked by ObserveLatency: a reply slower than
// cfg.SlowPeerThreshold adds a strike, a faster one removes a strike, and
// a peer that collects three strikes is zombified the same way an
// error-threshold breach is, instead of being dropped on the first slow
// reply. The rate limiter plays no part in this; it only paces requests
// through Wait.
type PeerState struct {
	mu sync.Mutex

	id  string
	cfg *Config

	nHdrRespErrors int
	nHdrProcErrors int
	nBdyRespErrors int
	nBdyProcErrors int
	ctrl           peerCtrl

	limiter    *rate.Limiter
	slowTicks  int
	log        log.Logger
}

// NewPeerState returns a fresh, running peer record.
func NewPeerState(id string, cfg *Config) *PeerState {
	return &PeerState{
		id:      id,
		cfg:     cfg,
		ctrl:    peerRunning,
		limiter: rate.NewLimiter(rate.Every(time.Second), 4),
		log:     log.New("peer", id),
	}
}

// Stopped reports whether the controller should stop assigning new work
// to this peer (either explicitly stopped, or zombified).
func (p *PeerState) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl != peerRunning
}

// Zombie reports whether this peer is banished from immediate
// reconnection.
func (p *PeerState) Zombie() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl == peerZombie
}

// Stop marks the peer stopped, short of zombie banishment.
func (p *PeerState) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == peerRunning {
		p.ctrl = peerStopped
	}
}

func (p *PeerState) zombifyLocked(reason string) {
	if p.ctrl != peerZombie {
		p.ctrl = peerZombie
		p.log.Warn("peer banished", "reason", reason)
	}
}

// RecordHeaderRespErr counts a network-level response error on a header
// request, zombifying the peer past the configured threshold.
func (p *PeerState) RecordHeaderRespErr() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nHdrRespErrors++
	if p.nHdrRespErrors > p.cfg.FetchHeadersReqErrThresholdCount {
		p.zombifyLocked("header response error threshold")
	}
}

// RecordHeaderProcErr counts a protocol-level process error (chain gap or
// fork) on a header batch.
func (p *PeerState) RecordHeaderProcErr() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nHdrProcErrors++
	if p.nHdrProcErrors > p.cfg.FetchHeadersProcessErrThresholdCount {
		p.zombifyLocked("header process error threshold")
	}
}

// RecordBodyRespErr counts a network-level response error on a body
// request.
func (p *PeerState) RecordBodyRespErr() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nBdyRespErrors++
	if p.nBdyRespErrors > p.cfg.FetchBodiesReqErrThresholdCount {
		p.zombifyLocked("body response error threshold")
	}
}

// RecordBodyProcErr counts a protocol-level process error on a body list.
func (p *PeerState) RecordBodyProcErr() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nBdyProcErrors++
	if p.nBdyProcErrors > p.cfg.FetchBodiesProcessErrThresholdCount {
		p.zombifyLocked("body process error threshold")
	}
}

// ObserveLatency reports how long a completed request took, zombifying
// the peer once it is persistently slower than cfg.SlowPeerThreshold.
func (p *PeerState) ObserveLatency(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d > p.cfg.SlowPeerThreshold {
		p.slowTicks++
		if p.slowTicks >= 3 {
			p.zombifyLocked("slow peer")
		}
		return
	}
	if p.slowTicks > 0 {
		p.slowTicks--
	}
}

// Wait blocks until the peer's request limiter admits another request,
// the rate-limiting analogue of the spec's per-peer request pacing. ctx
// lets the caller's errgroup cancellation interrupt the wait.
func (p *PeerState) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// PeerSet is the set of currently active peer IDs, backed by
// deckarep/golang-set/v2, used by the controller to know how many buddies
// (nBuddies, §6) are available and to iterate over them when launching
// fetch loops.
type PeerSet struct {
	mu    sync.Mutex
	ids   mapset.Set[string]
	peers map[string]*PeerState
}

// NewPeerSet returns an empty peer set.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		ids:   mapset.NewSet[string](),
		peers: make(map[string]*PeerState),
	}
}

// Register adds a peer, returning its PeerState (existing or freshly
// created).
func (s *PeerSet) Register(id string, cfg *Config) *PeerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.peers[id]; ok {
		return p
	}
	p := NewPeerState(id, cfg)
	s.ids.Add(id)
	s.peers[id] = p
	return p
}

// Unregister drops a peer entirely (disconnect), distinct from Stop/Zombie
// which keep the record around.
func (s *PeerSet) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids.Remove(id)
	delete(s.peers, id)
}

// Active returns the IDs of peers that are neither stopped nor zombified.
func (s *PeerSet) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, s.ids.Cardinality())
	for id := range s.peers {
		if !s.peers[id].Stopped() {
			out = append(out, id)
		}
	}
	return out
}

// Len returns nBuddies: the total number of known peers, active or not.
func (s *PeerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.Cardinality()
}
