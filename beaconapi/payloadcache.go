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


// Package beaconapi holds the thin Engine-API surfaces the consensus
// layer talks to that are peripheral to the sync core itself (§1/§9): a
// bounded payload cache, specified only as an external collaborator, not
// wired into the sync controller's decision logic.
package beaconapi

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/core/types"
)

// PayloadID identifies a payload build job, as handed out by
// engine_forkchoiceUpdated and looked up by engine_getPayload.
type PayloadID [8]byte

// Payload is the executable payload being built or already built for a
// PayloadID - this package treats it as an opaque assembled block, the
// same shape the sync core hands to Forkchoice.
type Payload = types.Block

// PayloadCache is the bounded {payloadId -> payload} and {hash -> header}
// pair described in §9: insertion-ordered eviction, capped at 10 entries
// each, used by the Engine API surface to serve getPayload/newPayload
// without holding every historical payload in memory.
type PayloadCache struct {
	mu       sync.Mutex
	payloads *simplelru.LRU[PayloadID, *Payload]
	headers  *simplelru.LRU[common.Hash, *types.Header]
}

const payloadCacheSize = 10

// NewPayloadCache returns an empty cache, each half capped at 10 entries.
func NewPayloadCache() *PayloadCache {
	payloads, _ := simplelru.NewLRU[PayloadID, *Payload](payloadCacheSize, nil)
	headers, _ := simplelru.NewLRU[common.Hash, *types.Header](payloadCacheSize, nil)
	return &PayloadCache{payloads: payloads, headers: headers}
}

// AddPayload records a newly built payload under id.
func (c *PayloadCache) AddPayload(id PayloadID, p *Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads.Add(id, p)
}

// GetPayload returns the payload previously recorded under id, if still
// cached.
func (c *PayloadCache) GetPayload(id PayloadID) (*Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloads.Peek(id)
}

// AddHeader records a header so newPayload calls can look it up by hash
// without re-deriving it.
func (c *PayloadCache) AddHeader(h *types.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Add(h.Hash(), h)
}

// GetHeader returns the header previously recorded under hash, if still
// cached.
func (c *PayloadCache) GetHeader(hash common.Hash) (*types.Header, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headers.Peek(hash)
}
