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

import "time"

// Config holds the recognized tunables of §6, loadable from a TOML config
// file (github.com/naoina/toml, see cmd/beaconsync) and overridable by CLI
// flags. Field names match the toml keys the config file uses.
type Config struct {
	// NFetchHeadersBatch is the top-level per-peer header reservation
	// drawn from the unprocessed range set in one borrow.
	NFetchHeadersBatch int `toml:"nFetchHeadersBatch"`
	// NFetchHeadersRequest is the per-network-request header count a
	// borrowed batch is chunked into.
	NFetchHeadersRequest int `toml:"nFetchHeadersRequest"`
	// NFetchBodiesBatch is the top-level per-peer body reservation.
	NFetchBodiesBatch int `toml:"nFetchBodiesBatch"`
	// NFetchBodiesRequest is the per-network-request body count.
	NFetchBodiesRequest int `toml:"nFetchBodiesRequest"`

	// FetchHeadersReqErrThresholdCount is the per-peer network-error
	// count above which the peer is zombified, for headers.
	FetchHeadersReqErrThresholdCount int `toml:"fetchHeadersReqErrThresholdCount"`
	// FetchHeadersProcessErrThresholdCount is the per-peer protocol
	// process-error count above which the peer is zombified, for
	// headers.
	FetchHeadersProcessErrThresholdCount int `toml:"fetchHeadersProcessErrThresholdCount"`
	// FetchBodiesReqErrThresholdCount mirrors the above for bodies.
	FetchBodiesReqErrThresholdCount int `toml:"fetchBodiesReqErrThresholdCount"`
	// FetchBodiesProcessErrThresholdCount mirrors the above for bodies.
	FetchBodiesProcessErrThresholdCount int `toml:"fetchBodiesProcessErrThresholdCount"`

	// HeadersStagedQueueLengthLwm/Hwm bound the staged header queue;
	// crossing Hwm triggers pool-mode, which flushes back down to Lwm.
	HeadersStagedQueueLengthLwm int `toml:"headersStagedQueueLengthLwm"`
	HeadersStagedQueueLengthHwm int `toml:"headersStagedQueueLengthHwm"`

	// FinaliserChainLengthMax is how many imported blocks elapse
	// between ForkChoiceUpdate calls during body import.
	FinaliserChainLengthMax int `toml:"finaliserChainLengthMax"`

	// AsyncThreadSwitchTimeSlot is the cooperative sleep duration a
	// fetch loop observes after certain failures, translated here into
	// a real time.Duration since Go goroutines do not need it for
	// correctness - it remains as backoff, matching its origin intent.
	AsyncThreadSwitchTimeSlot time.Duration `toml:"asyncThreadSwitchTimeSlot"`

	// SlowPeerThreshold is the per-request latency above which a
	// responding peer is classified as a zombie candidate (§5
	// "Timeouts").
	SlowPeerThreshold time.Duration `toml:"slowPeerThreshold"`
}

// DefaultConfig mirrors the magnitudes go-ethereum's own skeleton/beacon
// sync downloader uses for the equivalent tunables.
var DefaultConfig = Config{
	NFetchHeadersBatch:                   512,
	NFetchHeadersRequest:                 192,
	NFetchBodiesBatch:                    512,
	NFetchBodiesRequest:                  128,
	FetchHeadersReqErrThresholdCount:     5,
	FetchHeadersProcessErrThresholdCount: 3,
	FetchBodiesReqErrThresholdCount:      5,
	FetchBodiesProcessErrThresholdCount:  3,
	HeadersStagedQueueLengthLwm:          16,
	HeadersStagedQueueLengthHwm:          64,
	FinaliserChainLengthMax:              32,
	AsyncThreadSwitchTimeSlot:            50 * time.Millisecond,
	SlowPeerThreshold:                    15 * time.Second,
}
