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


// Package downloader drives the beacon-chain-directed header/body sync:
// it watches the gap between the local chain tip and a consensus-layer
// target, fetches headers backward by parent hash and bodies forward by
// hash, and commits both through a Forkchoice importer, surviving
// restarts via a small persisted layout record.
//
// The package is organized leaves-first: rangeset.go and unprocessed.go
// hold the interval-set algebra; stagedqueue.go the sorted staging maps;
// stash.go the header scratchpad; layout.go the persisted state and its
// pure transition function; peer.go and target.go the per-peer and
// per-session bookkeeping; headerfetch.go, bodyfetch.go and controller.go
// the concurrent fetch loops and the state machine that drives them; and
// persist.go the resume/cleanup path.
package downloader
