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


// Package types defines the block header and body structures the beacon
// sync engine downloads, stages, and hands to the Forkchoice importer.
package types

import (
	"math/big"
	"sync/atomic"

	"github.com/ethbeacon/beaconsync/common"
	"github.com/ethbeacon/beaconsync/crypto"
	"github.com/ethbeacon/beaconsync/internal/rlpcodec"
)

// EmptyTxRoot is the root hash of an empty transaction trie, the value
// StagedBlockList body validation compares transactionsRoot against
// (§4.F point 5 of the spec).
var EmptyTxRoot = common.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// Header is the subset of an Ethereum block header the sync engine needs
// to validate chain-extension and to hand to Forkchoice. Fields are kept
// deliberately narrower than upstream go-ethereum's full header (no
// consensus-engine fields this core never inspects), per the "no
// speculative surface" rule this repository's authors apply elsewhere.
type Header struct {
	ParentHash common.Hash `json:"parentHash"`
	Root       common.Hash `json:"stateRoot"`
	TxHash     common.Hash `json:"transactionsRoot"`
	Number     uint64      `json:"number"`
	GasLimit   uint64      `json:"gasLimit"`
	GasUsed    uint64      `json:"gasUsed"`
	Time       uint64      `json:"timestamp"`
	Extra      []byte      `json:"extraData"`

	hash atomic.Pointer[common.Hash]
}

// Fields exposes the header's canonical encode/hash fields to rlpcodec
// without that package importing this one (avoiding an import cycle).
func (h *Header) Fields() rlpcodec.HeaderFields {
	return rlpcodec.HeaderFields{
		ParentHash: h.ParentHash,
		Root:       h.Root,
		TxHash:     h.TxHash,
		Number:     h.Number,
		GasLimit:   h.GasLimit,
		GasUsed:    h.GasUsed,
		Time:       h.Time,
		Extra:      h.Extra,
	}
}

// FromFields builds a Header from its decoded canonical fields.
func FromFields(f rlpcodec.HeaderFields) *Header {
	return &Header{
		ParentHash: f.ParentHash,
		Root:       f.Root,
		TxHash:     f.TxHash,
		Number:     f.Number,
		GasLimit:   f.GasLimit,
		GasUsed:    f.GasUsed,
		Time:       f.Time,
		Extra:      f.Extra,
	}
}

// Encode returns the canonical RLP encoding of the header, used when
// stashing it and when hashing it.
func (h *Header) Encode() []byte {
	return rlpcodec.EncodeHeaderFields(h.Fields())
}

// DecodeHeader parses a header previously produced by Header.Encode.
func DecodeHeader(enc []byte) (*Header, error) {
	f, err := rlpcodec.DecodeHeaderFields(enc)
	if err != nil {
		return nil, err
	}
	return FromFields(f), nil
}

// Hash returns the Keccak256 hash of the canonical encoding of the header,
// memoized after the first call the way go-ethereum's Header.Hash does.
func (h *Header) Hash() common.Hash {
	if p := h.hash.Load(); p != nil {
		return *p
	}
	hash := crypto.Keccak256Hash(h.Encode())
	h.hash.Store(&hash)
	return hash
}

// Copy returns a deep copy safe to mutate independently of h.
func (h *Header) Copy() *Header {
	cp := *h
	cp.hash = atomic.Pointer[common.Hash]{}
	cp.Extra = append([]byte(nil), h.Extra...)
	return &cp
}

// Withdrawal is a validator withdrawal carried in a block body, present
// only so StagedBlockList round-trips post-Shanghai bodies faithfully.
type Withdrawal struct {
	Index     uint64
	Validator uint64
	Address   common.Address
	Amount    uint64
}

// Body is the non-header portion of a block: transactions, uncle
// headers, and withdrawals. This core treats transactions/uncles as
// opaque encoded blobs - it never executes or re-derives them, only
// checks their root against the header (§4.F).
type Body struct {
	Transactions [][]byte
	Uncles       []*Header
	Withdrawals  []*Withdrawal
}

// Block pairs a Header with its Body, the unit StagedBlockList and the FC
// importer operate on.
type Block struct {
	Header *Header
	Body   *Body
}

func NewBlock(header *Header, body *Body) *Block {
	return &Block{Header: header, Body: body}
}

func (b *Block) NumberU64() uint64      { return b.Header.Number }
func (b *Block) Hash() common.Hash      { return b.Header.Hash() }
func (b *Block) ParentHash() common.Hash { return b.Header.ParentHash }

// BigNumber returns the header number as a *big.Int, for callers (e.g. FC
// facades mirroring go-ethereum's own API) that still speak big.Int.
func (h *Header) BigNumber() *big.Int { return new(big.Int).SetUint64(h.Number) }
