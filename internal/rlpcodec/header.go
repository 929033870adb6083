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

package rlpcodec

import "fmt"

// HeaderFields is the canonical field order core/types.Header is encoded
// in. It is expressed here, rather than in core/types, to keep the wire
// format and the in-memory struct independently evolvable - mirroring how
// go-ethereum keeps rlp struct tags next to the type but treats the byte
// layout as the contract tests pin down, not the Go field order alone.
type HeaderFields struct {
	ParentHash [32]byte
	Root       [32]byte
	TxHash     [32]byte
	Number     uint64
	GasLimit   uint64
	GasUsed    uint64
	Time       uint64
	Extra      []byte
}

// EncodeHeaderFields RLP-encodes a header's canonical fields.
func EncodeHeaderFields(f HeaderFields) []byte {
	return EncodeList(
		EncodeBytes(f.ParentHash[:]),
		EncodeBytes(f.Root[:]),
		EncodeBytes(f.TxHash[:]),
		EncodeUint(f.Number),
		EncodeUint(f.GasLimit),
		EncodeUint(f.GasUsed),
		EncodeUint(f.Time),
		EncodeBytes(f.Extra),
	)
}

// DecodeHeaderFields is the inverse of EncodeHeaderFields.
func DecodeHeaderFields(buf []byte) (HeaderFields, error) {
	var f HeaderFields
	items, err := DecodeList(buf)
	if err != nil {
		return f, err
	}
	if len(items) != 8 {
		return f, fmt.Errorf("rlpcodec: header has %d fields, want 8", len(items))
	}
	parent, err := DecodeBytes(items[0])
	if err != nil {
		return f, err
	}
	root, err := DecodeBytes(items[1])
	if err != nil {
		return f, err
	}
	txHash, err := DecodeBytes(items[2])
	if err != nil {
		return f, err
	}
	copy(f.ParentHash[:], parent)
	copy(f.Root[:], root)
	copy(f.TxHash[:], txHash)
	if f.Number, err = DecodeUint(items[3]); err != nil {
		return f, err
	}
	if f.GasLimit, err = DecodeUint(items[4]); err != nil {
		return f, err
	}
	if f.GasUsed, err = DecodeUint(items[5]); err != nil {
		return f, err
	}
	if f.Time, err = DecodeUint(items[6]); err != nil {
		return f, err
	}
	if f.Extra, err = DecodeBytes(items[7]); err != nil {
		return f, err
	}
	return f, nil
}

