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


// Package rlpcodec implements the slice of Ethereum's canonical Recursive
// Length Prefix encoding this repository needs to hash and persist
// headers. It is deliberately narrow (no reflection-based general encoder):
// go-ethereum's own rlp package was not present in the source material
// this module was built from (see DESIGN.md), so the wire format is
// rebuilt here from the well-known RLP rules - a length-prefixed byte
// string is the base case, a list is a length-prefixed concatenation of
// encoded items - applied directly to the one struct this repository
// needs to encode: core/types.Header.
package rlpcodec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedEOF is returned when a buffer ends mid-item.
	ErrUnexpectedEOF = errors.New("rlpcodec: unexpected end of input")
	// ErrNotAList is returned when a list was expected but a string was found.
	ErrNotAList = errors.New("rlpcodec: expected list")
)

// EncodeBytes RLP-encodes a single byte string.
func EncodeBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	return append(encodeLength(len(b), 0x80, 0xb7), b...)
}

// EncodeUint RLP-encodes x as its minimal big-endian byte representation.
func EncodeUint(x uint64) []byte {
	if x == 0 {
		return EncodeBytes(nil)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], x)
	i := 0
	for i < 8 && buf[i] == 0 {
		i++
	}
	return EncodeBytes(buf[i:])
}

// EncodeList RLP-encodes a list whose items have already been encoded.
func EncodeList(items ...[]byte) []byte {
	var total int
	for _, it := range items {
		total += len(it)
	}
	out := encodeLength(total, 0xc0, 0xf7)
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func encodeLength(n int, shortOffset, longOffset byte) []byte {
	if n < 56 {
		return []byte{shortOffset + byte(n)}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	i := 0
	for i < 8 && buf[i] == 0 {
		i++
	}
	lenBytes := buf[i:]
	out := make([]byte, 0, 1+len(lenBytes))
	out = append(out, longOffset+byte(len(lenBytes)))
	return append(out, lenBytes...)
}

// item is one decoded RLP element: either a byte string or a list whose
// sub-items are split out eagerly, each kept as its raw encoded bytes.
type item struct {
	isList bool
	data   []byte   // for strings: the payload. unused for lists.
	list   [][]byte // for lists: the raw encoding of each sub-item
}

// decodeOne decodes a single RLP item from the front of buf, returning the
// item and the remaining buffer.
func decodeOne(buf []byte) (item, []byte, error) {
	if len(buf) == 0 {
		return item{}, nil, ErrUnexpectedEOF
	}
	b0 := buf[0]
	switch {
	case b0 < 0x80:
		return item{data: buf[:1]}, buf[1:], nil
	case b0 < 0xb8:
		n := int(b0 - 0x80)
		if len(buf) < 1+n {
			return item{}, nil, ErrUnexpectedEOF
		}
		return item{data: buf[1 : 1+n]}, buf[1+n:], nil
	case b0 < 0xc0:
		lenOfLen := int(b0 - 0xb7)
		if len(buf) < 1+lenOfLen {
			return item{}, nil, ErrUnexpectedEOF
		}
		n := decodeBigEndian(buf[1 : 1+lenOfLen])
		start := 1 + lenOfLen
		if len(buf) < start+n {
			return item{}, nil, ErrUnexpectedEOF
		}
		return item{data: buf[start : start+n]}, buf[start+n:], nil
	case b0 < 0xf8:
		n := int(b0 - 0xc0)
		if len(buf) < 1+n {
			return item{}, nil, ErrUnexpectedEOF
		}
		sub, err := splitList(buf[1 : 1+n])
		if err != nil {
			return item{}, nil, err
		}
		return item{isList: true, list: sub}, buf[1+n:], nil
	default:
		lenOfLen := int(b0 - 0xf7)
		if len(buf) < 1+lenOfLen {
			return item{}, nil, ErrUnexpectedEOF
		}
		n := decodeBigEndian(buf[1 : 1+lenOfLen])
		start := 1 + lenOfLen
		if len(buf) < start+n {
			return item{}, nil, ErrUnexpectedEOF
		}
		sub, err := splitList(buf[start : start+n])
		if err != nil {
			return item{}, nil, err
		}
		return item{isList: true, list: sub}, buf[start+n:], nil
	}
}

// splitList decodes every top-level item in payload and returns each
// item's own raw (re-encoded) byte span.
func splitList(payload []byte) ([][]byte, error) {
	var out [][]byte
	rest := payload
	for len(rest) > 0 {
		start := len(payload) - len(rest)
		_, next, err := decodeOne(rest)
		if err != nil {
			return nil, err
		}
		end := len(payload) - len(next)
		out = append(out, payload[start:end])
		rest = next
	}
	return out, nil
}

func decodeBigEndian(b []byte) int {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return int(v)
}

// DecodeBytes decodes a top-level RLP byte string.
func DecodeBytes(buf []byte) ([]byte, error) {
	it, rest, err := decodeOne(buf)
	if err != nil {
		return nil, err
	}
	if it.isList {
		return nil, errors.New("rlpcodec: expected string, got list")
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("rlpcodec: %d trailing bytes", len(rest))
	}
	return it.data, nil
}

// DecodeUint decodes a top-level RLP-encoded unsigned integer.
func DecodeUint(buf []byte) (uint64, error) {
	b, err := DecodeBytes(buf)
	if err != nil {
		return 0, err
	}
	return decodeBigEndianChecked(b)
}

func decodeBigEndianChecked(b []byte) (uint64, error) {
	if len(b) > 8 {
		return 0, fmt.Errorf("rlpcodec: integer too large (%d bytes)", len(b))
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// DecodeList splits a top-level RLP list into its raw per-item encodings.
func DecodeList(buf []byte) ([][]byte, error) {
	it, rest, err := decodeOne(buf)
	if err != nil {
		return nil, err
	}
	if !it.isList {
		return nil, ErrNotAList
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("rlpcodec: %d trailing bytes", len(rest))
	}
	return it.list, nil
}
