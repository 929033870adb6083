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


// Package common holds small value types shared across the beacon sync
// engine: block hashes and addresses, plus the handful of byte/hex helpers
// almost every other package needs.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the expected length of a Keccak256 digest.
const HashLength = 32

// AddressLength is the expected length of an Ethereum account address.
const AddressLength = 20

// Hash represents the 32 byte Keccak256 hash of arbitrary data.
type Hash [HashLength]byte

// BytesToHash sets b as the trailing bytes of a hash, left-padding with
// zero bytes if b is shorter than HashLength and truncating the leading
// bytes if it is longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes returns the raw byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns a "0x"-prefixed hex string representation of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// Address represents an Ethereum account address.
type Address [AddressLength]byte

func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

func (a Address) Bytes() []byte { return a[:] }
func (a Address) Hex() string   { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) String() string { return a.Hex() }

// HexToHash is a convenience wrapper panicking on malformed input; only
// meant for tests and constant literals, never for untrusted data.
func HexToHash(s string) Hash {
	b, err := decodeHexLiteral(s)
	if err != nil {
		panic(fmt.Sprintf("common: invalid hash literal %q: %v", s, err))
	}
	return BytesToHash(b)
}

func decodeHexLiteral(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}
