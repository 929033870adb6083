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


// Package pebble backs ethdb.KeyValueStore with a real persistent LSM
// engine (github.com/cockroachdb/pebble), the store this repository's
// lineage migrated its default database to. This is the production
// counterpart to ethdb/memorydb.
package pebble

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/ethbeacon/beaconsync/ethdb"
)

// Database wraps a *pebble.DB and tracks the write-transaction depth the
// stash (§4.C/§4.H) needs to decide overflow buffering.
type Database struct {
	db *pebble.DB

	txLv int32
}

// Open creates or opens a pebble database rooted at dir.
func Open(dir string) (*Database, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Has(key []byte) (bool, error) {
	v, closer, err := d.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	_ = v
	return true, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	v, closer, err := d.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ethdb.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (d *Database) Put(key, value []byte) error {
	return d.db.Set(key, value, pebble.Sync)
}

func (d *Database) Delete(key []byte) error {
	return d.db.Delete(key, pebble.Sync)
}

// BeginWrite/EndWrite let the owning process mark an open FC write
// transaction, mirroring the node-wide lock the real importer holds while
// mutating state - see Writable/Level.
func (d *Database) BeginWrite() { atomic.AddInt32(&d.txLv, 1) }
func (d *Database) EndWrite() {
	if atomic.LoadInt32(&d.txLv) > 0 {
		atomic.AddInt32(&d.txLv, -1)
	}
}

func (d *Database) Writable() bool { return atomic.LoadInt32(&d.txLv) == 0 }
func (d *Database) Level() int     { return int(atomic.LoadInt32(&d.txLv)) }

func (d *Database) Close() error { return d.db.Close() }

func (d *Database) NewBatch() ethdb.Batch {
	return &batch{pb: d.db.NewBatch(), db: d.db}
}

type batch struct {
	pb   *pebble.Batch
	db   *pebble.DB
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.size += len(key) + len(value)
	return b.pb.Set(key, value, nil)
}

func (b *batch) Delete(key []byte) error {
	b.size += len(key)
	return b.pb.Delete(key, nil)
}

func (b *batch) ValueSize() int { return b.size }

func (b *batch) Write() error {
	return b.pb.Commit(pebble.Sync)
}

func (b *batch) Reset() {
	b.pb.Reset()
	b.size = 0
}
