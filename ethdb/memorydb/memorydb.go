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


// Package memorydb is a bare in-memory KeyValueStore, used by tests and by
// any caller that doesn't need durability. Modeled directly on
// go-ethereum's ethdb/memorydb: a mutex-guarded map, no third-party
// dependency needed for something this small.
package memorydb

import (
	"sync"

	"github.com/ethbeacon/beaconsync/ethdb"
)

type Database struct {
	mu   sync.RWMutex
	kv   map[string][]byte
	txLv int
}

func New() *Database {
	return &Database{kv: make(map[string][]byte)}
}

func (db *Database) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.kv[string(key)]
	return ok, nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.kv[string(key)]
	if !ok {
		return nil, ethdb.ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (db *Database) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	db.kv[string(key)] = cp
	return nil
}

func (db *Database) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.kv, string(key))
	return nil
}

// BeginWrite/EndWrite simulate the node's FC write-transaction nesting for
// tests exercising the stash's overflow behaviour (§4.C/§4.H).
func (db *Database) BeginWrite() {
	db.mu.Lock()
	db.txLv++
	db.mu.Unlock()
}

func (db *Database) EndWrite() {
	db.mu.Lock()
	if db.txLv > 0 {
		db.txLv--
	}
	db.mu.Unlock()
}

func (db *Database) Writable() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.txLv == 0
}

func (db *Database) Level() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.txLv
}

func (db *Database) Close() error { return nil }

func (db *Database) NewBatch() ethdb.Batch { return &batch{db: db} }

type keyvalue struct {
	key   []byte
	value []byte
	del   bool
}

type batch struct {
	db   *Database
	writes []keyvalue
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte(nil), key...), append([]byte(nil), value...), false})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte(nil), key...), nil, true})
	b.size += len(key)
	return nil
}

func (b *batch) ValueSize() int { return b.size }

func (b *batch) Write() error {
	for _, kv := range b.writes {
		if kv.del {
			if err := b.db.Delete(kv.key); err != nil {
				return err
			}
			continue
		}
		if err := b.db.Put(kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}

func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}
