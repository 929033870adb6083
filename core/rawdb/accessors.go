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

package rawdb

import "github.com/ethbeacon/beaconsync/ethdb"

// ReadSyncStateLayout returns the raw encoded SyncStateLayout record, or
// nil if none has been persisted yet. The encoding itself is owned by the
// eth/downloader package (the one place that knows the field layout);
// rawdb only knows where the blob lives, the way go-ethereum's own
// rawdb.ReadSkeletonSyncStatus treats its payload as an opaque blob owned
// by package downloader.
func ReadSyncStateLayout(db ethdb.KeyValueReader) []byte {
	data, err := db.Get(syncStateLayoutKey)
	if err != nil {
		return nil
	}
	return data
}

// WriteSyncStateLayout persists the encoded SyncStateLayout record.
func WriteSyncStateLayout(db ethdb.KeyValueWriter, enc []byte) error {
	return db.Put(syncStateLayoutKey, enc)
}

// DeleteSyncStateLayout removes the persisted layout record, used when the
// controller hibernates or discards a stale resume.
func DeleteSyncStateLayout(db ethdb.KeyValueWriter) error {
	return db.Delete(syncStateLayoutKey)
}

// ReadStashHeader returns the canonical-encoded header blob stashed for
// number, or nil if no header is stashed there.
func ReadStashHeader(db ethdb.KeyValueReader, number uint64) []byte {
	data, err := db.Get(stashHeaderKey(number))
	if err != nil {
		return nil
	}
	return data
}

// WriteStashHeader stores enc, the canonical encoding of a header, under
// number.
func WriteStashHeader(db ethdb.KeyValueWriter, number uint64, enc []byte) error {
	return db.Put(stashHeaderKey(number), enc)
}

// DeleteStashHeader removes the stashed header blob for number, called as
// soon as its block has been imported (§4.F: "unstash headers as their
// blocks are imported").
func DeleteStashHeader(db ethdb.KeyValueWriter, number uint64) error {
	return db.Delete(stashHeaderKey(number))
}

// HasStashHeader reports whether a header blob is stashed for number.
func HasStashHeader(db ethdb.KeyValueReader, number uint64) bool {
	ok, err := db.Has(stashHeaderKey(number))
	return err == nil && ok
}
