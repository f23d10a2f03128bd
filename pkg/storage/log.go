package storage

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// bucketEvents is the append-only event log. Keys are bbolt's
// auto-incrementing sequence number rendered as 8-byte big-endian, which
// doubles as the "offset" spec.md refers to: it is assigned once by
// appendEvent and never changes for the life of the database.
var bucketEvents = []byte("events")

// appendEvent writes event bytes to the log bucket and returns the
// offset it was assigned. Must be called inside a write transaction
// that also inserts the corresponding index entries (spec §4.1, §4.4).
func appendEvent(tx *bolt.Tx, eventBytes []byte) (uint64, error) {
	b := tx.Bucket(bucketEvents)
	seq, err := b.NextSequence()
	if err != nil {
		return 0, fmt.Errorf("allocate offset: %w", err)
	}
	if err := b.Put(encodeOffset(seq), eventBytes); err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return seq, nil
}

// getEventBytesByOffset returns a copy of the raw event bytes at offset,
// or ErrInvalidOffset if nothing is stored there. The returned slice is
// a copy safe to use after the enclosing transaction ends (spec §9:
// zero-copy views must not outlive their transaction, and this package
// chooses "copy on return" over a transaction-scoped holder).
func getEventBytesByOffset(tx *bolt.Tx, offset uint64) ([]byte, error) {
	b := tx.Bucket(bucketEvents)
	v := b.Get(encodeOffset(offset))
	if v == nil {
		return nil, ErrInvalidOffset
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}
