package storage

import (
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/nostrd/pkg/nostr"
)

// bucketDeletedIDs is the tombstone set: keyed solely by id, no value is
// stored (the key's presence is the datum). Keying by id rather than by
// offset makes deletion order-independent: a NIP-09 deletion that
// arrives before the event it targets still takes effect once the event
// is appended (spec §4.3).
var bucketDeletedIDs = []byte("deleted_ids")

func markDeletedTx(tx *bolt.Tx, id nostr.ID) error {
	return tx.Bucket(bucketDeletedIDs).Put(id[:], []byte{})
}

func isDeletedTx(tx *bolt.Tx, id nostr.ID) bool {
	return tx.Bucket(bucketDeletedIDs).Get(id[:]) != nil
}
