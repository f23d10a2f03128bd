package storage

import (
	"encoding/binary"

	"github.com/cuemby/nostrd/pkg/nostr"
)

// offsetSize is the width of every index value: an 8-byte big-endian
// offset into the event log.
const offsetSize = 8

// encodeOffset renders an offset as its fixed-width big-endian index
// value / log key.
func encodeOffset(offset uint64) []byte {
	b := make([]byte, offsetSize)
	binary.BigEndian.PutUint64(b, offset)
	return b
}

// decodeOffset reverses encodeOffset.
func decodeOffset(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// beCreatedAt renders a created_at timestamp as 8-byte big-endian so
// that byte-order comparison equals numeric comparison (spec §3).
func beCreatedAt(createdAt uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, createdAt)
	return b
}

// keyIIndex builds the i_index key: the bare 32-byte id.
func keyIIndex(id nostr.ID) []byte {
	return append([]byte(nil), id[:]...)
}

// keyCIIndex builds the ci_index key: created_at(8B BE) ‖ id(32B).
func keyCIIndex(createdAt uint64, id nostr.ID) []byte {
	key := make([]byte, 0, 8+nostr.IDSize)
	key = append(key, beCreatedAt(createdAt)...)
	key = append(key, id[:]...)
	return key
}

// keyACIndex builds the ac_index key: pubkey(32B) ‖ created_at(8B BE) ‖ id(32B).
func keyACIndex(pubkey nostr.Pubkey, createdAt uint64, id nostr.ID) []byte {
	key := make([]byte, 0, nostr.PubkeySize+8+nostr.IDSize)
	key = append(key, pubkey[:]...)
	key = append(key, beCreatedAt(createdAt)...)
	key = append(key, id[:]...)
	return key
}

// keyTCIndex builds the tc_index key:
// tag_name(1B) ‖ len(tag_value)(4B BE) ‖ tag_value(var) ‖
// created_at(8B BE) ‖ id(32B).
//
// Keys are opaque outside this module: the trailing fixed-width
// created_at‖id suffix disambiguates entries even though tag_value has
// variable length, but implementations must never try to parse a key
// back into its components (spec §4.2).
func keyTCIndex(tagName byte, tagValue string, createdAt uint64, id nostr.ID) []byte {
	key := make([]byte, 0, 1+4+len(tagValue)+8+nostr.IDSize)
	key = append(key, tagCVPrefix(tagName, tagValue)...)
	key = append(key, beCreatedAt(createdAt)...)
	key = append(key, id[:]...)
	return key
}

// tagCVPrefix builds the fixed prefix a tc_index key and a ScanByTag
// range scan share: tag_name(1B) ‖ len(tag_value)(4B BE) ‖ tag_value.
//
// The length prefix is load-bearing: without it, concatenating tag_name
// directly with tag_value would let a range scan for a short value like
// "abcd" also match a stored key for the longer value "abcde", since
// both agree on every byte of "abcd" and a time range wide enough to
// span the trailing created_at‖id suffix also spans the one extra byte
// "abcde" has beyond "abcd". Prefixing the value's length pins that
// byte, so two values only share scan bounds when they are identical.
func tagCVPrefix(tagName byte, tagValue string) []byte {
	prefix := make([]byte, 0, 1+4+len(tagValue))
	prefix = append(prefix, tagName)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(tagValue)))
	prefix = append(prefix, lenBuf[:]...)
	prefix = append(prefix, []byte(tagValue)...)
	return prefix
}

// timeRangeBounds returns the inclusive [lo, hi] byte bounds for a
// created_at range scan over any index whose key begins with an 8-byte
// big-endian created_at (ci_index), optionally after a fixed prefix
// (ac_index's pubkey, tc_index's tagCVPrefix).
func timeRangeBounds(prefix []byte, from, to uint64) (lo, hi []byte) {
	lo = append(append([]byte(nil), prefix...), beCreatedAt(from)...)
	lo = append(lo, make([]byte, nostr.IDSize)...) // 0x00...00 id suffix

	hi = append(append([]byte(nil), prefix...), beCreatedAt(to)...)
	ff := make([]byte, nostr.IDSize)
	for i := range ff {
		ff[i] = 0xFF
	}
	hi = append(hi, ff...)
	return lo, hi
}
