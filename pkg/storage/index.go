package storage

import (
	"bytes"

	bolt "go.etcd.io/bbolt"
)

// index is a thin typed wrapper over a bbolt bucket storing
// key -> 8-byte offset entries. Each of i_index/ci_index/ac_index/
// tc_index has a distinct key layout (see keys.go) but the same value
// type, so rather than a class hierarchy per index this package models
// the family as one generic bytes-keyed, offset-valued B-tree accessor
// (spec §9, "Polymorphism over key layouts").
type index struct {
	bucket []byte
}

func (ix index) put(tx *bolt.Tx, key []byte, offset uint64) error {
	return tx.Bucket(ix.bucket).Put(key, encodeOffset(offset))
}

func (ix index) get(tx *bolt.Tx, key []byte) (uint64, bool) {
	v := tx.Bucket(ix.bucket).Get(key)
	if v == nil {
		return 0, false
	}
	return decodeOffset(v), true
}

func (ix index) delete(tx *bolt.Tx, key []byte) error {
	return tx.Bucket(ix.bucket).Delete(key)
}

func (ix index) clear(tx *bolt.Tx) error {
	b := tx.Bucket(ix.bucket)
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

// entry is one (key, offset) pair yielded by a range scan.
type entry struct {
	key    []byte
	offset uint64
}

// rangeScan returns every (key, offset) pair with lo <= key <= hi, in
// ascending key order. Because created_at is encoded big-endian, a
// range bounded by timeRangeBounds returns ascending-time order (spec
// §4.2).
func (ix index) rangeScan(tx *bolt.Tx, lo, hi []byte) []entry {
	b := tx.Bucket(ix.bucket)
	c := b.Cursor()
	var out []entry
	for k, v := c.Seek(lo); k != nil && bytes.Compare(k, hi) <= 0; k, v = c.Next() {
		out = append(out, entry{key: append([]byte(nil), k...), offset: decodeOffset(v)})
	}
	return out
}

var (
	idxI  = index{bucket: []byte("i_index")}
	idxCI = index{bucket: []byte("ci_index")}
	idxAC = index{bucket: []byte("ac_index")}
	idxTC = index{bucket: []byte("tc_index")}
)
