package storage

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// CurrentMigrationLevel is the schema generation this binary
// understands. Opening a database whose stored migration_level exceeds
// this is a fatal configuration error (spec §4.5, §7 taxonomy #2).
const CurrentMigrationLevel = 5

const migrationLevelKey = "migration_level"

// readMigrationLevel reads general["migration_level"]; absence reads as
// zero (spec §3, invariant 4).
func readMigrationLevel(tx *bolt.Tx) (uint32, error) {
	v := tx.Bucket(bucketGeneral).Get([]byte(migrationLevelKey))
	if v == nil {
		return 0, nil
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("storage: migration_level is %d bytes, want 4", len(v))
	}
	return binary.BigEndian.Uint32(v), nil
}

func writeMigrationLevel(tx *bolt.Tx, level uint32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, level)
	return tx.Bucket(bucketGeneral).Put([]byte(migrationLevelKey), b)
}

// Migrate reads the stored migration level and, while it is less than
// CurrentMigrationLevel, applies the next step in its own write
// transaction, committing the new level with it. Running Migrate twice
// in a row is a no-op the second time (spec §8, idempotence property).
//
// Any error inside a step aborts that step's transaction, leaving
// migration_level at the previous value; the next call to Migrate
// retries from there (spec §4.5, "Failure handling").
func (s *Store) Migrate() error {
	for {
		var done bool
		err := s.db.Update(func(tx *bolt.Tx) error {
			level, err := readMigrationLevel(tx)
			if err != nil {
				return err
			}
			if level > CurrentMigrationLevel {
				return fmt.Errorf("%w: on-disk migration_level %d exceeds %d", ErrSchemaTooNew, level, CurrentMigrationLevel)
			}
			if level == CurrentMigrationLevel {
				done = true
				return nil
			}
			next := level + 1
			if err := migrateStep(s.db, tx, next); err != nil {
				return fmt.Errorf("migrate to level %d: %w", next, err)
			}
			return writeMigrationLevel(tx, next)
		})
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// PeekMigrationLevel reports the migration_level stored at dir/nostrd.db
// without running Migrate or writing anything, for tools that need to
// decide whether a migration is needed before committing to one (taking
// a backup, printing a dry-run plan). The database file must already
// exist: a missing file is reported as an open error. A database with no
// general bucket or no stored level reads as level 0.
func PeekMigrationLevel(dir string) (uint32, error) {
	path := filepath.Join(dir, "nostrd.db")
	db, err := bolt.Open(path, 0600, &bolt.Options{ReadOnly: true, Timeout: 5 * time.Second})
	if err != nil {
		return 0, fmt.Errorf("open database read-only: %w", err)
	}
	defer db.Close()

	var level uint32
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGeneral)
		if b == nil {
			return nil
		}
		var err error
		level, err = readMigrationLevel(tx)
		return err
	})
	return level, err
}

// migrateStep dispatches to the handler for one level transition. An
// unknown level name is a schema error: either the on-disk level is
// already beyond CurrentMigrationLevel (checked by the caller before
// ever reaching here) or this binary is missing a handler it should
// have, both fatal per spec §7 taxonomy #2.
func migrateStep(db *bolt.DB, tx *bolt.Tx, level uint32) error {
	switch level {
	case 1:
		return migrateTo1(db, tx)
	case 2:
		return migrateTo2(db, tx)
	case 3:
		return migrateTo3(tx)
	case 4:
		return migrateTo4(tx)
	case 5:
		return migrateTo5(tx)
	default:
		return fmt.Errorf("%w: no handler for migration level %d", ErrSchemaTooNew, level)
	}
}

// migrateTo1 populates ci_index from the authoritative i_index, for
// databases written before ci_index existed. It reads the source
// mapping via a separate read transaction (as the original Rust
// migration does) so that the full scan sees a consistent snapshot
// independent of the write transaction it is populating.
func migrateTo1(db *bolt.DB, tx *bolt.Tx) error {
	entries, err := scanAllIIndex(db)
	if err != nil {
		return err
	}
	for _, en := range entries {
		raw, err := getEventBytesByOffset(tx, en.offset)
		if err != nil {
			return err
		}
		e, err := decodeEvent(raw)
		if err != nil {
			return err
		}
		if err := idxCI.put(tx, keyCIIndex(e.CreatedAt, e.ID), en.offset); err != nil {
			return err
		}
	}
	return nil
}

// migrateTo2 populates ac_index and tc_index from the authoritative
// i_index, in the same shape as migrateTo1.
func migrateTo2(db *bolt.DB, tx *bolt.Tx) error {
	entries, err := scanAllIIndex(db)
	if err != nil {
		return err
	}
	for _, en := range entries {
		raw, err := getEventBytesByOffset(tx, en.offset)
		if err != nil {
			return err
		}
		e, err := decodeEvent(raw)
		if err != nil {
			return err
		}
		if err := idxAC.put(tx, keyACIndex(e.Pubkey, e.CreatedAt, e.ID), en.offset); err != nil {
			return err
		}
		for _, t := range e.Tags {
			if !t.Indexable() {
				continue
			}
			key := keyTCIndex(t.Name()[0], t.Value(), e.CreatedAt, e.ID)
			if err := idxTC.put(tx, key, en.offset); err != nil {
				return err
			}
		}
	}
	return nil
}

// scanAllIIndex reads every (id, offset) pair out of i_index using a
// fresh read transaction, independent of the write transaction the
// caller is about to populate other indexes under.
func scanAllIIndex(db *bolt.DB) ([]entry, error) {
	var out []entry
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(idxI.bucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			out = append(out, entry{key: append([]byte(nil), k...), offset: decodeOffset(v)})
		}
		return nil
	})
	return out, err
}

// legacyIPData is the bucket an earlier generation used to store raw
// peer IPs for per-peer rate limiting; the current generation hashes
// peers instead, so the raw table is retired.
var legacyIPData = []byte("ip_data")

// migrateTo3 clears the legacy raw-IP rate-limit table.
func migrateTo3(tx *bolt.Tx) error {
	return clearIfExists(tx, legacyIPData)
}

// legacyDeletedOffsets is the retired table that recorded deletions by
// log offset instead of by id (spec §4.3, rationale).
var legacyDeletedOffsets = []byte("deleted_offsets")

// migrateTo4 retires the deleted_offsets table. The original
// implementation opened this table in create mode purely to truncate
// it (spec §9, Open Question); here it is instead treated as
// truncate-if-exists, so a database that never had the legacy table
// isn't forced to allocate one just to empty it.
func migrateTo4(tx *bolt.Tx) error {
	return clearIfExists(tx, legacyDeletedOffsets)
}

// legacyDeletedEvents is the retired table whose keys began with a
// 32-byte id (plus implementation-specific trailing bytes this
// migration never interprets) and whose value was unused.
var legacyDeletedEvents = []byte("deleted-events")

// migrateTo5 converts deleted_events into deleted_ids: every legacy
// key's leading 32 bytes is collected as an id, each collected id is
// inserted into deleted_ids, and the legacy table is then truncated.
// Collection is staged into memory before any insert into deleted_ids
// because mutating one bucket while a cursor is open over another
// under the same transaction is not something every backing store
// guarantees to be safe — bbolt specifically is fine with it, but this
// mirrors the original implementation's caution and remains correct
// regardless of the underlying store (spec §4.5, step 5).
func migrateTo5(tx *bolt.Tx) error {
	b := tx.Bucket(legacyDeletedEvents)
	if b == nil {
		return nil
	}

	var ids [][nostrIDSize]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		if len(k) < nostrIDSize {
			continue
		}
		var id [nostrIDSize]byte
		copy(id[:], k[:nostrIDSize])
		ids = append(ids, id)
	}

	for _, id := range ids {
		if err := tx.Bucket(bucketDeletedIDs).Put(id[:], []byte{}); err != nil {
			return err
		}
	}

	return clearIfExists(tx, legacyDeletedEvents)
}

// nostrIDSize is the width of the id that legacy deleted-events keys
// begin with; it equals nostr.IDSize (both are the NIP-01 32-byte id
// width).
const nostrIDSize = 32

// clearIfExists truncates a bucket by name if it exists, and is a no-op
// if it was never created — tolerating the absence of a retired legacy
// table rather than requiring callers to have created it first.
func clearIfExists(tx *bolt.Tx, name []byte) error {
	b := tx.Bucket(name)
	if b == nil {
		return nil
	}
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}
