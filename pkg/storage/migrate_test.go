package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/nostrd/pkg/nostr"
)

// seedRawDB opens a bare bbolt database at dir/nostrd.db and lets fn
// populate it directly, bypassing Store, to simulate a database written
// by an older binary.
func seedRawDB(t *testing.T, dir string, fn func(tx *bolt.Tx) error) {
	t.Helper()
	path := filepath.Join(dir, "nostrd.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		t.Fatalf("bolt.Open() error = %v", err)
	}
	defer db.Close()

	if err := db.Update(fn); err != nil {
		t.Fatalf("seed update() error = %v", err)
	}
}

func TestMigrate_LegacyV0RebuildsSecondaryIndexes(t *testing.T) {
	dir := t.TempDir()

	e := &nostr.Event{
		ID:        mustID(t, 0x09),
		Pubkey:    mustPubkey(t, 0x0A),
		CreatedAt: 555,
		Kind:      1,
		Tags:      []nostr.Tag{{"e", "deadbeef"}},
	}
	eventBytes, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	const offset = 1
	seedRawDB(t, dir, func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketEvents, bucketGeneral, idxI.bucket, idxCI.bucket, idxAC.bucket, idxTC.bucket, bucketDeletedIDs} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketEvents).Put(encodeOffset(offset), eventBytes); err != nil {
			return err
		}
		return idxI.put(tx, keyIIndex(e.ID), offset)
	})

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	level, err := store.MigrationLevel()
	if err != nil || level != CurrentMigrationLevel {
		t.Fatalf("MigrationLevel() = %d, %v, want %d", level, err, CurrentMigrationLevel)
	}

	byTime, err := store.ScanByTime(TimeRange{From: 0, To: 1000})
	if err != nil || len(byTime) != 1 {
		t.Fatalf("ScanByTime() = %v, %v, want 1 event", byTime, err)
	}

	byAuthor, err := store.ScanByAuthor(e.Pubkey, TimeRange{From: 0, To: 1000})
	if err != nil || len(byAuthor) != 1 {
		t.Fatalf("ScanByAuthor() = %v, %v, want 1 event", byAuthor, err)
	}

	byTag, err := store.ScanByTag('e', "deadbeef", TimeRange{From: 0, To: 1000})
	if err != nil || len(byTag) != 1 {
		t.Fatalf("ScanByTag() = %v, %v, want 1 event", byTag, err)
	}
}

func TestMigrate_V3ToV5RetiresLegacyTables(t *testing.T) {
	dir := t.TempDir()

	idA := mustID(t, 0xA1)
	idB := mustID(t, 0xB2)

	seedRawDB(t, dir, func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketEvents, bucketGeneral, idxI.bucket, idxCI.bucket, idxAC.bucket, idxTC.bucket, bucketDeletedIDs} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		if err := writeMigrationLevel(tx, 3); err != nil {
			return err
		}

		offsets, err := tx.CreateBucketIfNotExists(legacyDeletedOffsets)
		if err != nil {
			return err
		}
		if err := offsets.Put(encodeOffset(42), nil); err != nil {
			return err
		}

		events, err := tx.CreateBucketIfNotExists(legacyDeletedEvents)
		if err != nil {
			return err
		}
		if err := events.Put(idA[:], nil); err != nil {
			return err
		}
		return events.Put(idB[:], nil)
	})

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	level, err := store.MigrationLevel()
	if err != nil || level != CurrentMigrationLevel {
		t.Fatalf("MigrationLevel() = %d, %v, want %d", level, err, CurrentMigrationLevel)
	}

	for _, id := range []nostr.ID{idA, idB} {
		deleted, err := store.IsDeleted(id)
		if err != nil || !deleted {
			t.Errorf("IsDeleted(%v) = %v, %v, want true", id, deleted, err)
		}
	}

	err = store.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(legacyDeletedOffsets); b != nil {
			if k, _ := b.Cursor().First(); k != nil {
				t.Errorf("deleted_offsets not empty after migration")
			}
		}
		if b := tx.Bucket(legacyDeletedEvents); b != nil {
			if k, _ := b.Cursor().First(); k != nil {
				t.Errorf("deleted-events not empty after migration")
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view error = %v", err)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	store := openTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	level, err := store.MigrationLevel()
	if err != nil || level != CurrentMigrationLevel {
		t.Fatalf("MigrationLevel() after second Migrate() = %d, %v", level, err)
	}
}

func TestOpen_UnknownFutureLevelIsFatal(t *testing.T) {
	dir := t.TempDir()

	seedRawDB(t, dir, func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketEvents, bucketGeneral, idxI.bucket, idxCI.bucket, idxAC.bucket, idxTC.bucket, bucketDeletedIDs} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return writeMigrationLevel(tx, CurrentMigrationLevel+1)
	})

	_, err := Open(dir)
	if err == nil {
		t.Fatal("Open() error = nil, want ErrSchemaTooNew")
	}
}
