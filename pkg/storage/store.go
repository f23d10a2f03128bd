package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/nostrd/pkg/nostr"
)

// bucketGeneral holds small singletons, currently just
// general["migration_level"] (spec §3, §6).
var bucketGeneral = []byte("general")

// allBuckets lists every bucket a fresh database, or one opened from a
// prior generation, must have before normal traffic is served.
var allBuckets = [][]byte{
	bucketEvents,
	bucketGeneral,
	idxI.bucket,
	idxCI.bucket,
	idxAC.bucket,
	idxTC.bucket,
	bucketDeletedIDs,
}

// Store is the storage core: an append-only event log, its four
// secondary indexes, and the deletion tombstone set, all living in one
// bbolt environment (spec §5, "Shared-resource policy").
type Store struct {
	db *bolt.DB
}

// TimeRange bounds a created_at scan, inclusive on both ends.
type TimeRange struct {
	From uint64
	To   uint64
}

// Open opens (creating if absent) the database at dir/nostrd.db,
// ensures every bucket exists, and runs the migration engine so that by
// the time Open returns, general["migration_level"] == CurrentMigrationLevel
// (spec §4.5, §6).
func Open(dir string) (*Store, error) {
	path := filepath.Join(dir, "nostrd.db")
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append serializes event and writes it to the log plus every
// applicable secondary index, all within one write transaction (spec
// §4.1, invariant 1-2). The id is not added to the deletion set.
func (s *Store) Append(e *nostr.Event) (uint64, error) {
	if e == nil {
		return 0, fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	eventBytes, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var offset uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		var err error
		offset, err = appendEvent(tx, eventBytes)
		if err != nil {
			return err
		}

		if err := idxI.put(tx, keyIIndex(e.ID), offset); err != nil {
			return fmt.Errorf("put i_index: %w", err)
		}
		if err := idxCI.put(tx, keyCIIndex(e.CreatedAt, e.ID), offset); err != nil {
			return fmt.Errorf("put ci_index: %w", err)
		}
		if err := idxAC.put(tx, keyACIndex(e.Pubkey, e.CreatedAt, e.ID), offset); err != nil {
			return fmt.Errorf("put ac_index: %w", err)
		}
		for _, t := range e.Tags {
			if !t.Indexable() {
				continue
			}
			key := keyTCIndex(t.Name()[0], t.Value(), e.CreatedAt, e.ID)
			if err := idxTC.put(tx, key, offset); err != nil {
				return fmt.Errorf("put tc_index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// decodeEvent unmarshals the stored wire representation of an event.
func decodeEvent(raw []byte) (*nostr.Event, error) {
	var e nostr.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOffset, err)
	}
	return &e, nil
}

// GetByOffset returns the event stored at an offset (the log bucket's
// sequence key) previously returned by Append (or recovered from an index). Passing any other
// value is undefined; this implementation detects the common case
// (nothing stored there) via ErrInvalidOffset (spec §4.1).
func (s *Store) GetByOffset(offset uint64) (*nostr.Event, error) {
	var e *nostr.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		raw, err := getEventBytesByOffset(tx, offset)
		if err != nil {
			return err
		}
		e, err = decodeEvent(raw)
		return err
	})
	return e, err
}

// GetByID looks up an event by its id via i_index. Returns ErrNotFound
// if no event with that id exists; it does not consult the deletion
// set — the tombstone is a read-side filter applied by scans, not the
// log itself (spec §8, scenario 6).
func (s *Store) GetByID(id nostr.ID) (*nostr.Event, error) {
	var e *nostr.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		offset, ok := idxI.get(tx, keyIIndex(id))
		if !ok {
			return ErrNotFound
		}
		raw, err := getEventBytesByOffset(tx, offset)
		if err != nil {
			return err
		}
		e, err = decodeEvent(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// scanEntries dereferences a list of index entries into events,
// suppressing tombstoned ids.
func (s *Store) scanEntries(tx *bolt.Tx, entries []entry) ([]*nostr.Event, error) {
	events := make([]*nostr.Event, 0, len(entries))
	for _, en := range entries {
		raw, err := getEventBytesByOffset(tx, en.offset)
		if err != nil {
			return nil, err
		}
		e, err := decodeEvent(raw)
		if err != nil {
			return nil, err
		}
		if isDeletedTx(tx, e.ID) {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// ScanByTime returns events with created_at in [r.From, r.To], in
// ascending time order, suppressing tombstoned events (spec §4.2, §8
// scenario 5).
func (s *Store) ScanByTime(r TimeRange) ([]*nostr.Event, error) {
	lo, hi := timeRangeBounds(nil, r.From, r.To)
	var events []*nostr.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		entries := idxCI.rangeScan(tx, lo, hi)
		var err error
		events, err = s.scanEntries(tx, entries)
		return err
	})
	return events, err
}

// ScanByAuthor returns events by pubkey with created_at in [r.From, r.To],
// in ascending time order, suppressing tombstoned events.
func (s *Store) ScanByAuthor(pubkey nostr.Pubkey, r TimeRange) ([]*nostr.Event, error) {
	lo, hi := timeRangeBounds(pubkey[:], r.From, r.To)
	var events []*nostr.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		entries := idxAC.rangeScan(tx, lo, hi)
		var err error
		events, err = s.scanEntries(tx, entries)
		return err
	})
	return events, err
}

// ScanByTag returns events carrying tag (nameByte, value) with an exact
// value match (not merely a value-prefix match) and created_at in
// [r.From, r.To], in ascending time order, suppressing tombstoned
// events. Only single-byte tag names are indexed (spec §4.2);
// multi-byte-named tags never match here regardless of value.
func (s *Store) ScanByTag(nameByte byte, value string, r TimeRange) ([]*nostr.Event, error) {
	prefix := tagCVPrefix(nameByte, value)
	lo, hi := timeRangeBounds(prefix, r.From, r.To)
	var events []*nostr.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		entries := idxTC.rangeScan(tx, lo, hi)
		var err error
		events, err = s.scanEntries(tx, entries)
		return err
	})
	return events, err
}

// MarkDeleted records id in the tombstone set. Idempotent; marking an
// already-deleted or as-yet-unseen id is not an error (spec §4.3).
func (s *Store) MarkDeleted(id nostr.ID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return markDeletedTx(tx, id)
	})
}

// IsDeleted reports whether id is present in the tombstone set.
func (s *Store) IsDeleted(id nostr.ID) (bool, error) {
	var deleted bool
	err := s.db.View(func(tx *bolt.Tx) error {
		deleted = isDeletedTx(tx, id)
		return nil
	})
	return deleted, err
}

// MigrationLevel returns the currently stored schema generation.
func (s *Store) MigrationLevel() (uint32, error) {
	var level uint32
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		level, err = readMigrationLevel(tx)
		return err
	})
	return level, err
}
