/*
Package storage is the append-only event log and secondary-index family
that backs a nostr relay. It is the storage core: everything needed to
persist a signed event once and find it again by id, by time, by author,
or by tag, plus the schema-versioned migration ladder that keeps the
indexes coherent across releases.

# Architecture

Storage is one bbolt database file holding seven top-level buckets:

	┌───────────────────── BOLT DATABASE ───────────────────────┐
	│                                                             │
	│  ┌───────────────────────────────────────────┐            │
	│  │              events (the log)               │            │
	│  │  key:   BE8(offset counter)                 │            │
	│  │  value: serialized event bytes              │            │
	│  └──────────────────────┬────────────────────┘            │
	│                         │ offset                            │
	│  ┌──────────────────────▼────────────────────┐            │
	│  │               i_index                       │            │
	│  │  id (32B) -> offset                          │            │
	│  └──────────────────────────────────────────────┘           │
	│  ┌──────────────────────────────────────────────┐           │
	│  │               ci_index                       │           │
	│  │  created_at(8B BE) ‖ id(32B) -> offset        │           │
	│  └──────────────────────────────────────────────┘           │
	│  ┌──────────────────────────────────────────────┐           │
	│  │               ac_index                       │           │
	│  │  pubkey(32B) ‖ created_at(8B BE) ‖ id -> off  │           │
	│  └──────────────────────────────────────────────┘           │
	│  ┌──────────────────────────────────────────────┐           │
	│  │               tc_index                       │           │
	│  │  tag_name(1B) ‖ len(4B BE) ‖ tag_value ‖      │           │
	│  │  created_at ‖ id -> offset                    │           │
	│  └──────────────────────────────────────────────┘           │
	│  ┌──────────────────────────────────────────────┐           │
	│  │              deleted_ids                      │           │
	│  │  id(32B) -> (empty, presence is the datum)     │           │
	│  └──────────────────────────────────────────────┘           │
	│  ┌──────────────────────────────────────────────┐           │
	│  │               general                         │           │
	│  │  "migration_level" -> BE4(uint32)              │           │
	│  └──────────────────────────────────────────────┘           │
	└─────────────────────────────────────────────────────────────┘

Retired buckets `deleted_offsets` and `deleted-events` may still exist in
databases written by older binaries; the migration engine opens them by
exact name to retire them (see migrate.go) and nothing else in this
package ever touches them.

# Transaction model

One writer, many readers, via bbolt: every mutation happens inside a
single db.Update closure so that the log append and every secondary
index insert commit atomically (no reader ever observes an index entry
pointing at an absent event). Reads use db.View; returned events are
copied out of the mapped page before the view closure returns, so callers
never hold a reference into bbolt's mmap past the transaction (see
Store.GetByID, Store.scanEntries).

# Migration

CurrentMigrationLevel is 5. Opening a database written by an older binary
runs migrate.go's step ladder, one bbolt write transaction per step,
before any application traffic is served. See migrate.go for the
step-by-step rationale; it is a direct translation of the original Rust
relay's migration module.

# Usage

	store, err := storage.Open("/var/lib/nostrd/data")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	offset, err := store.Append(event)
	ev, err := store.GetByID(id)
	events, err := store.ScanByTime(storage.TimeRange{From: 100, To: 200})
	store.MarkDeleted(id)

# See also

  - original_source/chorus-lib/src/store/migrations.rs for the migration
    ladder this package's migrate.go is grounded on.
  - go.etcd.io/bbolt documentation for the underlying transaction model.
*/
package storage
