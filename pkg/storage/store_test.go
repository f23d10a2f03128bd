package storage

import (
	"math"
	"testing"

	"github.com/cuemby/nostrd/pkg/nostr"
)

func mustID(t *testing.T, b byte) nostr.ID {
	t.Helper()
	var id nostr.ID
	for i := range id {
		id[i] = b
	}
	return id
}

func mustPubkey(t *testing.T, b byte) nostr.Pubkey {
	t.Helper()
	var pk nostr.Pubkey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_EmptyDatabaseMigratesToCurrent(t *testing.T) {
	store := openTestStore(t)

	level, err := store.MigrationLevel()
	if err != nil {
		t.Fatalf("MigrationLevel() error = %v", err)
	}
	if level != CurrentMigrationLevel {
		t.Errorf("migration_level = %d, want %d", level, CurrentMigrationLevel)
	}
}

func TestAppendAndGetByID(t *testing.T) {
	store := openTestStore(t)

	e := &nostr.Event{
		ID:        mustID(t, 0x01),
		Pubkey:    mustPubkey(t, 0x02),
		CreatedAt: 100,
		Kind:      1,
		Content:   "hello",
	}

	offset, err := store.Append(e)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := store.GetByID(e.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Content != "hello" || got.CreatedAt != 100 {
		t.Errorf("GetByID() = %+v, want content=hello created_at=100", got)
	}

	back, err := store.GetByOffset(offset)
	if err != nil {
		t.Fatalf("GetByOffset() error = %v", err)
	}
	if back.ID != e.ID {
		t.Errorf("GetByOffset().ID = %v, want %v", back.ID, e.ID)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetByID(mustID(t, 0xAB))
	if err != ErrNotFound {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestScanByTime(t *testing.T) {
	store := openTestStore(t)

	for i, ts := range []uint64{100, 200, 300} {
		e := &nostr.Event{
			ID:        mustID(t, byte(i+1)),
			Pubkey:    mustPubkey(t, 0x02),
			CreatedAt: ts,
			Kind:      1,
		}
		if _, err := store.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	events, err := store.ScanByTime(TimeRange{From: 150, To: 250})
	if err != nil {
		t.Fatalf("ScanByTime() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("ScanByTime() returned %d events, want 1", len(events))
	}
	if events[0].CreatedAt != 200 {
		t.Errorf("ScanByTime()[0].CreatedAt = %d, want 200", events[0].CreatedAt)
	}
}

func TestScanByTime_AscendingOrder(t *testing.T) {
	store := openTestStore(t)

	order := []uint64{300, 100, 200}
	for i, ts := range order {
		e := &nostr.Event{
			ID:        mustID(t, byte(i+1)),
			Pubkey:    mustPubkey(t, 0x02),
			CreatedAt: ts,
			Kind:      1,
		}
		if _, err := store.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	events, err := store.ScanByTime(TimeRange{From: 0, To: 1000})
	if err != nil {
		t.Fatalf("ScanByTime() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("ScanByTime() returned %d events, want 3", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i-1].CreatedAt > events[i].CreatedAt {
			t.Errorf("ScanByTime() not ascending: %d before %d", events[i-1].CreatedAt, events[i].CreatedAt)
		}
	}
}

func TestScanByAuthor(t *testing.T) {
	store := openTestStore(t)

	authorA := mustPubkey(t, 0xAA)
	authorB := mustPubkey(t, 0xBB)

	for i, pk := range []nostr.Pubkey{authorA, authorB, authorA} {
		e := &nostr.Event{
			ID:        mustID(t, byte(i+1)),
			Pubkey:    pk,
			CreatedAt: uint64(100 + i*10),
			Kind:      1,
		}
		if _, err := store.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	events, err := store.ScanByAuthor(authorA, TimeRange{From: 0, To: 1000})
	if err != nil {
		t.Fatalf("ScanByAuthor() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ScanByAuthor() returned %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.Pubkey != authorA {
			t.Errorf("ScanByAuthor() returned event with pubkey %v, want %v", e.Pubkey, authorA)
		}
	}
}

func TestScanByTag_Selectivity(t *testing.T) {
	store := openTestStore(t)

	e := &nostr.Event{
		ID:        mustID(t, 0x01),
		Pubkey:    mustPubkey(t, 0x02),
		CreatedAt: 100,
		Kind:      1,
		Tags: []nostr.Tag{
			{"e", "abcd"},
			{"expiration", "123"},
		},
	}
	if _, err := store.Append(e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	events, err := store.ScanByTag('e', "abcd", TimeRange{From: 0, To: 1000})
	if err != nil {
		t.Fatalf("ScanByTag() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("ScanByTag('e','abcd') returned %d events, want 1", len(events))
	}

	// The multi-byte-named tag must never have been indexed at all.
	none, err := store.ScanByTag('e', "xpiration", TimeRange{From: 0, To: 1000})
	if err != nil {
		t.Fatalf("ScanByTag() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ScanByTag('e','xpiration') returned %d events, want 0", len(none))
	}
}

// TestScanByTag_ExactMatchNotPrefix pins that a scan for a short tag
// value never returns an event whose value merely starts with it, even
// across a time range wide enough to span the created_at/id suffix that
// disambiguates tc_index entries.
func TestScanByTag_ExactMatchNotPrefix(t *testing.T) {
	store := openTestStore(t)

	short := &nostr.Event{
		ID:        mustID(t, 0x01),
		Pubkey:    mustPubkey(t, 0x02),
		CreatedAt: 100,
		Kind:      1,
		Tags:      []nostr.Tag{{"e", "abcd"}},
	}
	long := &nostr.Event{
		ID:        mustID(t, 0x03),
		Pubkey:    mustPubkey(t, 0x04),
		CreatedAt: 200,
		Kind:      1,
		Tags:      []nostr.Tag{{"e", "abcde"}},
	}
	if _, err := store.Append(short); err != nil {
		t.Fatalf("Append(short) error = %v", err)
	}
	if _, err := store.Append(long); err != nil {
		t.Fatalf("Append(long) error = %v", err)
	}

	events, err := store.ScanByTag('e', "abcd", TimeRange{From: 0, To: math.MaxUint64})
	if err != nil {
		t.Fatalf("ScanByTag() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("ScanByTag('e','abcd') returned %d events, want 1", len(events))
	}
	if events[0].ID != short.ID {
		t.Errorf("ScanByTag('e','abcd') returned id %v, want %v (the exact-match event, not 'abcde')", events[0].ID, short.ID)
	}
}

func TestMarkDeleted_SuppressesScanButNotGetByID(t *testing.T) {
	store := openTestStore(t)

	e := &nostr.Event{
		ID:        mustID(t, 0x01),
		Pubkey:    mustPubkey(t, 0x02),
		CreatedAt: 100,
		Kind:      1,
	}
	if _, err := store.Append(e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	events, err := store.ScanByTime(TimeRange{From: 0, To: 1000})
	if err != nil || len(events) != 1 {
		t.Fatalf("ScanByTime() before delete = %v, %v, want 1 event", events, err)
	}

	if err := store.MarkDeleted(e.ID); err != nil {
		t.Fatalf("MarkDeleted() error = %v", err)
	}

	deleted, err := store.IsDeleted(e.ID)
	if err != nil || !deleted {
		t.Fatalf("IsDeleted() = %v, %v, want true", deleted, err)
	}

	events, err = store.ScanByTime(TimeRange{From: 0, To: 1000})
	if err != nil {
		t.Fatalf("ScanByTime() after delete error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("ScanByTime() after delete returned %d events, want 0", len(events))
	}

	// The log record itself must still be reachable by id.
	got, err := store.GetByID(e.ID)
	if err != nil {
		t.Fatalf("GetByID() after delete error = %v", err)
	}
	if got.ID != e.ID {
		t.Errorf("GetByID() after delete = %+v, want id %v", got, e.ID)
	}
}
