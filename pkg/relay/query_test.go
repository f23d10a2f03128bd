package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nostrd/pkg/blossom"
	"github.com/cuemby/nostrd/pkg/config"
	"github.com/cuemby/nostrd/pkg/nostr"
	"github.com/cuemby/nostrd/pkg/storage"
)

func rawFilters(t *testing.T, jsonFilters ...string) []json.RawMessage {
	t.Helper()
	raws := make([]json.RawMessage, len(jsonFilters))
	for i, s := range jsonFilters {
		raws[i] = json.RawMessage(s)
	}
	return raws
}

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

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	blobs, err := blossom.NewStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		ListenAddr:       ":0",
		RelayName:        "test",
		MaxSubscriptions: 20,
		MaxMessageBytes:  1 << 20,
	}
	return NewServer(cfg, store, blobs)
}

func TestRunFilter_ByID(t *testing.T) {
	s := newTestServer(t)

	e := &nostr.Event{ID: mustID(t, 0x01), Pubkey: mustPubkey(t, 0x02), CreatedAt: 100, Kind: 1}
	_, err := s.store.Append(e)
	require.NoError(t, err)

	events, err := s.runFilter(&nostr.Filter{IDs: []nostr.ID{e.ID}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, e.ID, events[0].ID)
}

func TestRunFilter_ByAuthorAndKind(t *testing.T) {
	s := newTestServer(t)

	author := mustPubkey(t, 0xAA)
	e1 := &nostr.Event{ID: mustID(t, 0x01), Pubkey: author, CreatedAt: 100, Kind: 1}
	e2 := &nostr.Event{ID: mustID(t, 0x02), Pubkey: author, CreatedAt: 200, Kind: 7}
	_, err := s.store.Append(e1)
	require.NoError(t, err)
	_, err = s.store.Append(e2)
	require.NoError(t, err)

	events, err := s.runFilter(&nostr.Filter{
		Authors: []nostr.Pubkey{author},
		Kinds:   []uint64{1},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, e1.ID, events[0].ID)
}

func TestRunFilter_ByTag(t *testing.T) {
	s := newTestServer(t)

	e := &nostr.Event{
		ID:        mustID(t, 0x01),
		Pubkey:    mustPubkey(t, 0x02),
		CreatedAt: 100,
		Kind:      1,
		Tags:      []nostr.Tag{{"e", "deadbeef"}},
	}
	_, err := s.store.Append(e)
	require.NoError(t, err)

	events, err := s.runFilter(&nostr.Filter{
		TagValues: map[byte][]string{'e': {"deadbeef"}},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestRunFilter_SuppressesDeletedEvents(t *testing.T) {
	s := newTestServer(t)

	e := &nostr.Event{ID: mustID(t, 0x01), Pubkey: mustPubkey(t, 0x02), CreatedAt: 100, Kind: 1}
	_, err := s.store.Append(e)
	require.NoError(t, err)
	require.NoError(t, s.store.MarkDeleted(e.ID))

	events, err := s.runFilter(&nostr.Filter{IDs: []nostr.ID{e.ID}})
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestRunFilter_RespectsLimit(t *testing.T) {
	s := newTestServer(t)

	author := mustPubkey(t, 0xBB)
	for i := byte(0); i < 5; i++ {
		e := &nostr.Event{ID: mustID(t, i+1), Pubkey: author, CreatedAt: uint64(100 + i), Kind: 1}
		_, err := s.store.Append(e)
		require.NoError(t, err)
	}

	events, err := s.runFilter(&nostr.Filter{Authors: []nostr.Pubkey{author}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest-first ordering.
	require.Greater(t, events[0].CreatedAt, events[1].CreatedAt)
}

func TestDecodeFilters(t *testing.T) {
	raws := rawFilters(t, `{"ids":["`+mustID(t, 0x01).String()+`"],"kinds":[1],"limit":5}`)

	filters, err := decodeFilters(raws)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	require.Equal(t, []uint64{1}, filters[0].Kinds)
	require.Equal(t, 5, filters[0].Limit)
}

func TestDecodeFilters_RejectsEmpty(t *testing.T) {
	_, err := decodeFilters(nil)
	require.Error(t, err)
}
