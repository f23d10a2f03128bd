// Package nostr holds the wire-level event and filter types a relay
// exchanges with clients, independent of how the storage core encodes
// and indexes them.
package nostr

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// IDSize and PubkeySize are fixed per NIP-01: both are 32-byte values,
// hex-encoded on the wire.
const (
	IDSize     = 32
	PubkeySize = 32
)

// ID is a 32-byte event content hash.
type ID [IDSize]byte

// Pubkey is a 32-byte event author key.
type Pubkey [PubkeySize]byte

func (id ID) String() string      { return hex.EncodeToString(id[:]) }
func (pk Pubkey) String() string  { return hex.EncodeToString(pk[:]) }
func (id ID) Bytes() []byte       { return id[:] }
func (pk Pubkey) Bytes() []byte   { return pk[:] }

// IDFromHex decodes a 64-character hex string into an ID.
func IDFromHex(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("decode id: %w", err)
	}
	if len(b) != IDSize {
		return id, fmt.Errorf("decode id: want %d bytes, got %d", IDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// PubkeyFromHex decodes a 64-character hex string into a Pubkey.
func PubkeyFromHex(s string) (Pubkey, error) {
	var pk Pubkey
	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, fmt.Errorf("decode pubkey: %w", err)
	}
	if len(b) != PubkeySize {
		return pk, fmt.Errorf("decode pubkey: want %d bytes, got %d", PubkeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// Tag is an ordered list of byte strings; by convention the first element
// is the tag name, and a single-byte name marks it as indexable.
type Tag []string

// Name returns the tag's first element, or "" if the tag is empty.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's second element, or "" if it has none.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Indexable reports whether this tag qualifies for tc_index: its name
// must be exactly one byte long and it must carry a value.
func (t Tag) Indexable() bool {
	return len(t.Name()) == 1 && len(t) >= 2
}

// Event is the unit of storage: a signed nostr record. Kind-5 events
// (NIP-09 deletions) are ordinary events from the log's point of view;
// the relay shell is responsible for acting on their `e` tags.
type Event struct {
	ID        ID
	Pubkey    Pubkey
	CreatedAt uint64
	Kind      uint64
	Tags      []Tag
	Content   string
	Sig       string
}

// wireEvent is the JSON shape of an event as sent over the wire (NIP-01):
// id/pubkey/sig are hex strings, tags are arrays of arrays of strings.
type wireEvent struct {
	ID        string   `json:"id"`
	Pubkey    string   `json:"pubkey"`
	CreatedAt uint64   `json:"created_at"`
	Kind      uint64   `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string   `json:"content"`
	Sig       string   `json:"sig"`
}

// MarshalJSON encodes the event in the NIP-01 wire shape.
func (e *Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		ID:        e.ID.String(),
		Pubkey:    e.Pubkey.String(),
		CreatedAt: e.CreatedAt,
		Kind:      e.Kind,
		Content:   e.Content,
		Sig:       e.Sig,
	}
	w.Tags = make([][]string, len(e.Tags))
	for i, t := range e.Tags {
		w.Tags[i] = []string(t)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an event from the NIP-01 wire shape. It does not
// verify the signature; callers that need NIP-01 validity (id = hash of
// the serialized fields, sig verifies against pubkey) must check that
// separately before calling Store.Append.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	id, err := IDFromHex(w.ID)
	if err != nil {
		return err
	}
	pk, err := PubkeyFromHex(w.Pubkey)
	if err != nil {
		return err
	}
	e.ID = id
	e.Pubkey = pk
	e.CreatedAt = w.CreatedAt
	e.Kind = w.Kind
	e.Content = w.Content
	e.Sig = w.Sig
	e.Tags = make([]Tag, len(w.Tags))
	for i, t := range w.Tags {
		e.Tags[i] = Tag(t)
	}
	return nil
}

// KindDeletion is the NIP-09 deletion event kind.
const KindDeletion = 5

// DeletionTargets returns the ids referenced by this event's "e" tags.
// Only meaningful when Kind == KindDeletion.
func (e *Event) DeletionTargets() []ID {
	var ids []ID
	for _, t := range e.Tags {
		if t.Name() != "e" {
			continue
		}
		if id, err := IDFromHex(t.Value()); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
