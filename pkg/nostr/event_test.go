package nostr

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEvent_JSONRoundTrip(t *testing.T) {
	id, err := IDFromHex(strings.Repeat("01", 32))
	if err != nil {
		t.Fatalf("IDFromHex() error = %v", err)
	}
	pk, err := PubkeyFromHex(strings.Repeat("02", 32))
	if err != nil {
		t.Fatalf("PubkeyFromHex() error = %v", err)
	}

	e := &Event{
		ID:        id,
		Pubkey:    pk,
		CreatedAt: 12345,
		Kind:      1,
		Tags:      []Tag{{"e", "deadbeef"}},
		Content:   "gm",
		Sig:       "deadbeef",
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.ID != e.ID || got.Pubkey != e.Pubkey || got.CreatedAt != e.CreatedAt || got.Content != e.Content {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, e)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name() != "e" || got.Tags[0].Value() != "deadbeef" {
		t.Errorf("tags round trip mismatch: got %+v", got.Tags)
	}
}

func TestTag_Indexable(t *testing.T) {
	cases := []struct {
		tag  Tag
		want bool
	}{
		{Tag{"e", "abcd"}, true},
		{Tag{"expiration", "123"}, false},
		{Tag{"e"}, false},
		{Tag{}, false},
	}
	for _, c := range cases {
		if got := c.tag.Indexable(); got != c.want {
			t.Errorf("Tag(%v).Indexable() = %v, want %v", c.tag, got, c.want)
		}
	}
}

func TestEvent_DeletionTargets(t *testing.T) {
	target, _ := IDFromHex(strings.Repeat("03", 32))
	e := &Event{
		Kind: KindDeletion,
		Tags: []Tag{
			{"e", target.String()},
			{"p", "not-an-id-tag"},
		},
	}

	targets := e.DeletionTargets()
	if len(targets) != 1 || targets[0] != target {
		t.Errorf("DeletionTargets() = %v, want [%v]", targets, target)
	}
}

func TestIDFromHex_WrongLength(t *testing.T) {
	if _, err := IDFromHex("deadbeef"); err == nil {
		t.Error("IDFromHex() with short hex should error")
	}
}
