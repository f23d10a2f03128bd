package nostr

// Filter is a NIP-01 subscription filter. A nil or empty slice field
// means "no constraint on this dimension"; TagValues is keyed by the
// single-letter tag name (the "#e", "#p", etc. filter fields).
type Filter struct {
	IDs       []ID
	Authors   []Pubkey
	Kinds     []uint64
	TagValues map[byte][]string
	Since     *uint64
	Until     *uint64
	Limit     int
}

// MatchesKind reports whether the filter accepts events of this kind.
func (f *Filter) MatchesKind(kind uint64) bool {
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// MatchesTags reports whether the event's tags satisfy every tag
// constraint in the filter (AND across tag names, OR within a name's
// value list, per NIP-01).
func (f *Filter) MatchesTags(tags []Tag) bool {
	for name, values := range f.TagValues {
		if len(values) == 0 {
			continue
		}
		matched := false
		for _, t := range tags {
			if len(t.Name()) != 1 || t.Name()[0] != name {
				continue
			}
			for _, v := range values {
				if t.Value() == v {
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Matches reports whether event e satisfies every dimension of the
// filter. It does not consult the deletion set; suppressing tombstoned
// events is the caller's responsibility (spec: tombstone is a read-side
// filter, not a log mutation).
func (f *Filter) Matches(e *Event) bool {
	if len(f.IDs) > 0 {
		ok := false
		for _, id := range f.IDs {
			if id == e.ID {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Authors) > 0 {
		ok := false
		for _, a := range f.Authors {
			if a == e.Pubkey {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.MatchesKind(e.Kind) {
		return false
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && e.CreatedAt > *f.Until {
		return false
	}
	return f.MatchesTags(e.Tags)
}
