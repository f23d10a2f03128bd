package relay

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/cuemby/nostrd/pkg/metrics"
	"github.com/cuemby/nostrd/pkg/nostr"
	"github.com/cuemby/nostrd/pkg/storage"
)

// wireFilter is the JSON shape of a NIP-01 filter. Single-letter tag
// filters ("#e", "#p", ...) are the only field not named explicitly; they
// are recovered in UnmarshalJSON from whatever other keys are present.
type wireFilter struct {
	IDs       []string            `json:"ids,omitempty"`
	Authors   []string            `json:"authors,omitempty"`
	Kinds     []uint64            `json:"kinds,omitempty"`
	Since     *uint64             `json:"since,omitempty"`
	Until     *uint64             `json:"until,omitempty"`
	Limit     int                 `json:"limit,omitempty"`
	TagValues map[byte][]string   `json:"-"`
}

func (wf *wireFilter) UnmarshalJSON(data []byte) error {
	type alias wireFilter
	if err := json.Unmarshal(data, (*alias)(wf)); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	wf.TagValues = make(map[byte][]string)
	for key, val := range raw {
		if len(key) != 2 || key[0] != '#' {
			continue
		}
		var values []string
		if err := json.Unmarshal(val, &values); err != nil {
			return fmt.Errorf("filter tag %q: %w", key, err)
		}
		wf.TagValues[key[1]] = values
	}
	return nil
}

// decodeFilters parses the REQ message's trailing filter objects into
// storage-core filter values.
func decodeFilters(raws []json.RawMessage) ([]*nostr.Filter, error) {
	if len(raws) == 0 {
		return nil, fmt.Errorf("at least one filter is required")
	}

	filters := make([]*nostr.Filter, 0, len(raws))
	for _, raw := range raws {
		var wf wireFilter
		if err := json.Unmarshal(raw, &wf); err != nil {
			return nil, fmt.Errorf("decode filter: %w", err)
		}

		f := &nostr.Filter{
			Kinds:     wf.Kinds,
			Since:     wf.Since,
			Until:     wf.Until,
			Limit:     wf.Limit,
			TagValues: wf.TagValues,
		}
		for _, idHex := range wf.IDs {
			id, err := nostr.IDFromHex(idHex)
			if err != nil {
				return nil, fmt.Errorf("filter ids: %w", err)
			}
			f.IDs = append(f.IDs, id)
		}
		for _, pkHex := range wf.Authors {
			pk, err := nostr.PubkeyFromHex(pkHex)
			if err != nil {
				return nil, fmt.Errorf("filter authors: %w", err)
			}
			f.Authors = append(f.Authors, pk)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// runFilter turns a NIP-01 filter into one or more storage-core scan or
// lookup calls and intersects the results in memory. This is glue, not a
// query planner: it picks whichever index is most selective for the
// filter's shape and lets Filter.Matches enforce every remaining
// constraint.
func (s *Server) runFilter(f *nostr.Filter) ([]*nostr.Event, error) {
	timer := metrics.NewTimer()
	r := filterTimeRange(f)

	var candidates []*nostr.Event
	var err error
	var indexUsed string

	switch {
	case len(f.IDs) > 0:
		indexUsed = "id"
		candidates, err = s.candidatesByID(f.IDs)
	case len(f.Authors) > 0:
		indexUsed = "author"
		candidates, err = s.candidatesByAuthor(f.Authors, r)
	case len(f.TagValues) > 0:
		indexUsed = "tag"
		candidates, err = s.candidatesByTag(f.TagValues, r)
	default:
		indexUsed = "time"
		candidates, err = s.store.ScanByTime(r)
	}
	timer.ObserveDurationVec(metrics.ScanDuration, indexUsed)
	if err != nil {
		return nil, err
	}

	matched := make([]*nostr.Event, 0, len(candidates))
	for _, e := range candidates {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt > matched[j].CreatedAt
	})
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *Server) candidatesByID(ids []nostr.ID) ([]*nostr.Event, error) {
	events := make([]*nostr.Event, 0, len(ids))
	for _, id := range ids {
		deleted, err := s.store.IsDeleted(id)
		if err != nil {
			return nil, err
		}
		if deleted {
			continue
		}
		e, err := s.store.GetByID(id)
		if err == storage.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *Server) candidatesByAuthor(authors []nostr.Pubkey, r storage.TimeRange) ([]*nostr.Event, error) {
	seen := make(map[nostr.ID]struct{})
	var events []*nostr.Event
	for _, author := range authors {
		found, err := s.store.ScanByAuthor(author, r)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			events = append(events, e)
		}
	}
	return events, nil
}

// candidatesByTag scans the first tag constraint named in the filter.
// Only one tag name drives the index lookup; any remaining tag names are
// still enforced afterward by Filter.Matches.
func (s *Server) candidatesByTag(tagValues map[byte][]string, r storage.TimeRange) ([]*nostr.Event, error) {
	var name byte
	var values []string
	for n, v := range tagValues {
		name, values = n, v
		break
	}

	seen := make(map[nostr.ID]struct{})
	var events []*nostr.Event
	for _, value := range values {
		found, err := s.store.ScanByTag(name, value, r)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			events = append(events, e)
		}
	}
	return events, nil
}

func filterTimeRange(f *nostr.Filter) storage.TimeRange {
	r := storage.TimeRange{From: 0, To: math.MaxUint64}
	if f.Since != nil {
		r.From = *f.Since
	}
	if f.Until != nil {
		r.To = *f.Until
	}
	return r
}
