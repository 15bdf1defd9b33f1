package leaderboard

import (
	"sort"
)

// AssembleOptions controls page construction.
type AssembleOptions struct {
	Limit            int
	RequestingUserID string
	// SelfLabel overrides the requester's display name. Empty means DefaultSelfLabel.
	SelfLabel string
}

// Assemble ranks values and returns the displayed page.
//
// Entries are sorted by metric value descending, ties broken by user id
// ascending. The first Limit entries are shown. When the requester has a
// nonzero value outside the page, that single entry is appended, so the page
// can hold Limit+1 entries. Every entry carries its position in the full
// sorted list as its rank. Display names other than the requester's are
// filled in later by ApplyProfiles.
func Assemble(values map[string]int64, opts AssembleOptions) []Entry {
	if opts.Limit <= 0 || len(values) == 0 {
		return []Entry{}
	}

	sorted := sortedIDs(values)

	size := min(opts.Limit, len(sorted))
	page := make([]Entry, 0, size+1)
	selfShown := false

	for i := 0; i < size; i++ {
		id := sorted[i]
		page = append(page, newEntry(id, values[id], i+1, opts))
		if id == opts.RequestingUserID {
			selfShown = true
		}
	}

	if !selfShown && opts.RequestingUserID != "" {
		if v, ok := values[opts.RequestingUserID]; ok && v != 0 {
			rank := indexOf(sorted, opts.RequestingUserID) + 1
			page = append(page, newEntry(opts.RequestingUserID, v, rank, opts))
		}
	}

	return page
}

func sortedIDs(values map[string]int64) []string {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		vi, vj := values[ids[i]], values[ids[j]]
		if vi != vj {
			return vi > vj
		}
		return ids[i] < ids[j]
	})
	return ids
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func newEntry(id string, value int64, rank int, opts AssembleOptions) Entry {
	e := Entry{
		UserID:      id,
		MetricValue: value,
		Rank:        rank,
		IsSelf:      id == opts.RequestingUserID,
	}
	if e.IsSelf {
		label := opts.SelfLabel
		if label == "" {
			label = DefaultSelfLabel
		}
		e.DisplayName = &label
	}
	return e
}

// UserIDs returns the distinct user ids across pages, in first-seen order.
func UserIDs(pages ...[]Entry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, page := range pages {
		for _, e := range page {
			if _, ok := seen[e.UserID]; ok {
				continue
			}
			seen[e.UserID] = struct{}{}
			out = append(out, e.UserID)
		}
	}
	return out
}

// ApplyProfiles sets display names from profiles. The requester's entry keeps
// its self label; entries without a named profile keep a nil DisplayName.
func ApplyProfiles(entries []Entry, profiles map[string]Profile) {
	for i := range entries {
		if entries[i].IsSelf {
			continue
		}
		if p, ok := profiles[entries[i].UserID]; ok && p.Name != "" {
			name := p.Name
			entries[i].DisplayName = &name
		}
	}
}
