package sync

import (
	"sort"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
)

// Resolver decides whether two message records denote the same logical
// message and produces the canonical merged list. All list mutation in the
// engine funnels through Merge, which keeps the no-duplicate and
// no-resurrection invariants enforceable in one place.
type Resolver struct {
	ledger *TombstoneLedger
}

func NewResolver(ledger *TombstoneLedger) *Resolver {
	return &Resolver{ledger: ledger}
}

// Merge folds incoming records into existing and returns the canonical list:
// tombstone-filtered, at most one record per identity, sorted by CreatedAt
// ascending with ties keeping their relative order.
//
// On an identity match the incoming record wins for all fields except
// identity fields. When the existing record is pending and the incoming one
// supplies a server id, the result keeps the local id and gains the server
// id (promotion, not replacement) so the record's identity stays stable
// across the optimistic→confirmed transition.
func (r *Resolver) Merge(existing, incoming []model.Message) []model.Message {
	result := make([]model.Message, 0, len(existing)+len(incoming))
	byServer := make(map[string]int)
	byLocal := make(map[string]int)

	add := func(m model.Message) {
		if !m.HasIdentity() || r.ledger.Hits(&m) {
			return
		}
		m.Pending = m.ServerID == ""

		idx := -1
		if m.ServerID != "" {
			if i, ok := byServer[m.ServerID]; ok {
				idx = i
			}
		}
		if idx < 0 && m.LocalID != "" {
			if i, ok := byLocal[m.LocalID]; ok {
				idx = i
			}
		}

		if idx < 0 {
			result = append(result, m)
			idx = len(result) - 1
		} else {
			prev := result[idx]
			// Identity fields are a union, never lost in a replace.
			if m.LocalID == "" {
				m.LocalID = prev.LocalID
			}
			if m.ServerID == "" {
				m.ServerID = prev.ServerID
			}
			m.Pending = m.ServerID == ""
			result[idx] = m
		}
		if m.ServerID != "" {
			byServer[m.ServerID] = idx
		}
		if m.LocalID != "" {
			byLocal[m.LocalID] = idx
		}
	}

	for _, m := range existing {
		add(m)
	}
	for _, m := range incoming {
		add(m)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})
	return result
}

// Dedupe collapses duplicates within a single unordered set, e.g. a fetched
// history page that may repeat records the push channel already delivered.
func (r *Resolver) Dedupe(msgs []model.Message) []model.Message {
	return r.Merge(nil, msgs)
}
