// Package models holds the consent engine's domain types.
package models

import (
	"time"

	"custos/internal/law"
)

// Record is the authoritative consent decision for one visitor.
//
// Invariant: Categories[CategoryNecessary] is true at all times, regardless
// of any stored or requested value. Normalize enforces it; every code path
// that builds or mutates a Record must call it before the record escapes.
type Record struct {
	HasConsented bool
	Timestamp    *time.Time
	Categories   map[Category]bool
	Services     map[string]bool

	// Region is an ISO country or country-subdivision code; empty means
	// unresolved. Law is the determined jurisdiction; JurisdictionNone when
	// no specific law applies, empty when not yet determined.
	Region string
	Law    law.Jurisdiction

	PolicyVersion string
}

// NewDefault creates the empty/default record used on first run and after
// any invalidation: nothing consented, all known categories declined except
// necessary.
func NewDefault(categories []Category, policyVersion string) *Record {
	r := &Record{
		Categories:    make(map[Category]bool, len(categories)+1),
		Services:      make(map[string]bool),
		PolicyVersion: policyVersion,
	}
	for _, c := range categories {
		r.Categories[c] = false
	}
	r.Normalize()
	return r
}

// Normalize enforces record invariants in place: maps are non-nil and the
// necessary category is true.
func (r *Record) Normalize() {
	if r.Categories == nil {
		r.Categories = make(map[Category]bool)
	}
	if r.Services == nil {
		r.Services = make(map[string]bool)
	}
	r.Categories[CategoryNecessary] = true
}

// Clone returns a deep copy so published snapshots cannot mutate the
// authoritative record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Categories = make(map[Category]bool, len(r.Categories))
	for k, v := range r.Categories {
		clone.Categories[k] = v
	}
	clone.Services = make(map[string]bool, len(r.Services))
	for k, v := range r.Services {
		clone.Services[k] = v
	}
	if r.Timestamp != nil {
		ts := *r.Timestamp
		clone.Timestamp = &ts
	}
	return &clone
}

// ServiceAllowed reports the effective decision for a service: an explicit
// per-service override wins, otherwise the service's category decision
// applies.
func (r *Record) ServiceAllowed(svc Service) bool {
	if decision, ok := r.Services[svc.ID]; ok {
		return decision
	}
	return r.Categories[svc.Category]
}

// CategoryIDs returns the ids of the categories recorded on r. Used by the
// reconsent evaluator to detect categories the visitor has never seen.
func (r *Record) CategoryIDs() []Category {
	out := make([]Category, 0, len(r.Categories))
	for c := range r.Categories {
		out = append(out, c)
	}
	return out
}
