// Package audit keeps a bounded in-memory trail of consent mutations with
// per-entry integrity digests. The trail is evidential, not authoritative:
// losing it never affects consent state.
package audit

import (
	"sort"
	"strings"
	"time"

	"custos/internal/consent/models"
	"custos/internal/law"
)

// Action identifies the consent mutation an entry records.
type Action string

const (
	ActionAcceptAll  Action = "accept_all"
	ActionRejectAll  Action = "reject_all"
	ActionUpdate     Action = "update"
	ActionReset      Action = "reset"
	ActionAutoOptOut Action = "auto_opt_out"
)

// Entry is one immutable audit record. Categories and Services are snapshots
// taken at mutation time; ClientSignature carries only coarse, anonymized
// client material.
type Entry struct {
	Timestamp       time.Time                `json:"timestamp"`
	Action          Action                   `json:"action"`
	Categories      map[models.Category]bool `json:"categories"`
	Services        map[string]bool          `json:"services,omitempty"`
	Region          string                   `json:"region,omitempty"`
	Law             law.Jurisdiction         `json:"law,omitempty"`
	PolicyVersion   string                   `json:"policyVersion,omitempty"`
	SessionID       string                   `json:"sessionId"`
	ClientSignature string                   `json:"clientSignature,omitempty"`
	Hash            string                   `json:"hash"`
}

// canonical renders the digest input. Field order and separators are part of
// the stored format; category codes are sorted so the string is deterministic.
func (e Entry) canonical() string {
	codes := make([]string, 0, len(e.Categories))
	for c, granted := range e.Categories {
		code, ok := c.Code()
		if !ok {
			code = string(c)
		}
		bit := "0"
		if granted {
			bit = "1"
		}
		codes = append(codes, code+"="+bit)
	}
	sort.Strings(codes)
	return strings.Join([]string{
		e.Timestamp.UTC().Format(time.RFC3339),
		string(e.Action),
		strings.Join(codes, ","),
		e.PolicyVersion,
		e.SessionID,
	}, "|")
}
