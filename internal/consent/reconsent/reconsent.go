// Package reconsent decides whether a stored consent decision is still valid
// or must be re-asked. Evaluation is pure: inputs in, verdict out, no clock
// reads and no storage access.
package reconsent

import (
	"time"

	"custos/internal/consent/models"
	"custos/internal/law"
)

// Reason identifies why a stored decision was invalidated.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNoTimestamp  Reason = "no_timestamp"
	ReasonExpired      Reason = "expired"
	ReasonPolicyChange Reason = "policy_change"
	ReasonNewCategory  Reason = "new_category"
)

// Policy carries the effective reconsent parameters: the jurisdiction's
// defaults, optionally overridden by site configuration.
type Policy struct {
	// MaxAgeDays invalidates decisions older than this many days. Zero
	// disables time-based reconsent.
	MaxAgeDays int

	// OnPolicyChange invalidates when the stored policy version differs from
	// the current one.
	OnPolicyChange bool

	// OnNewCategory invalidates when the configuration carries a category the
	// visitor has never been shown.
	OnNewCategory bool
}

// PolicyFor derives the effective policy from a jurisdiction's configuration.
// Overrides with a non-nil field replace the law default.
func PolicyFor(cfg law.Config, overrides *Policy) Policy {
	p := Policy{
		MaxAgeDays:     cfg.ReconsentDays,
		OnPolicyChange: cfg.ReconsentOnPolicyChange,
		OnNewCategory:  cfg.ReconsentOnNewCategory,
	}
	if overrides != nil {
		p = *overrides
	}
	return p
}

// Verdict is the evaluation outcome.
type Verdict struct {
	Required bool
	Reason   Reason
}

// Evaluate checks a stored decision against the policy. The first matching
// trigger wins; triggers are checked in order of severity: missing timestamp,
// age, policy drift, unseen category.
//
// The age check is inclusive: a decision aged exactly MaxAgeDays is expired.
func Evaluate(record *models.Record, p Policy, currentVersion string, configured []models.Category, now time.Time) Verdict {
	if record == nil || !record.HasConsented {
		return Verdict{}
	}

	if record.Timestamp == nil {
		return Verdict{Required: true, Reason: ReasonNoTimestamp}
	}

	if p.MaxAgeDays > 0 {
		age := now.Sub(*record.Timestamp)
		if age >= time.Duration(p.MaxAgeDays)*24*time.Hour {
			return Verdict{Required: true, Reason: ReasonExpired}
		}
	}

	if p.OnPolicyChange && currentVersion != "" && record.PolicyVersion != "" &&
		record.PolicyVersion != currentVersion {
		return Verdict{Required: true, Reason: ReasonPolicyChange}
	}

	if p.OnNewCategory {
		for _, c := range configured {
			if _, seen := record.Categories[c]; !seen {
				return Verdict{Required: true, Reason: ReasonNewCategory}
			}
		}
	}

	return Verdict{}
}
