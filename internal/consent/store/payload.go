package store

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"custos/internal/consent/models"
	"custos/internal/law"
	"custos/internal/sentinel"
	dErrors "custos/pkg/domain-errors"
)

// SchemaVersion is the persisted payload schema version.
const SchemaVersion = "1.0"

// Storage is writable by anything with script access to the origin, including
// compromised third-party code, so every field of a loaded payload is
// validated before it is trusted. Structural violations reject the whole
// payload; per-entry violations inside the category/service maps drop only
// the offending entry.
var (
	versionPattern    = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){0,2}$`)
	timestampPattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)
	regionPattern     = regexp.MustCompile(`^[A-Z]{2}(-[A-Z0-9]{1,3})?$`)
	lawPattern        = regexp.MustCompile(`^[a-z][a-z0-9-]{0,31}$`)
	serviceKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

	// Characters that could be interpreted as markup or script triggers.
	markupChars = strings.NewReplacer("<", "", ">", "", "\"", "", "'", "", "&", "", "`", "")
)

const (
	maxTimestampLen     = 40
	maxPolicyVersionLen = 64
	maxServiceEntries   = 256
)

// payload is the untrusted compact wire form.
type payload struct {
	V  string         `json:"v"`
	T  string         `json:"t"`
	C  map[string]any `json:"c"`
	S  map[string]any `json:"s,omitempty"`
	R  *string        `json:"r"`
	L  *string        `json:"l"`
	PV string         `json:"pv"`
}

// Encode serializes a record into the compact payload form.
func Encode(record *models.Record) (string, error) {
	if record == nil || record.Timestamp == nil {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "only decided records are persisted")
	}
	p := payload{
		V:  SchemaVersion,
		T:  record.Timestamp.UTC().Format(time.RFC3339),
		C:  make(map[string]any, len(record.Categories)),
		PV: record.PolicyVersion,
	}
	for category, decision := range record.Categories {
		code, ok := category.Code()
		if !ok {
			continue
		}
		p.C[code] = boolToBit(decision)
	}
	if len(record.Services) > 0 {
		p.S = make(map[string]any, len(record.Services))
		for id, decision := range record.Services {
			p.S[id] = boolToBit(decision)
		}
	}
	if record.Region != "" {
		region := record.Region
		p.R = &region
	}
	if record.Law != "" {
		lawID := string(record.Law)
		p.L = &lawID
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode consent payload")
	}
	return string(raw), nil
}

// Decode parses and sanitizes a persisted payload. Any structural violation
// returns sentinel.ErrInvalidPayload so the caller can fail closed and delete
// the backend entry.
func Decode(raw string) (*models.Record, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, sentinel.ErrInvalidPayload
	}

	if !versionPattern.MatchString(p.V) {
		return nil, sentinel.ErrInvalidPayload
	}
	if len(p.T) > maxTimestampLen || !timestampPattern.MatchString(p.T) {
		return nil, sentinel.ErrInvalidPayload
	}
	ts, err := time.Parse(time.RFC3339, p.T)
	if err != nil {
		return nil, sentinel.ErrInvalidPayload
	}

	policyVersion := markupChars.Replace(p.PV)
	if len(policyVersion) > maxPolicyVersionLen {
		return nil, sentinel.ErrInvalidPayload
	}

	record := &models.Record{
		HasConsented:  true,
		Timestamp:     &ts,
		Categories:    sanitizeCategories(p.C),
		Services:      sanitizeServices(p.S),
		PolicyVersion: policyVersion,
	}

	if p.R != nil {
		if !regionPattern.MatchString(*p.R) {
			return nil, sentinel.ErrInvalidPayload
		}
		record.Region = *p.R
	}
	if p.L != nil {
		if !lawPattern.MatchString(*p.L) {
			return nil, sentinel.ErrInvalidPayload
		}
		record.Law = law.Jurisdiction(*p.L)
	}

	record.Normalize()
	return record, nil
}

// sanitizeCategories keeps only keys from the fixed single-character alphabet
// with values exactly 0 or 1; anything else is dropped without rejecting the
// remaining entries.
func sanitizeCategories(raw map[string]any) map[models.Category]bool {
	out := make(map[models.Category]bool, len(raw))
	for key, value := range raw {
		category, ok := models.CategoryFromCode(key)
		if !ok {
			continue
		}
		bit, ok := bitValue(value)
		if !ok {
			continue
		}
		out[category] = bit
	}
	return out
}

// sanitizeServices keeps only well-formed service ids with values exactly 0
// or 1. An empty result is treated as "no services".
func sanitizeServices(raw map[string]any) map[string]bool {
	out := make(map[string]bool, len(raw))
	count := 0
	for key, value := range raw {
		if count >= maxServiceEntries {
			break
		}
		if !serviceKeyPattern.MatchString(key) {
			continue
		}
		bit, ok := bitValue(value)
		if !ok {
			continue
		}
		out[key] = bit
		count++
	}
	return out
}

// decodeUnsanitized parses a payload without the pattern checks. Only for
// trusted test fixtures; the entry-level 0/1 filtering still applies because
// the maps must become booleans either way.
func decodeUnsanitized(raw string) (*models.Record, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, sentinel.ErrInvalidPayload
	}
	ts, err := time.Parse(time.RFC3339, p.T)
	if err != nil {
		return nil, sentinel.ErrInvalidPayload
	}
	record := &models.Record{
		HasConsented:  true,
		Timestamp:     &ts,
		Categories:    sanitizeCategories(p.C),
		Services:      sanitizeServices(p.S),
		PolicyVersion: p.PV,
	}
	if p.R != nil {
		record.Region = *p.R
	}
	if p.L != nil {
		record.Law = law.Jurisdiction(*p.L)
	}
	record.Normalize()
	return record, nil
}

// bitValue accepts exactly the JSON numbers 0 and 1.
func bitValue(v any) (bool, bool) {
	f, ok := v.(float64)
	if !ok {
		return false, false
	}
	switch f {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return false, false
	}
}

func boolToBit(b bool) int {
	if b {
		return 1
	}
	return 0
}
