// Package geo resolves a visitor's region from explicit overrides, edge
// network headers, a cached prior result, or remote lookup services, and
// applies a configured fallback strategy when every signal fails.
package geo

// Source identifies which signal produced a Result.
type Source string

const (
	SourceHeaders  Source = "headers"
	SourceAPI      Source = "api"
	SourceCache    Source = "cache"
	SourceManual   Source = "manual"
	SourceFallback Source = "fallback"
)

// Result is a resolved location. Country is an ISO 3166-1 alpha-2 code (or
// the reserved "EU" marker from the strictest fallback); Region is an
// optional first-level subdivision code.
type Result struct {
	Country        string `json:"country"`
	Region         string `json:"region,omitempty"`
	Source         Source `json:"source"`
	FallbackUsed   bool   `json:"fallbackUsed,omitempty"`
	FallbackReason string `json:"fallbackReason,omitempty"`

	// ShowWarning is set by the showWarning fallback strategy so the caller
	// can surface a user-facing notice about the unknown region.
	ShowWarning bool `json:"showWarning,omitempty"`
}

// FallbackStrategy selects the deterministic substitute behavior applied when
// resolution fails outright.
type FallbackStrategy string

const (
	// FallbackStrictest assumes the most privacy-protective regime.
	FallbackStrictest FallbackStrategy = "strictest"
	// FallbackPermissive assumes no specific jurisdiction.
	FallbackPermissive FallbackStrategy = "permissive"
	// FallbackRegion uses a configured default region.
	FallbackRegion FallbackStrategy = "region"
	// FallbackShowWarning returns an unknown-region marker flagged for a
	// user-facing notice.
	FallbackShowWarning FallbackStrategy = "showWarning"
	// FallbackNone applies no fallback; resolution stays absent.
	FallbackNone FallbackStrategy = "none"
)

// Fallback reason codes.
const (
	ReasonAllSignalsFailed = "all_signals_failed"
	ReasonRateLimited      = "rate_limited"
	ReasonLookupFailed     = "lookup_failed"
)

// Manual is an explicit operator-supplied location override. When present it
// wins unconditionally and suppresses all lookups.
type Manual struct {
	Country string
	Region  string
}
