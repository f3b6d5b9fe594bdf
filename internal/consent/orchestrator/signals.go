package orchestrator

import "net/http"

// Signals carries the machine-readable privacy preferences a request can
// express. Either one, when honored, produces an automatic necessary-only
// decision for an undecided visitor.
type Signals struct {
	// DoNotTrack is the legacy DNT: 1 header.
	DoNotTrack bool `json:"doNotTrack"`
	// GlobalPrivacyControl is the Sec-GPC: 1 header.
	GlobalPrivacyControl bool `json:"globalPrivacyControl"`
}

// SignalsFromHeaders reads the two signal headers. Only the literal value "1"
// asserts a preference; anything else, including "0" and absence, does not.
func SignalsFromHeaders(h http.Header) Signals {
	return Signals{
		DoNotTrack:           h.Get("DNT") == "1",
		GlobalPrivacyControl: h.Get("Sec-GPC") == "1",
	}
}

// Active reports whether any signal asserts a preference.
func (s Signals) Active() bool {
	return s.DoNotTrack || s.GlobalPrivacyControl
}

// label names the strongest asserted signal for metrics and audit context.
func (s Signals) label() string {
	switch {
	case s.GlobalPrivacyControl:
		return "gpc"
	case s.DoNotTrack:
		return "dnt"
	default:
		return ""
	}
}
