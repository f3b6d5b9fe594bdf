// Package version detects configuration drift: it fingerprints the configured
// service set and compares it against the fingerprint recorded when consent
// was last given.
package version

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"custos/internal/digest"
)

// Mode selects how the current policy version is derived.
type Mode string

const (
	// ModeAuto fingerprints the configured service set.
	ModeAuto Mode = "auto"
	// ModeManual uses an operator-supplied literal.
	ModeManual Mode = "manual"
)

// EmptyServicesHash is the reserved sentinel for an empty service set. It is
// never produced by the digest.
const EmptyServicesHash = "00000000"

// Config carries versioning parameters.
type Config struct {
	Mode Mode
	// Version is the manual-mode literal. Ignored in auto mode.
	Version string
}

// Info is the ephemeral version metadata written alongside every consent
// mutation. It is distinct from the consent record itself.
type Info struct {
	Version      string    `json:"version"`
	Mode         Mode      `json:"mode"`
	ServicesHash string    `json:"servicesHash"`
	Timestamp    time.Time `json:"timestamp"`
}

// Change describes detected drift for surfacing to the caller.
type Change struct {
	OldVersion string
	NewVersion string
	Mode       Mode
}

// Describe renders the drift for logs and operator-facing surfaces.
func (c *Change) Describe() string {
	if c.Mode == ModeManual {
		return fmt.Sprintf("policy version changed from %q to %q", c.OldVersion, c.NewVersion)
	}
	return fmt.Sprintf("configured services changed (fingerprint %s -> %s)", c.OldVersion, c.NewVersion)
}

// Fingerprint computes the stable 8-hex-character digest of the sorted,
// deduplicated service identifier set. Invariant under permutation; the empty
// set yields EmptyServicesHash.
func Fingerprint(services []string) string {
	unique := make(map[string]struct{}, len(services))
	for _, id := range services {
		if id != "" {
			unique[id] = struct{}{}
		}
	}
	if len(unique) == 0 {
		return EmptyServicesHash
	}
	sorted := make([]string, 0, len(unique))
	for id := range unique {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	return digest.Sum32Hex(strings.Join(sorted, "|"))
}

// Current returns the active policy version: the manual literal or the
// service fingerprint depending on mode.
func Current(cfg Config, services []string) string {
	if cfg.Mode == ModeManual {
		return cfg.Version
	}
	return Fingerprint(services)
}

// NewInfo builds the metadata recorded with a consent mutation.
func NewInfo(cfg Config, services []string, now time.Time) Info {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeAuto
	}
	return Info{
		Version:      Current(cfg, services),
		Mode:         mode,
		ServicesHash: Fingerprint(services),
		Timestamp:    now,
	}
}

// HasChanged reports whether the configuration drifted since stored was
// written. Absent metadata is a first run, never a drift event.
func HasChanged(stored *Info, cfg Config, services []string) (bool, *Change) {
	if stored == nil {
		return false, nil
	}
	if cfg.Mode == ModeManual {
		if literalsEqual(stored.Version, cfg.Version) {
			return false, nil
		}
		return true, &Change{OldVersion: stored.Version, NewVersion: cfg.Version, Mode: ModeManual}
	}
	current := Fingerprint(services)
	if stored.ServicesHash == current {
		return false, nil
	}
	return true, &Change{OldVersion: stored.ServicesHash, NewVersion: current, Mode: ModeAuto}
}

// literalsEqual compares manual version literals, semver-aware when both
// parse ("1.2" equals "1.2.0"), raw string equality otherwise.
func literalsEqual(a, b string) bool {
	if a == b {
		return true
	}
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return false
	}
	return va.Equal(vb)
}
