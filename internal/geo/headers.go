package geo

import (
	"net/http"
	"regexp"
	"strings"
)

// headerProvider describes one edge network's geolocation headers. Region is
// optional; providers that only expose a country still match.
type headerProvider struct {
	name          string
	countryHeader string
	regionHeader  string
}

// headerProviders is consulted in order; the first provider whose country
// header is present wins. The order is fixed: CDNs that sit closest to the
// viewer first.
var headerProviders = []headerProvider{
	{name: "cloudfront", countryHeader: "CloudFront-Viewer-Country", regionHeader: "CloudFront-Viewer-Country-Region"},
	{name: "cloudflare", countryHeader: "CF-IPCountry"},
	{name: "vercel", countryHeader: "X-Vercel-IP-Country", regionHeader: "X-Vercel-IP-Country-Region"},
	{name: "fastly", countryHeader: "Fastly-Geo-Country", regionHeader: "Fastly-Geo-Region"},
	{name: "generic", countryHeader: "X-Country-Code", regionHeader: "X-Region-Code"},
}

var (
	countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)
	regionCodePattern  = regexp.MustCompile(`^[A-Z0-9]{1,3}$`)
)

// fromHeaders extracts a location from edge network header hints. Values are
// upper-cased and validated against the code patterns; malformed values are
// treated as absent. Cloudflare uses "XX"/"T1" for unknown/Tor, which carry
// no usable location.
func fromHeaders(h http.Header) *Result {
	if h == nil {
		return nil
	}
	for _, p := range headerProviders {
		country := strings.ToUpper(strings.TrimSpace(h.Get(p.countryHeader)))
		if country == "" || country == "XX" || country == "T1" {
			continue
		}
		if !countryCodePattern.MatchString(country) {
			continue
		}
		result := &Result{Country: country, Source: SourceHeaders}
		if p.regionHeader != "" {
			region := strings.ToUpper(strings.TrimSpace(h.Get(p.regionHeader)))
			if regionCodePattern.MatchString(region) {
				result.Region = region
			}
		}
		return result
	}
	return nil
}
