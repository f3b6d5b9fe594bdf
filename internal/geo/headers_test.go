package geo

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHeadersProviderPriority(t *testing.T) {
	h := http.Header{}
	h.Set("CF-IPCountry", "DE")
	h.Set("CloudFront-Viewer-Country", "US")
	h.Set("CloudFront-Viewer-Country-Region", "CA")

	// CloudFront outranks Cloudflare in the fixed order.
	result := fromHeaders(h)
	require.NotNil(t, result)
	assert.Equal(t, "US", result.Country)
	assert.Equal(t, "CA", result.Region)
	assert.Equal(t, SourceHeaders, result.Source)
}

func TestFromHeadersCountryOnlyProvider(t *testing.T) {
	h := http.Header{}
	h.Set("CF-IPCountry", "fr")

	result := fromHeaders(h)
	require.NotNil(t, result)
	assert.Equal(t, "FR", result.Country)
	assert.Empty(t, result.Region)
}

func TestFromHeadersIgnoresUnknownMarkers(t *testing.T) {
	for _, marker := range []string{"XX", "T1"} {
		h := http.Header{}
		h.Set("CF-IPCountry", marker)
		assert.Nil(t, fromHeaders(h), "marker %s must not resolve", marker)
	}
}

func TestFromHeadersRejectsMalformedValues(t *testing.T) {
	h := http.Header{}
	h.Set("X-Country-Code", "<script>")
	assert.Nil(t, fromHeaders(h))

	h = http.Header{}
	h.Set("CloudFront-Viewer-Country", "US")
	h.Set("CloudFront-Viewer-Country-Region", "not a region")
	result := fromHeaders(h)
	require.NotNil(t, result)
	assert.Empty(t, result.Region, "malformed region is dropped, country kept")
}

func TestFromHeadersNoSignals(t *testing.T) {
	assert.Nil(t, fromHeaders(http.Header{}))
	assert.Nil(t, fromHeaders(nil))
}
