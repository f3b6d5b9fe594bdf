package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/consent/models"
	"custos/internal/law"
	dErrors "custos/pkg/domain-errors"
)

func decidedRecord() *models.Record {
	ts := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	r := &models.Record{
		HasConsented: true,
		Timestamp:    &ts,
		Categories: map[models.Category]bool{
			models.CategoryNecessary: true,
			models.CategoryAnalytics: true,
		},
		Services:      map[string]bool{"matomo": true},
		Region:        "DE",
		Law:           law.GDPR,
		PolicyVersion: "1.0.0",
	}
	r.Normalize()
	return r
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issuer, err := NewIssuer([]byte("test-secret"), "custos", time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue(decidedRecord(), "session-123")
	require.NoError(t, err)

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "session-123", claims.Subject)
	assert.Equal(t, "custos", claims.Issuer)
	assert.Equal(t, "gdpr", claims.Law)
	assert.Equal(t, "DE", claims.Region)
	assert.True(t, claims.Categories["analytics"])
	assert.True(t, claims.Services["matomo"])
	assert.NotEmpty(t, claims.ID)
}

func TestIssueRejectsUndecidedRecord(t *testing.T) {
	issuer, err := NewIssuer([]byte("test-secret"), "custos", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Issue(&models.Record{}, "session-123")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotReady))
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	a, err := NewIssuer([]byte("secret-a"), "custos", time.Hour)
	require.NoError(t, err)
	b, err := NewIssuer([]byte("secret-b"), "custos", time.Hour)
	require.NoError(t, err)

	raw, err := a.Issue(decidedRecord(), "session-123")
	require.NoError(t, err)

	_, err = b.Verify(raw)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload))
}

func TestVerifyRejectsExpiredReceipt(t *testing.T) {
	issued := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	clock := issued
	issuer, err := NewIssuer([]byte("test-secret"), "custos", time.Minute,
		WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	raw, err := issuer.Issue(decidedRecord(), "session-123")
	require.NoError(t, err)

	clock = issued.Add(2 * time.Minute)
	_, err = issuer.Verify(raw)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload))
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer(nil, "custos", time.Hour)
	assert.Error(t, err)
}
