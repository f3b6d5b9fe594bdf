package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/consent/models"
)

const sampleSite = `
categories:
  - analytics
  - marketing
services:
  - id: matomo
    category: analytics
  - id: ad-server
    category: marketing
versioning:
  mode: manual
  version: "2.1.0"
geo:
  primaryEndpoint: https://geo.example.com/json
  fallback: strictest
  rateLimit: 5
  rateWindow: 60s
reconsent:
  maxAgeDays: 180
  onPolicyChange: true
signals:
  respectGpc: true
`

func TestParseSite(t *testing.T) {
	site, err := ParseSite([]byte(sampleSite))
	require.NoError(t, err)

	assert.Equal(t, []models.Category{models.CategoryAnalytics, models.CategoryMarketing}, site.CategoryList())
	require.Len(t, site.Services, 2)
	assert.Equal(t, models.CategoryAnalytics, site.Services[0].Category)
	assert.Equal(t, "manual", site.Versioning.Mode)
	assert.Equal(t, "strictest", site.Geo.Fallback)
	assert.Equal(t, 60*time.Second, site.Geo.RateWindow.Std())
	require.NotNil(t, site.Reconsent)
	assert.Equal(t, 180, site.Reconsent.MaxAgeDays)
	assert.True(t, site.Signals.RespectGPC)
	assert.False(t, site.Signals.RespectDNT)
}

func TestParseSiteRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown category", "categories: [tracking]"},
		{"service with unlisted category", "services:\n  - id: x\n    category: analytics"},
		{"service without id", "services:\n  - category: analytics"},
		{"unknown versioning mode", "versioning:\n  mode: magic"},
		{"manual mode without version", "versioning:\n  mode: manual"},
		{"broken yaml", "categories: ["},
		{"bad duration", "geo:\n  rateWindow: sixty"},
		{"unknown storage backend", "storage:\n  backends: [cookie-jar]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSite([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseSiteNecessaryServicesAllowed(t *testing.T) {
	site, err := ParseSite([]byte("services:\n  - id: session\n    category: necessary"))
	require.NoError(t, err)
	assert.Equal(t, models.CategoryNecessary, site.Services[0].Category)
}
