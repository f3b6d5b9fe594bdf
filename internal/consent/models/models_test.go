package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultForcesNecessary(t *testing.T) {
	r := NewDefault([]Category{CategoryAnalytics, CategoryMarketing}, "1.0.0")

	assert.False(t, r.HasConsented)
	assert.True(t, r.Categories[CategoryNecessary])
	assert.False(t, r.Categories[CategoryAnalytics])
	assert.False(t, r.Categories[CategoryMarketing])
}

func TestNormalizeOverridesStoredNecessaryFalse(t *testing.T) {
	r := &Record{Categories: map[Category]bool{CategoryNecessary: false}}
	r.Normalize()
	assert.True(t, r.Categories[CategoryNecessary])
}

func TestCloneIsDetached(t *testing.T) {
	ts := time.Now()
	r := &Record{
		HasConsented: true,
		Timestamp:    &ts,
		Categories:   map[Category]bool{CategoryNecessary: true, CategoryAnalytics: true},
		Services:     map[string]bool{"matomo": false},
	}

	clone := r.Clone()
	clone.Categories[CategoryAnalytics] = false
	clone.Services["matomo"] = true
	*clone.Timestamp = ts.Add(time.Hour)

	assert.True(t, r.Categories[CategoryAnalytics])
	assert.False(t, r.Services["matomo"])
	assert.True(t, r.Timestamp.Equal(ts))
}

func TestServiceAllowedOverrideWinsOverCategory(t *testing.T) {
	r := &Record{
		Categories: map[Category]bool{CategoryAnalytics: true},
		Services:   map[string]bool{"matomo": false},
	}
	svc := Service{ID: "matomo", Category: CategoryAnalytics}
	assert.False(t, r.ServiceAllowed(svc), "explicit override wins")

	delete(r.Services, "matomo")
	assert.True(t, r.ServiceAllowed(svc), "absent entry falls back to category")
}

func TestCategoryCodesRoundTrip(t *testing.T) {
	for _, c := range AllCategories() {
		code, ok := c.Code()
		require.True(t, ok)
		require.Len(t, code, 1)
		back, ok := CategoryFromCode(code)
		require.True(t, ok)
		assert.Equal(t, c, back)
	}
	_, ok := CategoryFromCode("z")
	assert.False(t, ok)
}
