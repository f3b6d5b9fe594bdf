package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/consent/models"
	"custos/internal/law"
)

func auditRecord() *models.Record {
	ts := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	r := &models.Record{
		HasConsented: true,
		Timestamp:    &ts,
		Categories: map[models.Category]bool{
			models.CategoryNecessary: true,
			models.CategoryAnalytics: true,
			models.CategoryMarketing: false,
		},
		Services:      map[string]bool{"matomo": true},
		Region:        "DE",
		Law:           law.GDPR,
		PolicyVersion: "1.2.0",
	}
	r.Normalize()
	return r
}

func TestLoggerRecordStampsSessionAndHash(t *testing.T) {
	l := NewLogger()
	entry := l.Record(ActionAcceptAll, auditRecord(), "chrome/mac os x/203.0.113.0")

	assert.Equal(t, l.SessionID(), entry.SessionID)
	assert.Regexp(t, "^[0-9a-f]{8}$", entry.Hash)
	assert.Equal(t, "chrome/mac os x/203.0.113.0", entry.ClientSignature)
	assert.Equal(t, law.GDPR, entry.Law)
}

func TestLoggerEntriesAreSnapshots(t *testing.T) {
	l := NewLogger()
	record := auditRecord()
	l.Record(ActionUpdate, record, "")

	record.Categories[models.CategoryAnalytics] = false

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Categories[models.CategoryAnalytics],
		"later record mutation does not reach the stored entry")
}

func TestLoggerEvictsOldestBeyondCapacity(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	l := NewLogger(WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))

	for i := 0; i < Capacity+10; i++ {
		l.Record(ActionUpdate, auditRecord(), "")
	}

	entries := l.Entries()
	require.Len(t, entries, Capacity)
	assert.Equal(t, base.Add(11*time.Minute), entries[0].Timestamp,
		"the first ten entries were evicted, oldest-first order holds")
	assert.True(t, entries[0].Timestamp.Before(entries[len(entries)-1].Timestamp))
}

func TestLoggerVerifyDetectsTamperingPerEntry(t *testing.T) {
	l := NewLogger()
	l.Record(ActionAcceptAll, auditRecord(), "")
	l.Record(ActionRejectAll, auditRecord(), "")

	l.entries[0].PolicyVersion = "tampered"

	results := l.Verify()
	require.Len(t, results, 2)
	assert.False(t, results[0].Valid)
	assert.True(t, results[1].Valid, "one bad entry does not poison the rest")
	assert.Equal(t, 2, l.Len(), "verification drops nothing")
}

func TestExportJSONRoundTrips(t *testing.T) {
	l := NewLogger()
	l.Record(ActionAcceptAll, auditRecord(), "firefox/linux/198.51.100.0")

	out, err := ExportJSON(l.Entries())
	require.NoError(t, err)

	var decoded []Entry
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, ActionAcceptAll, decoded[0].Action)
	assert.Equal(t, l.SessionID(), decoded[0].SessionID)
}

func TestExportJSONEmptyTrailIsEmptyArray(t *testing.T) {
	out, err := ExportJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(out))
}

func TestExportCSVShapeAndStability(t *testing.T) {
	l := NewLogger()
	l.Record(ActionUpdate, auditRecord(), "")

	out, err := ExportCSV(l.Entries())
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])

	categories := rows[1][2]
	assert.Equal(t, "analytics=1;marketing=0;necessary=1", categories,
		"category list is sorted for stable output")
	assert.Equal(t, "matomo=1", rows[1][3])
}

type fixedHasher struct{ value string }

func (h fixedHasher) Sum(string) string { return h.value }

func TestLoggerWithCustomHasher(t *testing.T) {
	l := NewLogger(WithHasher(fixedHasher{value: "deadbeef"}))
	entry := l.Record(ActionReset, auditRecord(), "")
	assert.Equal(t, "deadbeef", entry.Hash)
	for i, r := range l.Verify() {
		assert.True(t, r.Valid, fmt.Sprintf("entry %d", i))
	}
}
