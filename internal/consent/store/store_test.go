package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/consent/models"
	dErrors "custos/pkg/domain-errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingBackend rejects every operation, standing in for a full or disabled
// storage surface.
type failingBackend struct{}

func (failingBackend) Name() string { return "failing" }
func (failingBackend) Get(context.Context, string) (string, error) {
	return "", errors.New("disabled")
}
func (failingBackend) Set(context.Context, string, string) error { return errors.New("quota exceeded") }
func (failingBackend) Delete(context.Context, string) error      { return errors.New("disabled") }

func storeRecord(t *testing.T) *models.Record {
	t.Helper()
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &models.Record{
		HasConsented:  true,
		Timestamp:     &ts,
		Categories:    map[models.Category]bool{models.CategoryNecessary: true, models.CategoryAnalytics: true},
		PolicyVersion: "1.0.0",
	}
	r.Normalize()
	return r
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	backend := NewMemoryBackend("local")
	s := New(Config{}, []Backend{backend}, "inst-1", testLogger())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, storeRecord(t)))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Categories[models.CategoryAnalytics])
}

func TestStoreLoadNothingStored(t *testing.T) {
	s := New(Config{}, []Backend{NewMemoryBackend("local")}, "inst-1", testLogger())
	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStoreRejectedPayloadDeletesEntry(t *testing.T) {
	backend := NewMemoryBackend("local")
	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, DefaultKey, `{"v":"evil"}`))

	s := New(Config{}, []Backend{backend}, "inst-1", testLogger())
	loaded, err := s.Load(ctx)
	assert.Nil(t, loaded)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload))

	_, err = backend.Get(ctx, DefaultKey)
	assert.Error(t, err, "invalid entry is deleted, fail closed")
}

func TestStoreZeroConfigSanitizes(t *testing.T) {
	// The region field smuggles markup, which sanitization rejects outright.
	tampered := `{"v":"1.0","t":"2026-05-01T12:00:00Z","c":{"a":1},"r":"<script>"}`
	backend := NewMemoryBackend("local")
	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, DefaultKey, tampered))

	s := New(Config{}, []Backend{backend}, "inst-1", testLogger())
	loaded, err := s.Load(ctx)
	assert.Nil(t, loaded)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload),
		"a zero-value config must not trust stored payloads")

	require.NoError(t, backend.Set(ctx, DefaultKey, tampered))
	trusted := New(Config{DisableSanitize: true}, []Backend{backend}, "inst-1", testLogger())
	loaded, err = trusted.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded, "opting out of sanitization is explicit")
}

func TestStoreFirstBackendWithDataWins(t *testing.T) {
	first := NewMemoryBackend("first")
	second := NewMemoryBackend("second")
	ctx := context.Background()

	writer := New(Config{}, []Backend{second}, "other", testLogger())
	require.NoError(t, writer.Save(ctx, storeRecord(t)))

	s := New(Config{}, []Backend{first, second}, "inst-1", testLogger())
	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
}

func TestStoreSaveSurvivesPartialBackendFailure(t *testing.T) {
	healthy := NewMemoryBackend("healthy")
	s := New(Config{}, []Backend{failingBackend{}, healthy}, "inst-1", testLogger())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, storeRecord(t)))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestStoreSaveFailsWhenAllBackendsFail(t *testing.T) {
	s := New(Config{}, []Backend{failingBackend{}}, "inst-1", testLogger())
	err := s.Save(context.Background(), storeRecord(t))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStorageFailure))
}

func TestStoreClearRemovesFromAllBackends(t *testing.T) {
	first := NewMemoryBackend("first")
	second := NewMemoryBackend("second")
	s := New(Config{}, []Backend{first, second}, "inst-1", testLogger())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, storeRecord(t)))
	require.NoError(t, s.Clear(ctx))

	for _, b := range []Backend{first, second} {
		_, err := b.Get(ctx, DefaultKey)
		assert.Error(t, err)
	}
}

func TestStoreSubscribeIgnoresOwnWrites(t *testing.T) {
	shared := NewMemoryBackend("shared")
	mine := New(Config{}, []Backend{shared}, "inst-1", testLogger())
	theirs := New(Config{}, []Backend{shared}, "inst-2", testLogger())
	ctx := context.Background()

	var events []ChangeEvent
	mine.Subscribe(func(ev ChangeEvent) { events = append(events, ev) })

	require.NoError(t, mine.Save(ctx, storeRecord(t)))
	assert.Empty(t, events, "own writes are filtered")

	require.NoError(t, theirs.Save(ctx, storeRecord(t)))
	require.Len(t, events, 1)
	assert.Equal(t, "inst-2", events[0].Origin)
}

func TestCookieBackendRoundTripAndFlush(t *testing.T) {
	ctx := context.Background()
	b := NewCookieBackend(nil, 3600)

	require.NoError(t, b.Set(ctx, DefaultKey, `{"v":"1.0"}`))
	value, err := b.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `{"v":"1.0"}`, value)

	rec := httptest.NewRecorder()
	b.Flush(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultKey, cookies[0].Name)

	// A follow-up request carrying the cookie reconstructs the value.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	reloaded := NewCookieBackend(req, 3600)
	value, err = reloaded.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `{"v":"1.0"}`, value)
}

func TestCookieBackendRejectsOversizedPayload(t *testing.T) {
	b := NewCookieBackend(nil, 3600)
	big := make([]byte, maxCookieValue+1)
	for i := range big {
		big[i] = 'a'
	}
	err := b.Set(context.Background(), DefaultKey, string(big))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStorageFailure))
}
