package httptransport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/audit"
	"custos/internal/consent/models"
	"custos/internal/consent/orchestrator"
	"custos/internal/consent/receipt"
	"custos/internal/consent/store"
	"custos/internal/consent/version"
	"custos/internal/geo"
	"custos/internal/platform/health"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testServices = []models.Service{
	{ID: "matomo", Category: models.CategoryAnalytics},
	{ID: "ad-server", Category: models.CategoryMarketing},
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := testLogger()
	backend := store.NewMemoryBackend("memory")

	cfg := orchestrator.Config{
		Categories: []models.Category{models.CategoryAnalytics, models.CategoryMarketing},
		Services:   testServices,
		Versioning: version.Config{Mode: version.ModeAuto},
	}

	factory := func(visitorID string) (*orchestrator.Orchestrator, *audit.Logger, error) {
		st := store.New(store.Config{
			Key: store.DefaultKey + ":" + visitorID,
		}, []store.Backend{backend}, visitorID, logger)
		trail := audit.NewLogger()
		resolver := geo.NewResolver(geo.Config{
			Manual: &geo.Manual{Country: "DE"},
		}, nil, logger)
		orch, err := orchestrator.New(cfg, resolver, st, logger, orchestrator.WithAudit(trail))
		return orch, trail, err
	}

	manager := NewManager(factory, time.Hour, logger)
	issuer, err := receipt.NewIssuer([]byte("test-secret"), "custos", time.Hour)
	require.NoError(t, err)

	h := NewHandler(manager, issuer, testServices, logger)
	return NewRouter(h, health.New("test"), logger)
}

// client carries the visitor cookie between requests like a browser would.
type client struct {
	router  http.Handler
	cookies []*http.Cookie
}

func (c *client) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.7:51234"
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) consentResponse {
	t.Helper()
	var resp consentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGetConsentFirstVisit(t *testing.T) {
	c := &client{router: newTestRouter(t)}

	rec := c.do(t, http.MethodGet, "/v1/consent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, c.cookies, "a visitor cookie is minted on first contact")

	resp := decodeState(t, rec)
	assert.Equal(t, orchestrator.StateReady, resp.Consent.State)
	assert.Equal(t, "gdpr", resp.Consent.Law.String())
	assert.False(t, resp.Consent.Record.HasConsented)
	assert.Equal(t, "granted", string(resp.DownstreamSignals["security_storage"]))
	assert.Equal(t, "denied", string(resp.DownstreamSignals["analytics_storage"]))
	assert.Empty(t, resp.UnblockedServices)
}

func TestAcceptAllFlow(t *testing.T) {
	c := &client{router: newTestRouter(t)}
	c.do(t, http.MethodGet, "/v1/consent", "")

	rec := c.do(t, http.MethodPost, "/v1/consent/accept-all", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeState(t, rec)
	assert.True(t, resp.Consent.Record.HasConsented)
	assert.Equal(t, "granted", string(resp.DownstreamSignals["ad_storage"]))
	assert.ElementsMatch(t, []string{"matomo", "ad-server"}, resp.UnblockedServices)

	// State survives across requests under the same cookie.
	resp = decodeState(t, c.do(t, http.MethodGet, "/v1/consent", ""))
	assert.True(t, resp.Consent.Record.HasConsented)
}

func TestPatchConsentPartialUpdate(t *testing.T) {
	c := &client{router: newTestRouter(t)}
	c.do(t, http.MethodGet, "/v1/consent", "")

	rec := c.do(t, http.MethodPatch, "/v1/consent",
		`{"categories":{"analytics":true},"services":{"matomo":false}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeState(t, rec)
	assert.True(t, resp.Consent.Record.Categories[models.CategoryAnalytics])
	assert.NotContains(t, resp.UnblockedServices, "matomo", "service override wins")
}

func TestPatchConsentUnknownCategory(t *testing.T) {
	c := &client{router: newTestRouter(t)}
	c.do(t, http.MethodGet, "/v1/consent", "")

	rec := c.do(t, http.MethodPatch, "/v1/consent", `{"categories":{"tracking":true}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_category")
}

func TestPatchConsentMalformedBody(t *testing.T) {
	c := &client{router: newTestRouter(t)}
	rec := c.do(t, http.MethodPatch, "/v1/consent", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteConsentResets(t *testing.T) {
	c := &client{router: newTestRouter(t)}
	c.do(t, http.MethodGet, "/v1/consent", "")
	c.do(t, http.MethodPost, "/v1/consent/accept-all", "")

	rec := c.do(t, http.MethodDelete, "/v1/consent", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeState(t, rec)
	assert.False(t, resp.Consent.Record.HasConsented)
	assert.Empty(t, resp.UnblockedServices)
}

func TestReceiptRequiresDecision(t *testing.T) {
	c := &client{router: newTestRouter(t)}
	c.do(t, http.MethodGet, "/v1/consent", "")

	rec := c.do(t, http.MethodGet, "/v1/consent/receipt", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "no decision, nothing to attest")

	c.do(t, http.MethodPost, "/v1/consent/accept-all", "")
	rec = c.do(t, http.MethodGet, "/v1/consent/receipt", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["receipt"])
}

func TestAuditExportFormats(t *testing.T) {
	c := &client{router: newTestRouter(t)}
	c.do(t, http.MethodGet, "/v1/consent", "")
	c.do(t, http.MethodPost, "/v1/consent/accept-all", "")

	rec := c.do(t, http.MethodGet, "/v1/audit/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []audit.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionAcceptAll, entries[0].Action)

	rec = c.do(t, http.MethodGet, "/v1/audit/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "timestamp,action")

	rec = c.do(t, http.MethodGet, "/v1/audit/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditVerify(t *testing.T) {
	c := &client{router: newTestRouter(t)}
	c.do(t, http.MethodGet, "/v1/consent", "")
	c.do(t, http.MethodPost, "/v1/consent/accept-all", "")

	rec := c.do(t, http.MethodGet, "/v1/audit/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)
}

func TestHealthEndpoints(t *testing.T) {
	c := &client{router: newTestRouter(t)}
	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := c.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestManagerSweepEvictsIdleSessions(t *testing.T) {
	logger := testLogger()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	factory := func(string) (*orchestrator.Orchestrator, *audit.Logger, error) {
		resolver := geo.NewResolver(geo.Config{Manual: &geo.Manual{Country: "DE"}}, nil, logger)
		orch, err := orchestrator.New(orchestrator.Config{}, resolver, nil, logger)
		return orch, audit.NewLogger(), err
	}
	m := NewManager(factory, 10*time.Minute, logger,
		WithManagerClock(func() time.Time { return now }))

	_, err := m.Acquire("visitor-a")
	require.NoError(t, err)
	now = now.Add(5 * time.Minute)
	_, err = m.Acquire("visitor-b")
	require.NoError(t, err)

	now = now.Add(7 * time.Minute)
	assert.Equal(t, 1, m.Sweep(), "only the session idle past the ttl is evicted")
	assert.Equal(t, 1, m.Len())

	// The surviving session is the recently seen one.
	_, err = m.Acquire("visitor-b")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}
