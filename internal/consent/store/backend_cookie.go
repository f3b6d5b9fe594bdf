package store

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"custos/internal/sentinel"
	dErrors "custos/pkg/domain-errors"
)

// maxCookieValue keeps the encoded payload inside common per-cookie limits.
const maxCookieValue = 4000

// CookieBackend adapts an HTTP cookie surface to the Backend interface. The
// transport layer constructs one per request from the inbound cookies and
// flushes pending writes onto the response.
type CookieBackend struct {
	mu      sync.Mutex
	values  map[string]string
	pending []*http.Cookie
	maxAge  int
}

// NewCookieBackend seeds the backend from the request's cookies. maxAge is
// the lifetime in seconds applied to written cookies.
func NewCookieBackend(req *http.Request, maxAge int) *CookieBackend {
	b := &CookieBackend{values: make(map[string]string), maxAge: maxAge}
	if req != nil {
		for _, c := range req.Cookies() {
			if value, err := url.QueryUnescape(c.Value); err == nil {
				b.values[c.Name] = value
			}
		}
	}
	return b
}

// Name identifies the backend in logs.
func (b *CookieBackend) Name() string { return "cookie" }

func (b *CookieBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.values[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return value, nil
}

func (b *CookieBackend) Set(_ context.Context, key, value string) error {
	encoded := url.QueryEscape(value)
	if len(encoded) > maxCookieValue {
		return dErrors.New(dErrors.CodeStorageFailure, "consent payload exceeds cookie size limit")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	b.pending = append(b.pending, &http.Cookie{
		Name:     key,
		Value:    encoded,
		Path:     "/",
		MaxAge:   b.maxAge,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (b *CookieBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	b.pending = append(b.pending, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Flush writes all pending cookie mutations to the response. Later writes to
// the same name supersede earlier ones.
func (b *CookieBackend) Flush(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	latest := make(map[string]*http.Cookie, len(b.pending))
	order := make([]string, 0, len(b.pending))
	for _, c := range b.pending {
		if _, seen := latest[c.Name]; !seen {
			order = append(order, c.Name)
		}
		latest[c.Name] = c
	}
	for _, name := range order {
		http.SetCookie(w, latest[name])
	}
	b.pending = nil
}

var _ Backend = (*CookieBackend)(nil)
