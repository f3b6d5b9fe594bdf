// Package receipt issues signed consent receipts: portable, verifiable proof
// of what a visitor decided, when, and under which jurisdiction.
package receipt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"custos/internal/consent/models"
	dErrors "custos/pkg/domain-errors"
)

// Claims is the receipt body. The registered subject carries the audit
// session id so a receipt can be matched to its trail.
type Claims struct {
	jwt.RegisteredClaims
	Categories    map[string]bool `json:"categories"`
	Services      map[string]bool `json:"services,omitempty"`
	Law           string          `json:"law"`
	Region        string          `json:"region,omitempty"`
	PolicyVersion string          `json:"policyVersion"`
	DecidedAt     time.Time       `json:"decidedAt"`
}

// Issuer signs and verifies receipts with a shared HMAC secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer constructs an Issuer. The secret must be non-empty; ttl bounds
// receipt validity.
func NewIssuer(secret []byte, issuer string, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidPayload, "receipt signing secret is empty")
	}
	i := &Issuer{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a receipt for a decided record. Undecided records have nothing
// to attest and are rejected.
func (i *Issuer) Issue(record *models.Record, sessionID string) (string, error) {
	if record == nil || !record.HasConsented || record.Timestamp == nil {
		return "", dErrors.New(dErrors.CodeNotReady, "no consent decision to attest")
	}

	categories := make(map[string]bool, len(record.Categories))
	for c, granted := range record.Categories {
		categories[string(c)] = granted
	}
	services := make(map[string]bool, len(record.Services))
	for id, granted := range record.Services {
		services[id] = granted
	}

	now := i.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   sessionID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Categories:    categories,
		Services:      services,
		Law:           record.Law.String(),
		Region:        record.Region,
		PolicyVersion: record.PolicyVersion,
		DecidedAt:     record.Timestamp.UTC(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeStorageFailure, "receipt signing failed")
	}
	return signed, nil
}

// Verify parses and validates a receipt. Only HS256 with this issuer's secret
// is accepted.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidPayload, "receipt rejected")
	}
	return claims, nil
}
