// Package httptransport is the thin HTTP layer over the consent engine. It
// delegates to the per-visitor orchestrator without embedding business logic.
package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"

	"custos/internal/audit"
	"custos/internal/consent/models"
	"custos/internal/consent/orchestrator"
	"custos/internal/consent/receipt"
	"custos/internal/downstream"
	jsonutil "custos/internal/transport/http/json"
	dErrors "custos/pkg/domain-errors"
)

// visitorCookie carries the anonymous visitor identifier that keys sessions.
const visitorCookie = "custos_visitor"

// Handler serves the consent API.
type Handler struct {
	manager  *Manager
	issuer   *receipt.Issuer
	services []models.Service
	logger   *slog.Logger
}

// NewHandler constructs the HTTP handler. issuer may be nil, which disables
// the receipt endpoint.
func NewHandler(manager *Manager, issuer *receipt.Issuer, services []models.Service, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, issuer: issuer, services: services, logger: logger}
}

// session resolves the visitor cookie (minting one on first contact),
// acquires the session, and runs the idempotent init sequence.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, error) {
	visitorID := ""
	if cookie, err := r.Cookie(visitorCookie); err == nil {
		if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
			visitorID = cookie.Value
		}
	}
	if visitorID == "" {
		visitorID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     visitorCookie,
			Value:    visitorID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	sess, err := h.manager.Acquire(visitorID)
	if err != nil {
		return nil, err
	}
	if err := sess.Orchestrator.Init(r.Context(), r.Header, clientIP(r)); err != nil {
		return nil, err
	}
	return sess, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// consentResponse is the full state answer for GET and mutations.
type consentResponse struct {
	Consent           orchestrator.Snapshot                   `json:"consent"`
	DownstreamSignals map[downstream.Signal]downstream.Status `json:"downstreamSignals"`
	UnblockedServices []string                                `json:"unblockedServices"`
}

func (h *Handler) writeState(w http.ResponseWriter, sess *Session, status int) {
	snap := sess.Orchestrator.Snapshot()
	record := snap.Record
	if snap.Preview {
		// Preview unblocks nothing downstream.
		record = nil
	}
	jsonutil.WriteJSON(w, status, consentResponse{
		Consent:           snap,
		DownstreamSignals: downstream.FromRecord(record),
		UnblockedServices: downstream.Unblocked(record, h.services),
	})
}

// handleGetConsent returns the current consent state.
func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w, sess, http.StatusOK)
}

func (h *Handler) handleAcceptAll(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(sess *Session) error {
		return sess.Orchestrator.AcceptAll(r.Context())
	})
}

func (h *Handler) handleRejectAll(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(sess *Session) error {
		return sess.Orchestrator.RejectAll(r.Context())
	})
}

// updateRequest is the PATCH body: partial category and service decisions.
type updateRequest struct {
	Categories map[string]bool `json:"categories"`
	Services   map[string]bool `json:"services"`
}

func (h *Handler) handleUpdateConsent(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, string(dErrors.CodeBadRequest), "malformed request body")
		return
	}
	categories := make(map[models.Category]bool, len(req.Categories))
	for c, granted := range req.Categories {
		categories[models.Category(c)] = granted
	}
	h.mutate(w, r, func(sess *Session) error {
		return sess.Orchestrator.Update(r.Context(), categories, req.Services)
	})
}

func (h *Handler) handleResetConsent(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(sess *Session) error {
		return sess.Orchestrator.Reset(r.Context())
	})
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(*Session) error) {
	sess, err := h.session(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := op(sess); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w, sess, http.StatusOK)
}

// handleReceipt issues a signed receipt for the current decision.
func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		jsonutil.WriteError(w, http.StatusNotFound, string(dErrors.CodeNotFound), "receipts are not enabled")
		return
	}
	sess, err := h.session(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	snap := sess.Orchestrator.Snapshot()
	signed, err := h.issuer.Issue(snap.Record, sess.Audit.SessionID())
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{"receipt": signed})
}

// handleAuditExport streams the visitor's audit trail as JSON or CSV.
func (h *Handler) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	entries := sess.Audit.Entries()

	switch r.URL.Query().Get("format") {
	case "csv":
		out, err := audit.ExportCSV(entries)
		if err != nil {
			h.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	case "", "json":
		out, err := audit.ExportJSON(entries)
		if err != nil {
			h.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	default:
		jsonutil.WriteError(w, http.StatusBadRequest, string(dErrors.CodeBadRequest), "unknown export format")
	}
}

// handleAuditVerify recomputes every entry digest.
func (h *Handler) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	results := sess.Audit.Verify()
	valid := true
	for _, res := range results {
		if !res.Valid {
			valid = false
			break
		}
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{"valid": valid, "entries": results})
}

// writeError translates domain errors to the uniform envelope.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := dErrors.CodeInternal

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		switch domainErr.Code {
		case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation,
			dErrors.CodeInvalidPayload, dErrors.CodeUnknownCategory, dErrors.CodeUnknownService:
			status = http.StatusBadRequest
		case dErrors.CodeNotFound:
			status = http.StatusNotFound
		case dErrors.CodeNotReady, dErrors.CodePreviewMode, dErrors.CodeConflict:
			status = http.StatusConflict
		case dErrors.CodeRateLimited:
			status = http.StatusTooManyRequests
		}
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	jsonutil.WriteError(w, status, string(code), err.Error())
}
