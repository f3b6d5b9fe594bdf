// Package orchestrator owns one visitor's consent lifecycle: it loads any
// stored decision, invalidates it when expired or drifted, resolves the
// applicable jurisdiction, honors machine-readable privacy signals, and
// serializes every mutation through a single state machine.
package orchestrator

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"custos/internal/audit"
	"custos/internal/consent/metrics"
	"custos/internal/consent/models"
	"custos/internal/consent/reconsent"
	"custos/internal/consent/store"
	"custos/internal/consent/version"
	"custos/internal/geo"
	"custos/internal/law"
	"custos/internal/platform/privacy"
	dErrors "custos/pkg/domain-errors"
)

// State is the lifecycle phase of one orchestrator.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateResolving     State = "resolving-jurisdiction"
	StateReady         State = "ready"
)

// Config carries the site's consent configuration.
type Config struct {
	Categories []models.Category
	Services   []models.Service

	Versioning version.Config

	// ReconsentOverrides, when set, replaces the jurisdiction's default
	// reconsent policy wholesale.
	ReconsentOverrides *reconsent.Policy

	// Preview runs the full lifecycle without persistence or audit. Mutations
	// update in-memory state only and the visitor is never reported as having
	// consented.
	Preview bool

	// RespectDNT and RespectGPC enable the automatic necessary-only decision
	// for the respective signal.
	RespectDNT bool
	RespectGPC bool
}

func (c Config) serviceIDs() []string {
	ids := make([]string, 0, len(c.Services))
	for _, s := range c.Services {
		ids = append(ids, s.ID)
	}
	return ids
}

func (c Config) findService(id string) (models.Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return models.Service{}, false
}

func (c Config) hasCategory(cat models.Category) bool {
	if cat == models.CategoryNecessary {
		return true
	}
	for _, have := range c.Categories {
		if have == cat {
			return true
		}
	}
	return false
}

// Snapshot is an immutable view of orchestrator state. The record is a deep
// copy; holders cannot mutate orchestrator state through it.
type Snapshot struct {
	State             State            `json:"state"`
	Record            *models.Record   `json:"record"`
	Geo               *geo.Result      `json:"geo,omitempty"`
	Law               law.Jurisdiction `json:"law"`
	LawConfig         law.Config       `json:"-"`
	PolicyVersion     string           `json:"policyVersion"`
	ReconsentRequired bool             `json:"reconsentRequired"`
	ReconsentReason   reconsent.Reason `json:"reconsentReason,omitempty"`
	VersionChanged    bool             `json:"versionChanged"`
	Preview           bool             `json:"preview"`
	Signals           Signals          `json:"signals"`
}

// Orchestrator drives one visitor's consent session. Safe for concurrent use;
// all mutations serialize through one mutex.
type Orchestrator struct {
	cfg      Config
	resolver *geo.Resolver
	store    *store.Store
	audit    *audit.Logger
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	mu                sync.Mutex
	state             State
	record            *models.Record
	geoResult         *geo.Result
	jurisdiction      law.Jurisdiction
	lawCfg            law.Config
	policyVersion     string
	reconsentRequired bool
	reconsentReason   reconsent.Reason
	versionChanged    bool
	signals           Signals
	clientSignature   string
	subscribers       []func(Snapshot)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAudit attaches the audit trail. Ignored in preview mode.
func WithAudit(l *audit.Logger) Option {
	return func(o *Orchestrator) { o.audit = l }
}

// WithMetrics attaches metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New constructs an orchestrator in the uninitialized state. st may be nil
// for storage-less sessions. Preview mode with a store is a configuration
// contradiction and is rejected.
func New(cfg Config, resolver *geo.Resolver, st *store.Store, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg.Preview && st != nil {
		return nil, dErrors.New(dErrors.CodePreviewMode, "preview mode cannot be combined with persistence")
	}
	o := &Orchestrator{
		cfg:          cfg,
		resolver:     resolver,
		store:        st,
		logger:       logger,
		now:          time.Now,
		state:        StateUninitialized,
		jurisdiction: law.JurisdictionNone,
	}
	for _, opt := range opts {
		opt(o)
	}
	if cfg.Preview {
		o.audit = nil
	}
	if o.store != nil {
		o.store.Subscribe(func(ev store.ChangeEvent) { o.adoptExternalChange(ev) })
	}
	return o, nil
}

// Init runs the startup sequence: load any stored decision, invalidate it if
// reconsent is due, resolve the jurisdiction, and honor privacy signals.
// Calling Init on a ready orchestrator is a no-op.
func (o *Orchestrator) Init(ctx context.Context, headers http.Header, remoteAddr string) error {
	o.mu.Lock()
	if o.state == StateReady {
		o.mu.Unlock()
		return nil
	}
	o.state = StateResolving
	o.clientSignature = privacy.ClientSignature(headers.Get("User-Agent"), remoteAddr)
	o.signals = SignalsFromHeaders(headers)
	o.mu.Unlock()

	stored := o.loadStored(ctx)

	geoResult, _ := o.resolver.ResolveWithFallback(ctx, headers)
	jurisdiction := law.Determine(geoResult)
	lawCfg := law.MustGet(jurisdiction)

	o.mu.Lock()
	o.geoResult = geoResult
	o.jurisdiction = jurisdiction
	o.lawCfg = lawCfg
	o.policyVersion = version.Current(o.cfg.Versioning, o.cfg.serviceIDs())

	if stored != nil {
		stored = o.validateStored(ctx, stored, lawCfg)
	}
	if stored != nil {
		o.record = stored
	} else {
		o.record = o.defaultRecord(lawCfg)
	}
	o.record.Region = regionString(geoResult)
	o.record.Law = jurisdiction
	o.state = StateReady
	o.mu.Unlock()

	o.applySignals(ctx)
	o.notify()
	return nil
}

// loadStored reads the persisted decision, treating a rejected payload as
// absent consent.
func (o *Orchestrator) loadStored(ctx context.Context) *models.Record {
	if o.store == nil || o.cfg.Preview {
		return nil
	}
	record, err := o.store.Load(ctx)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidPayload) && o.metrics != nil {
			o.metrics.InvalidPayloads.Inc()
		}
		o.logger.Warn("stored consent unusable, starting fresh", "error", err)
		return nil
	}
	return record
}

// validateStored runs the version drift check and the reconsent evaluation.
// Returns nil when the stored decision must be discarded. Caller holds the
// lock.
func (o *Orchestrator) validateStored(ctx context.Context, stored *models.Record, lawCfg law.Config) *models.Record {
	if stored.PolicyVersion != "" {
		prior := &version.Info{
			Version:      stored.PolicyVersion,
			ServicesHash: stored.PolicyVersion,
			Mode:         o.cfg.Versioning.Mode,
		}
		changed, change := version.HasChanged(prior, o.cfg.Versioning, o.cfg.serviceIDs())
		if changed {
			// Drift means the decision on file no longer covers what the
			// site runs today. That invalidates it everywhere, regardless
			// of whether the jurisdiction mandates reconsent on change.
			o.versionChanged = true
			o.logger.Info("policy version drift detected", "change", change.Describe())
			return o.discardStored(ctx, reconsent.ReasonPolicyChange)
		}
	}

	policy := reconsent.PolicyFor(lawCfg, o.cfg.ReconsentOverrides)
	verdict := reconsent.Evaluate(stored, policy, o.policyVersion, o.configuredCategories(), o.now())
	if !verdict.Required {
		return stored
	}
	return o.discardStored(ctx, verdict.Reason)
}

// discardStored records why the stored decision was invalidated and clears it
// from storage. Always returns nil. Caller holds the lock.
func (o *Orchestrator) discardStored(ctx context.Context, reason reconsent.Reason) *models.Record {
	o.reconsentRequired = true
	o.reconsentReason = reason
	if o.metrics != nil {
		o.metrics.IncrementReconsent(string(reason))
	}
	o.logger.Info("stored consent invalidated", "reason", string(reason))
	if o.store != nil {
		if err := o.store.Clear(ctx); err != nil {
			o.logger.Warn("failed to clear invalidated consent", "error", err)
		}
	}
	return nil
}

// defaultRecord builds the undecided record for this jurisdiction: opt-in
// regimes start with everything declined, opt-out regimes with everything
// granted until the visitor objects.
func (o *Orchestrator) defaultRecord(lawCfg law.Config) *models.Record {
	record := models.NewDefault(o.configuredCategories(), o.policyVersion)
	if lawCfg.Model == law.OptOut {
		for c := range record.Categories {
			record.Categories[c] = true
		}
	}
	return record
}

func (o *Orchestrator) configuredCategories() []models.Category {
	cats := make([]models.Category, 0, len(o.cfg.Categories)+1)
	cats = append(cats, models.CategoryNecessary)
	for _, c := range o.cfg.Categories {
		if c != models.CategoryNecessary {
			cats = append(cats, c)
		}
	}
	return cats
}

// applySignals produces the automatic necessary-only decision when an honored
// signal is present and the visitor has not decided yet. An explicit stored
// decision always outranks a signal.
func (o *Orchestrator) applySignals(ctx context.Context) {
	o.mu.Lock()
	honored := (o.signals.DoNotTrack && o.cfg.RespectDNT) ||
		(o.signals.GlobalPrivacyControl && o.cfg.RespectGPC)
	if !honored || o.record.HasConsented {
		o.mu.Unlock()
		return
	}
	for c := range o.record.Categories {
		o.record.Categories[c] = false
	}
	o.record.Services = make(map[string]bool)
	o.decide()
	signal := o.signals.label()
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.IncrementAutoOptOut(signal)
	}
	o.persistAndLog(ctx, audit.ActionAutoOptOut)
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns a detached view of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:             o.state,
		Record:            o.record.Clone(),
		Law:               o.jurisdiction,
		LawConfig:         o.lawCfg,
		PolicyVersion:     o.policyVersion,
		ReconsentRequired: o.reconsentRequired,
		ReconsentReason:   o.reconsentReason,
		VersionChanged:    o.versionChanged,
		Preview:           o.cfg.Preview,
		Signals:           o.signals,
	}
	if o.geoResult != nil {
		geoCopy := *o.geoResult
		snap.Geo = &geoCopy
	}
	if o.cfg.Preview && snap.Record != nil {
		// Preview sessions never report a consented visitor.
		snap.Record.HasConsented = false
	}
	return snap
}

// Subscribe registers fn for state change notifications. fn receives detached
// snapshots and is called synchronously after each change.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, fn)
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	subs := make([]func(Snapshot), len(o.subscribers))
	copy(subs, o.subscribers)
	snap := o.snapshotLocked()
	o.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// AcceptAll grants every configured category and clears service overrides.
func (o *Orchestrator) AcceptAll(ctx context.Context) error {
	return o.mutate(ctx, audit.ActionAcceptAll, func(r *models.Record) error {
		for c := range r.Categories {
			r.Categories[c] = true
		}
		r.Services = make(map[string]bool)
		return nil
	})
}

// RejectAll declines every non-necessary category and clears service
// overrides.
func (o *Orchestrator) RejectAll(ctx context.Context) error {
	return o.mutate(ctx, audit.ActionRejectAll, func(r *models.Record) error {
		for c := range r.Categories {
			r.Categories[c] = false
		}
		r.Services = make(map[string]bool)
		return nil
	})
}

// SetCategory grants or declines one configured category. Declining the
// necessary category is silently overridden back to granted.
func (o *Orchestrator) SetCategory(ctx context.Context, category models.Category, granted bool) error {
	if !o.cfg.hasCategory(category) {
		return dErrors.New(dErrors.CodeUnknownCategory, "category not configured: "+string(category))
	}
	return o.mutate(ctx, audit.ActionUpdate, func(r *models.Record) error {
		r.Categories[category] = granted
		return nil
	})
}

// SetService records a per-service override that outranks the service's
// category decision.
func (o *Orchestrator) SetService(ctx context.Context, serviceID string, granted bool) error {
	if _, ok := o.cfg.findService(serviceID); !ok {
		return dErrors.New(dErrors.CodeUnknownService, "service not configured: "+serviceID)
	}
	return o.mutate(ctx, audit.ActionUpdate, func(r *models.Record) error {
		r.Services[serviceID] = granted
		return nil
	})
}

// Update applies multiple category and service decisions atomically. Unknown
// identifiers reject the whole update before any state changes.
func (o *Orchestrator) Update(ctx context.Context, categories map[models.Category]bool, services map[string]bool) error {
	for c := range categories {
		if !o.cfg.hasCategory(c) {
			return dErrors.New(dErrors.CodeUnknownCategory, "category not configured: "+string(c))
		}
	}
	for id := range services {
		if _, ok := o.cfg.findService(id); !ok {
			return dErrors.New(dErrors.CodeUnknownService, "service not configured: "+id)
		}
	}
	return o.mutate(ctx, audit.ActionUpdate, func(r *models.Record) error {
		for c, granted := range categories {
			r.Categories[c] = granted
		}
		for id, granted := range services {
			r.Services[id] = granted
		}
		return nil
	})
}

// Reset withdraws consent entirely: storage is cleared and the session
// returns to the undecided default for the current jurisdiction.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateReady {
		o.mu.Unlock()
		return dErrors.New(dErrors.CodeNotReady, "orchestrator not initialized")
	}
	o.record = o.defaultRecord(o.lawCfg)
	o.record.Region = regionString(o.geoResult)
	o.record.Law = o.jurisdiction
	o.mu.Unlock()

	if o.store != nil && !o.cfg.Preview {
		if err := o.store.Clear(ctx); err != nil {
			o.logger.Warn("failed to clear consent on reset", "error", err)
		}
	}
	o.logMutation(audit.ActionReset)
	if o.metrics != nil {
		o.metrics.IncrementDecision(string(audit.ActionReset))
	}
	o.notify()
	return nil
}

// ServiceAllowed reports the effective decision for one configured service.
func (o *Orchestrator) ServiceAllowed(serviceID string) (bool, error) {
	svc, ok := o.cfg.findService(serviceID)
	if !ok {
		return false, dErrors.New(dErrors.CodeUnknownService, "service not configured: "+serviceID)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateReady {
		return false, dErrors.New(dErrors.CodeNotReady, "orchestrator not initialized")
	}
	if o.cfg.Preview {
		return false, nil
	}
	return o.record.ServiceAllowed(svc), nil
}

// mutate runs one state-changing operation through the common pipeline:
// readiness guard, apply, normalize, timestamp, persist, audit, notify.
func (o *Orchestrator) mutate(ctx context.Context, action audit.Action, apply func(*models.Record) error) error {
	o.mu.Lock()
	if o.state != StateReady {
		o.mu.Unlock()
		return dErrors.New(dErrors.CodeNotReady, "orchestrator not initialized")
	}
	if err := apply(o.record); err != nil {
		o.mu.Unlock()
		return err
	}
	o.decide()
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.IncrementDecision(string(action))
	}
	if err := o.persistAndLog(ctx, action); err != nil {
		return err
	}
	o.notify()
	return nil
}

// decide marks the record as an explicit decision. Caller holds the lock.
func (o *Orchestrator) decide() {
	now := o.now().UTC()
	o.record.HasConsented = true
	o.record.Timestamp = &now
	o.record.PolicyVersion = o.policyVersion
	o.record.Normalize()
	// A fresh decision supersedes any pending invalidation.
	o.reconsentRequired = false
	o.reconsentReason = reconsent.ReasonNone
	o.versionChanged = false
}

func (o *Orchestrator) persistAndLog(ctx context.Context, action audit.Action) error {
	if o.cfg.Preview {
		return nil
	}
	if o.store != nil {
		o.mu.Lock()
		record := o.record.Clone()
		o.mu.Unlock()
		if err := o.store.Save(ctx, record); err != nil {
			o.logger.Warn("consent persist failed, in-memory state stays authoritative", "error", err)
		}
	}
	o.logMutation(action)
	return nil
}

func (o *Orchestrator) logMutation(action audit.Action) {
	if o.audit == nil || o.cfg.Preview {
		return
	}
	o.mu.Lock()
	record := o.record.Clone()
	signature := o.clientSignature
	o.mu.Unlock()
	o.audit.Record(action, record, signature)
}

// adoptExternalChange reloads the record after another instance wrote the
// shared backend. Jurisdiction and geo state are kept; only the decision is
// adopted.
func (o *Orchestrator) adoptExternalChange(ev store.ChangeEvent) {
	o.mu.Lock()
	ready := o.state == StateReady
	o.mu.Unlock()
	if !ready {
		return
	}

	record, err := o.store.Load(context.Background())
	if err != nil || record == nil {
		o.logger.Warn("ignoring external consent change", "origin", ev.Origin, "error", err)
		return
	}

	o.mu.Lock()
	record.Region = o.record.Region
	record.Law = o.jurisdiction
	o.record = record
	o.reconsentRequired = false
	o.reconsentReason = reconsent.ReasonNone
	o.mu.Unlock()

	o.logger.Info("adopted external consent change", "origin", ev.Origin)
	o.notify()
}

func regionString(result *geo.Result) string {
	if result == nil {
		return ""
	}
	if result.Region != "" {
		return result.Country + "-" + result.Region
	}
	return result.Country
}
