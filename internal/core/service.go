package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"go.uber.org/zap"

	"grantcrm/pkg/domain"
)

// Effects receives user-visible side effects of transitions.
type Effects interface {
	// Celebrate fires once when a grant enters the won stage from another stage.
	Celebrate(ctx context.Context, g Grant)
}

// EffectsFunc adapts a function to Effects.
type EffectsFunc func(ctx context.Context, g Grant)

// Celebrate calls f.
func (f EffectsFunc) Celebrate(ctx context.Context, g Grant) { f(ctx, g) }

type noopEffects struct{}

func (noopEffects) Celebrate(context.Context, Grant) {}

// Service is the application state object. Every mutation of the collection
// routes through it.
type Service struct {
	store     *MemoryStore
	machine   *StageMachine
	snapshots *SnapshotStore
	logger    *zap.Logger
	metrics   MetricsRecorder
	effects   Effects
	opener    Opener
	client    OutreachClient
}

type serviceConfig struct {
	machine *StageMachine
	strict  bool
	logger  *zap.Logger
	metrics MetricsRecorder
	effects Effects
	opener  Opener
	client  OutreachClient
	now     func() time.Time
	newID   func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceConfig)

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(c *serviceConfig) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithEffects sets the transition effects sink.
func WithEffects(e Effects) ServiceOption {
	return func(c *serviceConfig) { c.effects = e }
}

// WithOpener sets the outreach URI opener.
func WithOpener(o Opener) ServiceOption {
	return func(c *serviceConfig) { c.opener = o }
}

// WithOutreachClient selects the compose URI flavour.
func WithOutreachClient(client OutreachClient) ServiceOption {
	return func(c *serviceConfig) { c.client = client }
}

// WithStageMachine replaces the default six-stage machine.
func WithStageMachine(m *StageMachine) ServiceOption {
	return func(c *serviceConfig) { c.machine = m }
}

// WithStrictPromotion toggles the stage_promotion rule. Enabled by default.
func WithStrictPromotion(strict bool) ServiceOption {
	return func(c *serviceConfig) { c.strict = strict }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) ServiceOption {
	return func(c *serviceConfig) { c.now = now }
}

// WithIDs overrides id generation.
func WithIDs(gen func() string) ServiceOption {
	return func(c *serviceConfig) { c.newID = gen }
}

func newService(snapshots *SnapshotStore, opts []ServiceOption) *Service {
	cfg := serviceConfig{strict: true, client: ClientGmail}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.machine == nil {
		cfg.machine = DefaultStageMachine()
	}
	engine := NewDefaultRulesEngine(cfg.machine, cfg.strict)
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.metrics == nil {
		cfg.metrics = noopMetrics{}
	}
	if cfg.effects == nil {
		cfg.effects = noopEffects{}
	}
	storeOpts := []StoreOption{WithStoreClock(cfg.now), WithIDGenerator(cfg.newID)}
	if snapshots != nil {
		storeOpts = append(storeOpts, WithPersister(snapshots))
	}
	return &Service{
		store:     NewMemoryStore(engine, storeOpts...),
		machine:   cfg.machine,
		snapshots: snapshots,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		effects:   cfg.effects,
		opener:    cfg.opener,
		client:    cfg.client,
	}
}

// NewInMemoryService creates a service with an empty, unpersisted collection.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return newService(nil, opts)
}

// OpenService loads the collection from snapshots (falling back to the seed)
// and returns a service that re-persists after every mutation.
func OpenService(ctx context.Context, snapshots *SnapshotStore, opts ...ServiceOption) (*Service, LoadReport) {
	svc := newService(snapshots, opts)
	report := svc.reload(ctx)
	return svc, report
}

func (s *Service) reload(ctx context.Context) LoadReport {
	c, report := s.snapshots.Load(ctx)
	s.store.Import(c)
	switch {
	case report.Err != nil:
		s.logger.Warn("stored collection unusable, using seed data",
			zap.String("source", string(report.Source)), zap.String("key", s.snapshots.Key), zap.Error(report.Err))
	case report.Source == LoadUpgraded:
		s.logger.Info("upgraded legacy collection", zap.String("key", s.snapshots.Key), zap.Int("records", len(c.Records)))
	default:
		s.logger.Debug("collection loaded", zap.String("source", string(report.Source)), zap.Int("records", len(c.Records)))
	}
	s.updateStageGauge()
	return report
}

// Reload re-reads the persisted collection, replacing the in-memory state.
func (s *Service) Reload(ctx context.Context) LoadReport {
	if s.snapshots == nil {
		return LoadReport{Source: LoadStored}
	}
	return s.reload(ctx)
}

// Store returns the underlying record store.
func (s *Service) Store() *MemoryStore { return s.store }

// Machine returns the active stage machine.
func (s *Service) Machine() *StageMachine { return s.machine }

// Logger returns the service logger.
func (s *Service) Logger() *zap.Logger { return s.logger }

func (s *Service) observe(ctx context.Context, op string, start time.Time, res Result, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	for _, w := range res.Warnings() {
		s.logger.Warn("operation committed with warning",
			zap.String("operation", op),
			zap.String("rule", w.Rule),
			zap.String("grant_id", w.EntityID),
			zap.String("message", w.Message))
		if w.Rule == RulePersistence {
			s.metrics.Observe(ctx, "persist", false, 0)
		}
	}
	if err != nil {
		s.logger.Debug("operation failed", zap.String("operation", op), zap.Error(err))
		return
	}
	s.updateStageGauge()
}

func (s *Service) updateStageGauge() {
	gauge, ok := s.metrics.(StageGauge)
	if !ok {
		return
	}
	counts := make(map[Stage]int)
	for _, def := range s.machine.Stages() {
		counts[def.ID] = 0
	}
	for _, g := range s.store.ListGrants() {
		counts[g.Stage]++
	}
	gauge.SetStageCounts(counts)
}

// typedError converts blocking rule violations into the domain error taxonomy.
func typedError(err error) error {
	var rv RuleViolationError
	if !errors.As(err, &rv) {
		return err
	}
	fields := make(map[string]string)
	for _, v := range rv.Result.Violations {
		if v.Severity != SeverityBlock {
			continue
		}
		if v.Rule == RuleIntakeLockout {
			return ErrForbidden{Entity: v.Entity, ID: v.EntityID, Reason: v.Message}
		}
		if v.Field != "" {
			if _, seen := fields[v.Field]; !seen {
				fields[v.Field] = v.Message
			}
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return err
}

// Create validates fields and inserts a new grant in the initial stage.
func (s *Service) Create(ctx context.Context, fields Grant) (Grant, Result, error) {
	start := time.Now()
	g := fields.Clone()
	g.ID = ""
	g.Stage = s.machine.Initial()
	g.Draft = nil
	g.TrimFields()
	if strings.TrimSpace(g.Sector) == "" {
		g.Sector = domain.DefaultSector
	}
	var created Grant
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateGrant(g)
		return err
	})
	err = typedError(err)
	s.observe(ctx, "create", start, res, err)
	if err != nil {
		return Grant{}, res, err
	}
	s.logger.Info("grant created", zap.String("grant_id", created.ID), zap.String("name", created.Name))
	return created, res, nil
}

// Get returns the grant with id.
func (s *Service) Get(_ context.Context, id string) (Grant, error) {
	g, ok := s.store.GetGrant(id)
	if !ok {
		return Grant{}, ErrNotFound{Entity: EntityGrant, ID: id}
	}
	return g, nil
}

// Update applies patch to the grant. A stage in the patch is a transition and
// fires its side effect.
func (s *Service) Update(ctx context.Context, id string, patch GrantPatch) (Grant, Result, error) {
	start := time.Now()
	if patch.IsEmpty() {
		g, err := s.Get(ctx, id)
		return g, Result{}, err
	}
	var (
		updated Grant
		plan    Transition
	)
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		current, ok := tx.FindGrant(id)
		if !ok {
			return ErrNotFound{Entity: EntityGrant, ID: id}
		}
		if patch.Stage != nil {
			var err error
			if plan, err = s.machine.Plan(current.Stage, *patch.Stage); err != nil {
				return err
			}
		}
		var err error
		updated, err = tx.UpdateGrant(id, func(g *Grant) error {
			patch.Apply(g)
			return nil
		})
		return err
	})
	err = typedError(err)
	s.observe(ctx, "update", start, res, err)
	if err != nil {
		return Grant{}, res, err
	}
	s.afterTransition(ctx, updated, plan)
	return updated, res, nil
}

// Transition moves a grant to stage to. Moving to the current stage is a
// no-op that neither persists nor fires effects.
func (s *Service) Transition(ctx context.Context, id string, to Stage) (Grant, Transition, Result, error) {
	start := time.Now()
	g, plan, res, err := s.transition(ctx, id, to)
	s.observe(ctx, "transition", start, res, err)
	return g, plan, res, err
}

func (s *Service) transition(ctx context.Context, id string, to Stage) (Grant, Transition, Result, error) {
	var (
		moved Grant
		plan  Transition
	)
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		current, ok := tx.FindGrant(id)
		if !ok {
			return ErrNotFound{Entity: EntityGrant, ID: id}
		}
		var err error
		if plan, err = s.machine.Plan(current.Stage, to); err != nil {
			return err
		}
		if !plan.Changed {
			moved = current
			return nil
		}
		moved, err = tx.UpdateGrant(id, func(g *Grant) error {
			g.Stage = to
			return nil
		})
		return err
	})
	err = typedError(err)
	if err != nil {
		return Grant{}, Transition{}, res, err
	}
	s.afterTransition(ctx, moved, plan)
	return moved, plan, res, nil
}

func (s *Service) afterTransition(ctx context.Context, g Grant, plan Transition) {
	if !plan.Changed {
		return
	}
	s.logger.Info("grant moved",
		zap.String("grant_id", g.ID),
		zap.String("from", string(plan.From)),
		zap.String("to", string(plan.To)))
	if plan.Celebrate {
		s.effects.Celebrate(ctx, g)
	}
}

// Delete removes a grant. Grants in the initial stage are locked.
func (s *Service) Delete(ctx context.Context, id string) (Result, error) {
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteGrant(id)
	})
	err = typedError(err)
	s.observe(ctx, "delete", start, res, err)
	if err == nil {
		s.logger.Info("grant deleted", zap.String("grant_id", id))
	}
	return res, err
}

// ListOptions filters and orders List output.
type ListOptions struct {
	// Stages keeps only grants in one of these stages when non-empty.
	Stages []Stage
	// SortByDeadline orders by deadline text ascending, empty first. Ties keep
	// collection order.
	SortByDeadline bool
}

// List returns deep copies of the grants matching opts.
func (s *Service) List(_ context.Context, opts ListOptions) []Grant {
	all := s.store.ListGrants()
	out := all[:0]
	for _, g := range all {
		if len(opts.Stages) > 0 && !containsStage(opts.Stages, g.Stage) {
			continue
		}
		out = append(out, g)
	}
	if opts.SortByDeadline {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Deadline < out[j].Deadline })
	}
	return out
}

func containsStage(stages []Stage, s Stage) bool {
	for _, cur := range stages {
		if cur == s {
			return true
		}
	}
	return false
}

// Board groups every grant by stage; unknown-stage grants are listed apart.
func (s *Service) Board(_ context.Context) Board {
	return s.machine.Group(s.store.ListGrants())
}

// BulkAdvance transitions every selected grant to target independently. There
// is no rollback: each outcome reports its own error. The selection is
// cleared afterwards regardless of outcomes.
func (s *Service) BulkAdvance(ctx context.Context, sel *Selection, target Stage) BulkResult {
	start := time.Now()
	defer sel.Clear()
	out := BulkResult{Target: target}
	for _, id := range sel.IDs() {
		g, plan, res, err := s.transition(ctx, id, target)
		out.Result.Merge(res)
		out.Outcomes = append(out.Outcomes, BulkOutcome{
			ID:         id,
			Grant:      g,
			Changed:    plan.Changed,
			Celebrated: plan.Celebrate,
			Err:        err,
		})
	}
	var err error
	if failed := out.Failed(); len(failed) > 0 {
		err = fmt.Errorf("%d of %d grants not moved", len(failed), len(out.Outcomes))
	}
	s.observe(ctx, "bulk_advance", start, out.Result, err)
	s.logger.Info("bulk move finished",
		zap.String("target", string(target)),
		zap.Int("selected", len(out.Outcomes)),
		zap.Int("moved", out.Succeeded()))
	return out
}

// SaveDraft stores an edited outreach draft on the grant.
func (s *Service) SaveDraft(ctx context.Context, id, subject, body string) (Grant, Result, error) {
	start := time.Now()
	var updated Grant
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateGrant(id, func(g *Grant) error {
			g.Draft = &Draft{Subject: subject, Body: body}
			return nil
		})
		return err
	})
	err = typedError(err)
	s.observe(ctx, "save_draft", start, res, err)
	return updated, res, err
}

// ListTemplates returns all templates.
func (s *Service) ListTemplates(_ context.Context) []Template {
	return s.store.ListTemplates()
}

// GetTemplate returns the template with id.
func (s *Service) GetTemplate(_ context.Context, id string) (Template, error) {
	t, ok := s.store.GetTemplate(id)
	if !ok {
		return Template{}, ErrNotFound{Entity: EntityTemplate, ID: id}
	}
	return t, nil
}

// CreateTemplate adds a template, filling blank fields with defaults.
func (s *Service) CreateTemplate(ctx context.Context, t Template) (Template, Result, error) {
	start := time.Now()
	t.ID = ""
	if t.Name == "" {
		t.Name = "New template"
	}
	if t.Subject == "" {
		t.Subject = "Subject"
	}
	if t.Body == "" {
		t.Body = "Body"
	}
	var created Template
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateTemplate(t)
		return err
	})
	s.observe(ctx, "create_template", start, res, err)
	return created, res, err
}

// UpdateTemplate applies patch to a template.
func (s *Service) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) (Template, Result, error) {
	start := time.Now()
	var updated Template
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateTemplate(id, func(t *Template) error {
			patch.Apply(t)
			return nil
		})
		return err
	})
	s.observe(ctx, "update_template", start, res, err)
	return updated, res, err
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) (Result, error) {
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteTemplate(id)
	})
	s.observe(ctx, "delete_template", start, res, err)
	return res, err
}

type templateFile struct {
	Templates []Template `json:"templates"`
}

// ParseTemplates decodes templates from JSON or JSONC (comments and trailing
// commas allowed). Both a bare array and {"templates": [...]} are accepted.
func ParseTemplates(data []byte) ([]Template, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	trimmed := strings.TrimSpace(string(std))
	if strings.HasPrefix(trimmed, "[") {
		var list []Template
		if err := json.Unmarshal(std, &list); err != nil {
			return nil, fmt.Errorf("decode templates: %w", err)
		}
		return list, nil
	}
	var file templateFile
	if err := json.Unmarshal(std, &file); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	return file.Templates, nil
}

// ImportTemplates upserts templates parsed from JSONC data in one
// transaction: entries whose id exists replace it, the rest are appended.
func (s *Service) ImportTemplates(ctx context.Context, data []byte) ([]Template, Result, error) {
	start := time.Now()
	parsed, err := ParseTemplates(data)
	if err != nil {
		s.observe(ctx, "import_templates", start, Result{}, err)
		return nil, Result{}, err
	}
	var imported []Template
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		for _, t := range parsed {
			if t.ID != "" {
				if _, ok := tx.Snapshot().FindTemplate(t.ID); ok {
					incoming := t
					updated, err := tx.UpdateTemplate(t.ID, func(cur *Template) error {
						*cur = incoming
						return nil
					})
					if err != nil {
						return err
					}
					imported = append(imported, updated)
					continue
				}
			}
			created, err := tx.CreateTemplate(t)
			if err != nil {
				return err
			}
			imported = append(imported, created)
		}
		return nil
	})
	s.observe(ctx, "import_templates", start, res, err)
	if err != nil {
		return nil, res, err
	}
	return imported, res, nil
}

// Compose renders outreach for a grant. An empty templateID uses the grant's
// saved draft if any, otherwise the first template.
func (s *Service) Compose(ctx context.Context, grantID, templateID string) (Merged, error) {
	g, err := s.Get(ctx, grantID)
	if err != nil {
		return Merged{}, err
	}
	if templateID == "" {
		if g.Draft != nil {
			return Merged{Subject: g.Draft.Subject, Body: g.Draft.Body}, nil
		}
		templates := s.store.ListTemplates()
		if len(templates) == 0 {
			return Merged{}, ErrNotFound{Entity: EntityTemplate, ID: "(none)"}
		}
		return Merge(templates[0], g), nil
	}
	tpl, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return Merged{}, err
	}
	return Merge(tpl, g), nil
}

// SendOutreach hands a compose URI for the grant's contact to the opener and
// stamps the grant's last activity. Delivery is not tracked.
func (s *Service) SendOutreach(ctx context.Context, grantID, subject, body string) (string, Grant, Result, error) {
	start := time.Now()
	g, err := s.Get(ctx, grantID)
	if err != nil {
		return "", Grant{}, Result{}, err
	}
	if strings.TrimSpace(g.ContactEmail) == "" {
		err := &ValidationError{Fields: map[string]string{"contact_email": "No contact email on this grant."}}
		s.observe(ctx, "send_outreach", start, Result{}, err)
		return "", Grant{}, Result{}, err
	}
	uri, err := ComposeURI(s.client, g.ContactEmail, subject, body)
	if err != nil {
		return "", Grant{}, Result{}, err
	}
	if s.opener != nil {
		if err := s.opener.Open(ctx, uri); err != nil {
			s.observe(ctx, "send_outreach", start, Result{}, err)
			return uri, Grant{}, Result{}, fmt.Errorf("open compose uri: %w", err)
		}
	}
	var touched Grant
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		touched, err = tx.UpdateGrant(grantID, func(*Grant) error { return nil })
		return err
	})
	err = typedError(err)
	s.observe(ctx, "send_outreach", start, res, err)
	return uri, touched, res, err
}

// Reset deletes the persisted collection and reloads the seed data.
func (s *Service) Reset(ctx context.Context) (LoadReport, error) {
	start := time.Now()
	if s.snapshots == nil {
		s.store.Import(DefaultSeed())
		s.observe(ctx, "reset", start, Result{}, nil)
		return LoadReport{Source: LoadSeedMissing}, nil
	}
	if err := s.snapshots.Remove(ctx); err != nil {
		s.observe(ctx, "reset", start, Result{}, err)
		return LoadReport{}, err
	}
	report := s.reload(ctx)
	s.observe(ctx, "reset", start, Result{}, nil)
	s.logger.Info("collection reset", zap.String("key", s.snapshots.Key))
	return report, nil
}
