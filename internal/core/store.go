package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"grantcrm/pkg/domain"
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
)

// Persister writes the committed collection to durable storage.
type Persister interface {
	Persist(ctx context.Context, c Collection) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, c Collection) error

// Persist calls f.
func (f PersisterFunc) Persist(ctx context.Context, c Collection) error { return f(ctx, c) }

type memoryState struct {
	records   []Grant
	templates []Template
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		records:   make([]Grant, 0, len(s.records)),
		templates: append([]Template(nil), s.templates...),
	}
	for _, g := range s.records {
		out.records = append(out.records, g.Clone())
	}
	return out
}

func (s memoryState) grantIndex(id string) int {
	for i, g := range s.records {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func (s memoryState) templateIndex(id string) int {
	for i, t := range s.templates {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// MemoryStore owns the grant collection. Every mutation runs in a
// copy-on-write transaction that the rules engine inspects before commit;
// committed state is then handed to the persister in full.
type MemoryStore struct {
	mu        sync.RWMutex
	state     memoryState
	engine    *RulesEngine
	persister Persister
	nowFn     func() time.Time
	newID     func() string
}

// StoreOption configures a MemoryStore.
type StoreOption func(*MemoryStore)

// WithPersister sets the persister called after every committed mutation.
func WithPersister(p Persister) StoreOption {
	return func(s *MemoryStore) { s.persister = p }
}

// WithStoreClock overrides the timestamp source.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *MemoryStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewMemoryStore constructs an empty store backed by the provided rules engine.
func NewMemoryStore(engine *RulesEngine, opts ...StoreOption) *MemoryStore {
	if engine == nil {
		engine = NewRulesEngine()
	}
	s := &MemoryStore{
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import replaces the store contents without running rules or persisting.
func (s *MemoryStore) Import(c Collection) {
	cp := c.Clone()
	s.mu.Lock()
	s.state = memoryState{records: cp.Records, templates: cp.Templates}
	s.mu.Unlock()
}

// Export returns a deep copy of the current collection.
func (s *MemoryStore) Export() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exportLocked()
}

func (s *MemoryStore) exportLocked() Collection {
	return Collection{
		SchemaVersion: domain.CurrentSchemaVersion,
		Records:       s.state.records,
		Templates:     s.state.templates,
	}.Clone()
}

type memoryTx struct {
	store   *MemoryStore
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

var _ domain.Transaction = (*memoryTx)(nil)

// ListGrants returns all grants in collection order.
func (v transactionView) ListGrants() []Grant {
	out := make([]Grant, 0, len(v.state.records))
	for _, g := range v.state.records {
		out = append(out, g.Clone())
	}
	return out
}

// FindGrant retrieves a grant by ID.
func (v transactionView) FindGrant(id string) (Grant, bool) {
	i := v.state.grantIndex(id)
	if i < 0 {
		return Grant{}, false
	}
	return v.state.records[i].Clone(), true
}

// ListTemplates returns all templates in collection order.
func (v transactionView) ListTemplates() []Template {
	return append([]Template{}, v.state.templates...)
}

// FindTemplate retrieves a template by ID.
func (v transactionView) FindTemplate(id string) (Template, bool) {
	i := v.state.templateIndex(id)
	if i < 0 {
		return Template{}, false
	}
	return v.state.templates[i], true
}

// RunInTransaction executes fn within a transactional copy of the store
// state. Blocking violations discard the copy. A failed persist keeps the
// committed state and is reported as a warning in the returned Result.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	view := transactionView{state: &tx.state}
	result, err := s.engine.Evaluate(ctx, view, tx.changes)
	if err != nil {
		return Result{}, err
	}
	if result.HasBlocking() {
		return result, RuleViolationError{Result: result}
	}

	s.state = tx.state
	if len(tx.changes) == 0 || s.persister == nil {
		return result, nil
	}
	if err := s.persister.Persist(ctx, s.exportLocked()); err != nil {
		result.Violations = append(result.Violations, Violation{
			Rule:     RulePersistence,
			Severity: SeverityWarn,
			Message:  err.Error(),
		})
	}
	return result, nil
}

// ListGrants returns a snapshot of all grants.
func (s *MemoryStore) ListGrants() []Grant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListGrants()
}

// GetGrant returns the grant with id.
func (s *MemoryStore) GetGrant(id string) (Grant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.FindGrant(id)
}

// ListTemplates returns a snapshot of all templates.
func (s *MemoryStore) ListTemplates() []Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListTemplates()
}

// GetTemplate returns the template with id.
func (s *MemoryStore) GetTemplate(id string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.FindTemplate(id)
}

func (tx *memoryTx) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *memoryTx) stamp(previous time.Time) time.Time {
	if previous.After(tx.now) {
		return previous
	}
	return tx.now
}

// Snapshot exposes the in-flight transaction state.
func (tx *memoryTx) Snapshot() TransactionView {
	return transactionView{state: &tx.state}
}

// FindGrant retrieves a grant from the in-flight state.
func (tx *memoryTx) FindGrant(id string) (Grant, bool) {
	return tx.Snapshot().FindGrant(id)
}

// CreateGrant prepends g with a fresh id and activity stamp.
func (tx *memoryTx) CreateGrant(g Grant) (Grant, error) {
	if g.ID == "" {
		g.ID = tx.store.newID()
	}
	if tx.state.grantIndex(g.ID) >= 0 {
		return Grant{}, fmt.Errorf("grant %q already exists", g.ID)
	}
	g.LastActivity = tx.now
	g = g.Clone()
	tx.state.records = append([]Grant{g}, tx.state.records...)
	tx.recordChange(Change{Entity: EntityGrant, Action: ActionCreate, After: g.Clone()})
	return g.Clone(), nil
}

// UpdateGrant mutates a grant in place. The id is immutable and the activity
// stamp never moves backwards.
func (tx *memoryTx) UpdateGrant(id string, mutator func(*Grant) error) (Grant, error) {
	i := tx.state.grantIndex(id)
	if i < 0 {
		return Grant{}, ErrNotFound{Entity: EntityGrant, ID: id}
	}
	before := tx.state.records[i].Clone()
	current := before.Clone()
	if err := mutator(&current); err != nil {
		return Grant{}, err
	}
	current.ID = id
	current.LastActivity = tx.stamp(before.LastActivity)
	tx.state.records[i] = current.Clone()
	tx.recordChange(Change{Entity: EntityGrant, Action: ActionUpdate, Before: before, After: current.Clone()})
	return current.Clone(), nil
}

// DeleteGrant removes a grant from the in-flight state.
func (tx *memoryTx) DeleteGrant(id string) error {
	i := tx.state.grantIndex(id)
	if i < 0 {
		return ErrNotFound{Entity: EntityGrant, ID: id}
	}
	before := tx.state.records[i]
	tx.state.records = append(tx.state.records[:i:i], tx.state.records[i+1:]...)
	tx.recordChange(Change{Entity: EntityGrant, Action: ActionDelete, Before: before.Clone()})
	return nil
}

// CreateTemplate appends a template.
func (tx *memoryTx) CreateTemplate(t Template) (Template, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if tx.state.templateIndex(t.ID) >= 0 {
		return Template{}, fmt.Errorf("template %q already exists", t.ID)
	}
	tx.state.templates = append(tx.state.templates, t)
	tx.recordChange(Change{Entity: EntityTemplate, Action: ActionCreate, After: t})
	return t, nil
}

// UpdateTemplate mutates a template in place.
func (tx *memoryTx) UpdateTemplate(id string, mutator func(*Template) error) (Template, error) {
	i := tx.state.templateIndex(id)
	if i < 0 {
		return Template{}, ErrNotFound{Entity: EntityTemplate, ID: id}
	}
	before := tx.state.templates[i]
	current := before
	if err := mutator(&current); err != nil {
		return Template{}, err
	}
	current.ID = id
	tx.state.templates[i] = current
	tx.recordChange(Change{Entity: EntityTemplate, Action: ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteTemplate removes a template.
func (tx *memoryTx) DeleteTemplate(id string) error {
	i := tx.state.templateIndex(id)
	if i < 0 {
		return ErrNotFound{Entity: EntityTemplate, ID: id}
	}
	before := tx.state.templates[i]
	tx.state.templates = append(tx.state.templates[:i:i], tx.state.templates[i+1:]...)
	tx.recordChange(Change{Entity: EntityTemplate, Action: ActionDelete, Before: before})
	return nil
}
