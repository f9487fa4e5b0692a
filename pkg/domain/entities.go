// Package domain defines the persistent entities, stage identifiers, and rule
// evaluation primitives used by grantcrm.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the collection.
type EntityType string

// Supported entity type identifiers used in Change records and errors.
const (
	// EntityGrant identifies a grant record.
	EntityGrant EntityType = "grant"
	// EntityTemplate identifies an outreach template.
	EntityTemplate EntityType = "template"
)

// Stage is a named position in the outreach pipeline.
type Stage string

// Current (schema v2) pipeline stages in declared order.
const (
	StageIntake     Stage = "intake"
	StageQualified  Stage = "qualified"
	StageInProgress Stage = "in_progress"
	StageSubmitted  Stage = "submitted"
	StageWon        Stage = "won"
	StageLost       Stage = "lost"
)

// Legacy (schema v1) stages. Won and lost are shared with v2.
const (
	StageResearch Stage = "research"
	StagePipeline Stage = "pipeline"
)

// DefaultSector is applied to grants created without a sector.
const DefaultSector = "Education / Children"

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn is surfaced to the caller but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Draft holds an edited outreach subject/body saved against a grant.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Grant is the central record tracked through the pipeline.
type Grant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Funder       string    `json:"funder"`
	Website      string    `json:"website"`
	Deadline     string    `json:"deadline"`
	Region       string    `json:"region"`
	Sector       string    `json:"sector"`
	Amount       string    `json:"amount"`
	ContactName  string    `json:"contact_name"`
	ContactEmail string    `json:"contact_email"`
	Notes        string    `json:"notes"`
	Draft        *Draft    `json:"draft,omitempty"`
	Stage        Stage     `json:"stage"`
	LastActivity time.Time `json:"last_activity"`
}

// Clone returns a deep copy of the grant.
func (g Grant) Clone() Grant {
	cp := g
	if g.Draft != nil {
		d := *g.Draft
		cp.Draft = &d
	}
	return cp
}

// GrantPatch lists the fields to overwrite on update. Nil fields are left as-is.
type GrantPatch struct {
	Name         *string
	Funder       *string
	Website      *string
	Deadline     *string
	Region       *string
	Sector       *string
	Amount       *string
	ContactName  *string
	ContactEmail *string
	Notes        *string
	Stage        *Stage
	Draft        *Draft
}

// IsEmpty reports whether the patch changes nothing.
func (p GrantPatch) IsEmpty() bool {
	return p.Name == nil && p.Funder == nil && p.Website == nil && p.Deadline == nil &&
		p.Region == nil && p.Sector == nil && p.Amount == nil && p.ContactName == nil &&
		p.ContactEmail == nil && p.Notes == nil && p.Stage == nil && p.Draft == nil
}

// TrimFields strips surrounding whitespace from the validated fields and the
// contact email.
func (g *Grant) TrimFields() {
	for _, f := range []*string{&g.Name, &g.Website, &g.Deadline, &g.Region, &g.ContactEmail} {
		*f = strings.TrimSpace(*f)
	}
}

// Apply copies the non-nil patch fields onto g. Stage is applied too; callers
// that treat stage changes as transitions must inspect it beforehand.
func (p GrantPatch) Apply(g *Grant) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&g.Name, p.Name)
	set(&g.Funder, p.Funder)
	set(&g.Website, p.Website)
	set(&g.Deadline, p.Deadline)
	set(&g.Region, p.Region)
	set(&g.Sector, p.Sector)
	set(&g.Amount, p.Amount)
	set(&g.ContactName, p.ContactName)
	set(&g.ContactEmail, p.ContactEmail)
	set(&g.Notes, p.Notes)
	if p.Stage != nil {
		g.Stage = *p.Stage
	}
	if p.Draft != nil {
		d := *p.Draft
		g.Draft = &d
	}
	g.TrimFields()
}

// Template is reusable outreach text with placeholder tokens.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplatePatch lists template fields to overwrite on update.
type TemplatePatch struct {
	Name    *string
	Subject *string
	Body    *string
}

// Apply copies the non-nil patch fields onto t.
func (p TemplatePatch) Apply(t *Template) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.Body != nil {
		t.Body = *p.Body
	}
}

// Collection is the aggregate root persisted as a single unit.
type Collection struct {
	SchemaVersion int        `json:"schema_version"`
	Records       []Grant    `json:"records"`
	Templates     []Template `json:"templates"`
}

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := Collection{
		SchemaVersion: c.SchemaVersion,
		Records:       make([]Grant, 0, len(c.Records)),
		Templates:     append([]Template(nil), c.Templates...),
	}
	for _, g := range c.Records {
		out.Records = append(out.Records, g.Clone())
	}
	if out.Templates == nil {
		out.Templates = []Template{}
	}
	return out
}

// Change describes a mutation applied to an entity during a transaction.
// Before and After hold Grant or Template values; nil means absent.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// GrantFromPayload extracts a grant from a Change payload.
func GrantFromPayload(payload any) (Grant, bool) {
	switch v := payload.(type) {
	case Grant:
		return v, true
	case *Grant:
		if v == nil {
			return Grant{}, false
		}
		return *v, true
	default:
		return Grant{}, false
	}
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
	// Field names the offending grant field for validation rules.
	Field string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking warn-level violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
