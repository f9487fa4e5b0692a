package core

import (
	"fmt"
	"strings"

	"grantcrm/pkg/domain"
)

// StageDef declares one pipeline stage and its display label.
type StageDef struct {
	ID    Stage
	Label string
}

// StageMachine defines the ordered stage set, its initial stage, its terminal
// stages and the stage whose entry is celebrated.
type StageMachine struct {
	stages   []StageDef
	index    map[Stage]int
	initial  Stage
	won      Stage
	terminal map[Stage]struct{}
}

// NewStageMachine builds a machine. The first stage is the initial one; won and
// lost name the two mutually exclusive terminal stages.
func NewStageMachine(stages []StageDef, won, lost Stage) (*StageMachine, error) {
	if len(stages) < 3 {
		return nil, fmt.Errorf("stage machine needs an initial, an intermediate and terminal stages, got %d", len(stages))
	}
	m := &StageMachine{
		stages:   append([]StageDef(nil), stages...),
		index:    make(map[Stage]int, len(stages)),
		initial:  stages[0].ID,
		won:      won,
		terminal: map[Stage]struct{}{won: {}, lost: {}},
	}
	for i, s := range stages {
		if s.ID == "" {
			return nil, fmt.Errorf("stage %d has an empty id", i)
		}
		if _, dup := m.index[s.ID]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.ID)
		}
		m.index[s.ID] = i
	}
	if won == lost {
		return nil, fmt.Errorf("won and lost must differ")
	}
	for t := range m.terminal {
		if _, ok := m.index[t]; !ok {
			return nil, fmt.Errorf("terminal stage %q is not declared", t)
		}
		if t == m.initial {
			return nil, fmt.Errorf("initial stage %q cannot be terminal", t)
		}
	}
	return m, nil
}

func mustStageMachine(stages []StageDef, won, lost Stage) *StageMachine {
	m, err := NewStageMachine(stages, won, lost)
	if err != nil {
		panic(err)
	}
	return m
}

// DefaultStageMachine is the current six-stage pipeline.
func DefaultStageMachine() *StageMachine {
	return mustStageMachine([]StageDef{
		{ID: domain.StageIntake, Label: "Intake"},
		{ID: domain.StageQualified, Label: "Qualified"},
		{ID: domain.StageInProgress, Label: "In Progress"},
		{ID: domain.StageSubmitted, Label: "Submitted"},
		{ID: domain.StageWon, Label: "Closed – Won"},
		{ID: domain.StageLost, Label: "Closed – Lost"},
	}, domain.StageWon, domain.StageLost)
}

// LegacyStageMachine is the schema v1 four-stage pipeline.
func LegacyStageMachine() *StageMachine {
	return mustStageMachine([]StageDef{
		{ID: domain.StageResearch, Label: "Research"},
		{ID: domain.StagePipeline, Label: "Pipeline"},
		{ID: domain.StageWon, Label: "Closed – Won"},
		{ID: domain.StageLost, Label: "Closed – Lost"},
	}, domain.StageWon, domain.StageLost)
}

// Stages returns the declared stages in order.
func (m *StageMachine) Stages() []StageDef {
	return append([]StageDef(nil), m.stages...)
}

// Initial returns the intake stage new records start in.
func (m *StageMachine) Initial() Stage { return m.initial }

// Won returns the celebrated terminal stage.
func (m *StageMachine) Won() Stage { return m.won }

// Known reports whether s is a declared stage.
func (m *StageMachine) Known(s Stage) bool {
	_, ok := m.index[s]
	return ok
}

// IsTerminal reports whether s is one of the terminal stages.
func (m *StageMachine) IsTerminal(s Stage) bool {
	_, ok := m.terminal[s]
	return ok
}

// Label returns the display label for s, or s itself when unknown.
func (m *StageMachine) Label(s Stage) string {
	if i, ok := m.index[s]; ok {
		return m.stages[i].Label
	}
	return string(s)
}

// Parse resolves a stage id or a case-insensitive label.
func (m *StageMachine) Parse(raw string) (Stage, bool) {
	if m.Known(Stage(raw)) {
		return Stage(raw), true
	}
	for _, s := range m.stages {
		if strings.EqualFold(s.Label, raw) || strings.EqualFold(string(s.ID), raw) {
			return s.ID, true
		}
	}
	return "", false
}

// Transition describes the effect of moving a record between stages.
type Transition struct {
	From Stage
	To   Stage
	// Changed is false when the record already sits in To.
	Changed bool
	// Celebrate is true only on the edge into the won stage.
	Celebrate bool
}

// Plan evaluates a move from one stage to another. Any declared stage may be
// reached from any stage, including unknown ones; only the target must be declared.
func (m *StageMachine) Plan(from, to Stage) (Transition, error) {
	if !m.Known(to) {
		return Transition{}, &domain.ValidationError{Fields: map[string]string{
			"stage": fmt.Sprintf("unknown stage %q", to),
		}}
	}
	t := Transition{From: from, To: to, Changed: from != to}
	t.Celebrate = t.Changed && to == m.won
	return t, nil
}

// Column is one per-stage grouped view of the board.
type Column struct {
	Stage  Stage
	Label  string
	Grants []Grant
}

// Board groups records by declared stage. Records with an unknown stage are
// kept aside in Unknown and never appear in a column.
type Board struct {
	Columns []Column
	Unknown []Grant
}

// Group builds the board for the given records, preserving their order inside each column.
func (m *StageMachine) Group(records []Grant) Board {
	board := Board{Columns: make([]Column, len(m.stages))}
	for i, s := range m.stages {
		board.Columns[i] = Column{Stage: s.ID, Label: s.Label, Grants: []Grant{}}
	}
	for _, g := range records {
		i, ok := m.index[g.Stage]
		if !ok {
			board.Unknown = append(board.Unknown, g.Clone())
			continue
		}
		board.Columns[i].Grants = append(board.Columns[i].Grants, g.Clone())
	}
	return board
}

// Column returns the column for s, if declared.
func (b Board) Column(s Stage) (Column, bool) {
	for _, c := range b.Columns {
		if c.Stage == s {
			return c, true
		}
	}
	return Column{}, false
}
