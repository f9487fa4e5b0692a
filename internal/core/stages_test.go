package core

import (
	"errors"
	"testing"

	"grantcrm/pkg/domain"
)

func TestDefaultStageMachineShape(t *testing.T) {
	m := DefaultStageMachine()
	want := []Stage{domain.StageIntake, domain.StageQualified, domain.StageInProgress, domain.StageSubmitted, domain.StageWon, domain.StageLost}
	got := m.Stages()
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(got))
	}
	for i, s := range want {
		if got[i].ID != s {
			t.Fatalf("stage %d: expected %s, got %s", i, s, got[i].ID)
		}
	}
	if m.Initial() != domain.StageIntake || m.Won() != domain.StageWon {
		t.Fatalf("unexpected initial/won: %s/%s", m.Initial(), m.Won())
	}
	if !m.IsTerminal(domain.StageWon) || !m.IsTerminal(domain.StageLost) || m.IsTerminal(domain.StageSubmitted) {
		t.Fatalf("terminal stage set incorrect")
	}
	if m.Label(domain.StageWon) != "Closed – Won" {
		t.Fatalf("unexpected label %q", m.Label(domain.StageWon))
	}
	if m.Label("archived_legacy") != "archived_legacy" {
		t.Fatalf("unknown stage should label as itself")
	}
}

func TestNewStageMachineRejectsBadDefinitions(t *testing.T) {
	three := []StageDef{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	cases := []struct {
		name      string
		stages    []StageDef
		won, lost Stage
	}{
		{"too few", []StageDef{{ID: "a"}, {ID: "b"}}, "a", "b"},
		{"duplicate", []StageDef{{ID: "a"}, {ID: "b"}, {ID: "b"}}, "b", "a"},
		{"empty id", []StageDef{{ID: "a"}, {ID: ""}, {ID: "c"}}, "a", "c"},
		{"won equals lost", three, "c", "c"},
		{"undeclared terminal", three, "b", "z"},
		{"initial terminal", three, "a", "c"},
	}
	for _, tc := range cases {
		if _, err := NewStageMachine(tc.stages, tc.won, tc.lost); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
	if _, err := NewStageMachine(three, "b", "c"); err != nil {
		t.Fatalf("valid machine rejected: %v", err)
	}
}

func TestStageMachinePlan(t *testing.T) {
	m := DefaultStageMachine()
	cases := []struct {
		from, to  Stage
		changed   bool
		celebrate bool
	}{
		{domain.StageIntake, domain.StageQualified, true, false},
		{domain.StageSubmitted, domain.StageWon, true, true},
		{domain.StageIntake, domain.StageWon, true, true},
		{domain.StageWon, domain.StageWon, false, false},
		{domain.StageWon, domain.StageLost, true, false},
		{domain.StageLost, domain.StageIntake, true, false},
		{"archived_legacy", domain.StageQualified, true, false},
	}
	for _, tc := range cases {
		plan, err := m.Plan(tc.from, tc.to)
		if err != nil {
			t.Fatalf("plan %s->%s: %v", tc.from, tc.to, err)
		}
		if plan.Changed != tc.changed || plan.Celebrate != tc.celebrate {
			t.Fatalf("plan %s->%s: got %+v", tc.from, tc.to, plan)
		}
	}
	_, err := m.Plan(domain.StageIntake, "archived_legacy")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["stage"] == "" {
		t.Fatalf("expected stage validation error, got %v", err)
	}
}

func TestStageMachineParse(t *testing.T) {
	m := DefaultStageMachine()
	cases := map[string]Stage{
		"won":          domain.StageWon,
		"In Progress":  domain.StageInProgress,
		"in progress":  domain.StageInProgress,
		"IN_PROGRESS":  domain.StageInProgress,
		"closed – won": domain.StageWon,
	}
	for raw, want := range cases {
		got, ok := m.Parse(raw)
		if !ok || got != want {
			t.Fatalf("Parse(%q) = %q,%v want %q", raw, got, ok, want)
		}
	}
	if _, ok := m.Parse("research"); ok {
		t.Fatalf("legacy stage should not parse under the current machine")
	}
	if s, ok := LegacyStageMachine().Parse("research"); !ok || s != domain.StageResearch {
		t.Fatalf("legacy machine should parse research")
	}
}

func TestGroupKeepsUnknownStagesAside(t *testing.T) {
	m := DefaultStageMachine()
	records := []Grant{
		{ID: "a", Stage: domain.StageIntake},
		{ID: "b", Stage: "archived_legacy"},
		{ID: "c", Stage: domain.StageIntake},
		{ID: "d", Stage: domain.StageWon},
	}
	board := m.Group(records)
	if len(board.Columns) != 6 {
		t.Fatalf("expected 6 columns, got %d", len(board.Columns))
	}
	intake, _ := board.Column(domain.StageIntake)
	if len(intake.Grants) != 2 || intake.Grants[0].ID != "a" || intake.Grants[1].ID != "c" {
		t.Fatalf("intake column order wrong: %+v", intake.Grants)
	}
	qualified, ok := board.Column(domain.StageQualified)
	if !ok || qualified.Grants == nil || len(qualified.Grants) != 0 {
		t.Fatalf("empty column should be present and empty")
	}
	if len(board.Unknown) != 1 || board.Unknown[0].ID != "b" {
		t.Fatalf("unknown stage record not kept aside: %+v", board.Unknown)
	}
	total := len(board.Unknown)
	for _, c := range board.Columns {
		total += len(c.Grants)
	}
	if total != len(records) {
		t.Fatalf("records lost while grouping: %d of %d", total, len(records))
	}
	if _, ok := board.Column("archived_legacy"); ok {
		t.Fatalf("unknown stage must not have a column")
	}
}
