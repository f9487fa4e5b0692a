package domain

import (
	"testing"
	"time"
)

func TestUpgradeCollectionMapsLegacyStages(t *testing.T) {
	legacy := LegacyCollection{
		Items: []LegacyGrant{
			{ID: "a", GrantName: "Meet & Code", Stage: "research", ContactName: "Jane Doe", LastActivity: "2024-05-01T10:00:00.000Z"},
			{ID: "b", GrantName: "SAP", Stage: "pipeline"},
			{ID: "c", GrantName: "Won one", Stage: "won"},
			{ID: "d", GrantName: "Lost one", Stage: "lost"},
			{ID: "e", GrantName: "Odd", Stage: "archived_legacy"},
			{ID: "f", GrantName: "Blank"},
		},
		Templates: []Template{{ID: "t1", Name: "Intro"}},
	}
	got := UpgradeCollection(legacy)
	if got.SchemaVersion != CurrentSchemaVersion {
		t.Fatalf("expected schema version %d, got %d", CurrentSchemaVersion, got.SchemaVersion)
	}
	want := map[string]Stage{
		"a": StageIntake,
		"b": StageQualified,
		"c": StageWon,
		"d": StageLost,
		"e": Stage("archived_legacy"),
		"f": StageIntake,
	}
	if len(got.Records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got.Records))
	}
	for _, g := range got.Records {
		if g.Stage != want[g.ID] {
			t.Fatalf("grant %s: stage %q want %q", g.ID, g.Stage, want[g.ID])
		}
	}
	first := got.Records[0]
	if first.Name != "Meet & Code" || first.ContactName != "Jane Doe" {
		t.Fatalf("fields not carried over: %+v", first)
	}
	if !first.LastActivity.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("last activity not parsed: %v", first.LastActivity)
	}
	if len(got.Templates) != 1 || got.Templates[0].ID != "t1" {
		t.Fatalf("templates not carried over")
	}
}

func TestUpgradeStageLeavesCurrentStagesAlone(t *testing.T) {
	for _, s := range []Stage{StageIntake, StageQualified, StageInProgress, StageSubmitted} {
		if got := UpgradeStage(s); got != s {
			t.Fatalf("UpgradeStage(%q)=%q", s, got)
		}
	}
}
