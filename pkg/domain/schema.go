package domain

import "time"

// Persisted collection schema versions.
const (
	// SchemaV1 is the original browser layout: {items, templates} with the
	// research/pipeline/won/lost stage set and camelCase grant fields.
	SchemaV1 = 1
	// SchemaV2 is the current layout: {schema_version, records, templates}.
	SchemaV2 = 2
	// CurrentSchemaVersion is written on every save.
	CurrentSchemaVersion = SchemaV2
)

// LegacyGrant is a grant as stored by schema v1.
type LegacyGrant struct {
	ID           string `json:"id"`
	GrantName    string `json:"grantName"`
	Funder       string `json:"funder"`
	Website      string `json:"website"`
	Deadline     string `json:"deadline"`
	Region       string `json:"region"`
	Sector       string `json:"sector"`
	Amount       string `json:"amount"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	Notes        string `json:"notes"`
	Stage        string `json:"stage"`
	LastActivity string `json:"lastActivity"`
}

// LegacyCollection is the schema v1 aggregate root.
type LegacyCollection struct {
	Items     []LegacyGrant `json:"items"`
	Templates []Template    `json:"templates"`
}

// legacyStages maps v1 stages onto their v2 equivalents. Stages missing from
// the map are carried verbatim and become unknown under the v2 machine.
var legacyStages = map[Stage]Stage{
	StageResearch: StageIntake,
	StagePipeline: StageQualified,
	StageWon:      StageWon,
	StageLost:     StageLost,
}

// UpgradeStage maps a v1 stage identifier to v2.
func UpgradeStage(s Stage) Stage {
	if up, ok := legacyStages[s]; ok {
		return up
	}
	return s
}

// UpgradeCollection converts a schema v1 collection into the current layout.
// An empty v1 stage maps to intake, matching how v1 grouped stage-less items.
func UpgradeCollection(legacy LegacyCollection) Collection {
	out := Collection{
		SchemaVersion: CurrentSchemaVersion,
		Records:       make([]Grant, 0, len(legacy.Items)),
		Templates:     append([]Template{}, legacy.Templates...),
	}
	for _, item := range legacy.Items {
		stage := Stage(item.Stage)
		if stage == "" {
			stage = StageResearch
		}
		g := Grant{
			ID:           item.ID,
			Name:         item.GrantName,
			Funder:       item.Funder,
			Website:      item.Website,
			Deadline:     item.Deadline,
			Region:       item.Region,
			Sector:       item.Sector,
			Amount:       item.Amount,
			ContactName:  item.ContactName,
			ContactEmail: item.ContactEmail,
			Notes:        item.Notes,
			Stage:        UpgradeStage(stage),
		}
		if ts, err := time.Parse(time.RFC3339Nano, item.LastActivity); err == nil {
			g.LastActivity = ts.UTC()
		}
		out.Records = append(out.Records, g)
	}
	return out
}
