package core

import "grantcrm/pkg/domain"

// Rule names reported in violations.
const (
	RuleGrantValidation = "grant_validation"
	RuleStageTransition = "stage_transition"
	RuleStagePromotion  = "stage_promotion"
	RuleIntakeLockout   = "intake_lockout"
	RulePersistence     = "persistence"
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set for
// machine. strictPromotion requires a record to be fully valid before it
// leaves the initial stage.
func NewDefaultRulesEngine(machine *StageMachine, strictPromotion bool) *RulesEngine {
	if machine == nil {
		machine = DefaultStageMachine()
	}
	engine := NewRulesEngine()
	engine.Register(GrantValidationRule())
	engine.Register(StageTransitionRule(machine))
	if strictPromotion {
		engine.Register(StagePromotionRule(machine))
	}
	engine.Register(IntakeLockoutRule(machine))
	return engine
}

func grantChanges(changes []Change) []Change {
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if c.Entity == EntityGrant {
			out = append(out, c)
		}
	}
	return out
}
