package core

import (
	"context"
	"fmt"

	"grantcrm/pkg/domain"
)

// StageTransitionRule blocks grants entering an undeclared stage and creates
// outside the initial stage. Records already sitting in an unknown stage may
// keep it across unrelated edits.
func StageTransitionRule(machine *StageMachine) domain.Rule {
	return stageTransitionRule{machine: machine}
}

type stageTransitionRule struct {
	machine *StageMachine
}

func (stageTransitionRule) Name() string { return RuleStageTransition }

func (r stageTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range grantChanges(changes) {
		after, ok := domain.GrantFromPayload(change.After)
		if !ok {
			continue
		}
		switch change.Action {
		case domain.ActionCreate:
			if after.Stage != r.machine.Initial() {
				res.Violations = append(res.Violations, stageViolation(RuleStageTransition, after.ID,
					fmt.Sprintf("new grants start in %s, got %q", r.machine.Initial(), after.Stage)))
			}
		case domain.ActionUpdate:
			before, _ := domain.GrantFromPayload(change.Before)
			if before.Stage == after.Stage {
				continue
			}
			if !r.machine.Known(after.Stage) {
				res.Violations = append(res.Violations, stageViolation(RuleStageTransition, after.ID,
					fmt.Sprintf("unknown stage %q", after.Stage)))
			}
		}
	}
	return res, nil
}

// StagePromotionRule blocks a grant from leaving the initial stage until every
// validated field passes.
func StagePromotionRule(machine *StageMachine) domain.Rule {
	return stagePromotionRule{machine: machine}
}

type stagePromotionRule struct {
	machine *StageMachine
}

func (stagePromotionRule) Name() string { return RuleStagePromotion }

func (r stagePromotionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	initial := r.machine.Initial()
	for _, change := range grantChanges(changes) {
		if change.Action != domain.ActionUpdate {
			continue
		}
		before, _ := domain.GrantFromPayload(change.Before)
		after, ok := domain.GrantFromPayload(change.After)
		if !ok || before.Stage != initial || after.Stage == initial {
			continue
		}
		res.Violations = append(res.Violations, fieldViolations(RuleStagePromotion, after.ID, ValidateGrant(after))...)
	}
	return res, nil
}

func stageViolation(rule, id, msg string) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  msg,
		Entity:   domain.EntityGrant,
		EntityID: id,
		Field:    "stage",
	}
}
