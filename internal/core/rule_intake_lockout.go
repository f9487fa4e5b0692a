package core

import (
	"context"
	"fmt"

	"grantcrm/pkg/domain"
)

// IntakeLockoutRule blocks deletion of grants that are still in the initial stage.
func IntakeLockoutRule(machine *StageMachine) domain.Rule {
	return intakeLockoutRule{machine: machine}
}

type intakeLockoutRule struct {
	machine *StageMachine
}

func (intakeLockoutRule) Name() string { return RuleIntakeLockout }

func (r intakeLockoutRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range grantChanges(changes) {
		if change.Action != domain.ActionDelete {
			continue
		}
		before, ok := domain.GrantFromPayload(change.Before)
		if !ok || before.Stage != r.machine.Initial() {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleIntakeLockout,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("grants in %s cannot be deleted", r.machine.Label(before.Stage)),
			Entity:   domain.EntityGrant,
			EntityID: before.ID,
		})
	}
	return res, nil
}
