package core

import (
	"context"
	"sort"

	"grantcrm/pkg/domain"
)

// GrantValidationRule blocks creates that fail any field rule and updates that
// change a validated field to an invalid value.
func GrantValidationRule() domain.Rule {
	return grantValidationRule{}
}

type grantValidationRule struct{}

func (grantValidationRule) Name() string { return RuleGrantValidation }

func (grantValidationRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range grantChanges(changes) {
		after, ok := domain.GrantFromPayload(change.After)
		if !ok {
			continue
		}
		var failures map[string]string
		switch change.Action {
		case domain.ActionCreate:
			failures = ValidateGrant(after)
		case domain.ActionUpdate:
			before, _ := domain.GrantFromPayload(change.Before)
			failures = ValidateFields(after, changedValidatedFields(before, after)...)
		}
		res.Violations = append(res.Violations, fieldViolations(RuleGrantValidation, after.ID, failures)...)
	}
	return res, nil
}

func changedValidatedFields(before, after domain.Grant) []string {
	var out []string
	if before.Name != after.Name {
		out = append(out, FieldName)
	}
	if before.Website != after.Website {
		out = append(out, FieldWebsite)
	}
	if before.Deadline != after.Deadline {
		out = append(out, FieldDeadline)
	}
	if before.Region != after.Region {
		out = append(out, FieldRegion)
	}
	return out
}

func fieldViolations(rule, id string, failures map[string]string) []domain.Violation {
	if len(failures) == 0 {
		return nil
	}
	fields := make([]string, 0, len(failures))
	for f := range failures {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make([]domain.Violation, 0, len(fields))
	for _, f := range fields {
		out = append(out, domain.Violation{
			Rule:     rule,
			Severity: domain.SeverityBlock,
			Message:  failures[f],
			Entity:   domain.EntityGrant,
			EntityID: id,
			Field:    f,
		})
	}
	return out
}
