package core

import "grantcrm/pkg/domain"

type (
	EntityType         = domain.EntityType
	Stage              = domain.Stage
	Severity           = domain.Severity
	Grant              = domain.Grant
	GrantPatch         = domain.GrantPatch
	Draft              = domain.Draft
	Template           = domain.Template
	TemplatePatch      = domain.TemplatePatch
	Collection         = domain.Collection
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	ByteStore          = domain.ByteStore
	ValidationError    = domain.ValidationError
	ErrNotFound        = domain.ErrNotFound
	ErrForbidden       = domain.ErrForbidden
	ErrUnauthorized    = domain.ErrUnauthorized
	PersistenceError   = domain.PersistenceError
)

const (
	EntityGrant    = domain.EntityGrant
	EntityTemplate = domain.EntityTemplate
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
