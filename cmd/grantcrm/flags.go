package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"grantcrm/internal/core"
)

// stageValue parses a stage id or label against the machine.
type stageValue struct {
	machine *core.StageMachine
	stage   *core.Stage
}

var _ pflag.Value = (*stageValue)(nil)

func newStageValue(machine *core.StageMachine, dst *core.Stage) *stageValue {
	return &stageValue{machine: machine, stage: dst}
}

func (v *stageValue) String() string {
	if v.stage == nil {
		return ""
	}
	return string(*v.stage)
}

func (v *stageValue) Set(raw string) error {
	s, ok := v.machine.Parse(strings.TrimSpace(raw))
	if !ok {
		return fmt.Errorf("unknown stage %q (want one of %s)", raw, stageChoices(v.machine))
	}
	*v.stage = s
	return nil
}

func (v *stageValue) Type() string { return "stage" }

// stageListValue is a repeatable, comma-separated stage flag.
type stageListValue struct {
	machine *core.StageMachine
	stages  *[]core.Stage
}

var _ pflag.Value = (*stageListValue)(nil)

func (v *stageListValue) String() string {
	parts := make([]string, 0, len(*v.stages))
	for _, s := range *v.stages {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}

func (v *stageListValue) Set(raw string) error {
	for _, part := range strings.Split(raw, ",") {
		var s core.Stage
		if err := newStageValue(v.machine, &s).Set(part); err != nil {
			return err
		}
		*v.stages = append(*v.stages, s)
	}
	return nil
}

func (v *stageListValue) Type() string { return "stages" }

func stageChoices(m *core.StageMachine) string {
	ids := make([]string, 0, len(m.Stages()))
	for _, s := range m.Stages() {
		ids = append(ids, string(s.ID))
	}
	return strings.Join(ids, ", ")
}

// grantFlags binds the editable grant fields to a flag set.
type grantFlags struct {
	name, funder, website, deadline, region, sector, amount string
	contactName, contactEmail, notes                        string
}

func (f *grantFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "grant name")
	fs.StringVar(&f.funder, "funder", "", "funder / foundation")
	fs.StringVar(&f.website, "website", "", "http(s) URL of the grant page")
	fs.StringVar(&f.deadline, "deadline", "", "deadline (YYYY-MM-DD)")
	fs.StringVar(&f.region, "region", "", "region served")
	fs.StringVar(&f.sector, "sector", "", "sector focus")
	fs.StringVar(&f.amount, "amount", "", "requested amount")
	fs.StringVar(&f.contactName, "contact-name", "", "contact person")
	fs.StringVar(&f.contactEmail, "contact-email", "", "contact email")
	fs.StringVar(&f.notes, "notes", "", "free-form notes")
}

func (f *grantFlags) grant() core.Grant {
	return core.Grant{
		Name:         f.name,
		Funder:       f.funder,
		Website:      f.website,
		Deadline:     f.deadline,
		Region:       f.region,
		Sector:       f.sector,
		Amount:       f.amount,
		ContactName:  f.contactName,
		ContactEmail: f.contactEmail,
		Notes:        f.notes,
	}
}

// patch includes only the flags the user actually set.
func (f *grantFlags) patch(fs *pflag.FlagSet) core.GrantPatch {
	var p core.GrantPatch
	set := func(name string, v *string) *string {
		if fs.Changed(name) {
			return v
		}
		return nil
	}
	p.Name = set("name", &f.name)
	p.Funder = set("funder", &f.funder)
	p.Website = set("website", &f.website)
	p.Deadline = set("deadline", &f.deadline)
	p.Region = set("region", &f.region)
	p.Sector = set("sector", &f.sector)
	p.Amount = set("amount", &f.amount)
	p.ContactName = set("contact-name", &f.contactName)
	p.ContactEmail = set("contact-email", &f.contactEmail)
	p.Notes = set("notes", &f.notes)
	return p
}
