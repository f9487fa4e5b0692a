package core

import (
	"time"

	"github.com/google/uuid"

	"grantcrm/pkg/domain"
)

const introBody = `Hi {FirstName},

I'm Aadi from LiliPad Library (lilipadlibrary.org). We help kids from marginalized communities build reading habits through community-led libraries. I noticed {Funder}'s focus on {Sector} and thought {Grant} could be a strong fit.

Quick context:
• Impact: 10,000+ books in rotation, {Region} focus
• Model: Community libraries inside schools & shelters
• What we seek: Support for {Grant} ({Amount})

If helpful, I can share a one-pager and brief impact metrics. Would you be open to a 20-min chat next week?

Thanks,
Aadi
Partner, LiliPad Library
`

const followUpBody = `Hi {FirstName},

Circling back on {Grant}. Given your portfolio's focus on {Sector}, we'd love to explore alignment. We can tailor outcomes (literacy hours, libraries launched) to your reporting needs.

Open to a quick call?

Best,
Aadi`

// DefaultTemplates returns the built-in outreach templates.
func DefaultTemplates() []Template {
	return []Template{
		{
			ID:      "t1",
			Name:    "Intro + Fit",
			Subject: "LiliPad Library x {Funder}: Grant inquiry for {Grant}",
			Body:    introBody,
		},
		{
			ID:      "t2",
			Name:    "Warm intro / follow-up",
			Subject: "Following up on {Grant} at {Funder}",
			Body:    followUpBody,
		},
	}
}

// NewGrant returns an empty grant in stage with sector defaulted.
func NewGrant(stage Stage) Grant {
	return Grant{Sector: domain.DefaultSector, Stage: stage}
}

// DefaultSeed returns the collection used when nothing usable is stored.
func DefaultSeed() Collection {
	now := time.Now().UTC()
	seed := func(name, funder, website, region string) Grant {
		g := NewGrant(domain.StageIntake)
		g.ID = uuid.NewString()
		g.Name = name
		g.Funder = funder
		g.Website = website
		g.Region = region
		g.LastActivity = now
		return g
	}
	return Collection{
		SchemaVersion: domain.CurrentSchemaVersion,
		Records: []Grant{
			seed("Amazon – Meet & Code", "Amazon / Meet & Code", "https://meet-and-code.org/", "Europe"),
			seed("SAP Corporate Giving", "SAP", "https://www.sap.com/", "Germany"),
		},
		Templates: DefaultTemplates(),
	}
}
