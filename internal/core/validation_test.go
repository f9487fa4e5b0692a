package core

import "testing"

func validGrant() Grant {
	return Grant{
		Name:     "Literacy Fund",
		Funder:   "Acme",
		Website:  "https://acme.org/grants",
		Deadline: "2026-11-01",
		Region:   "Europe",
	}
}

func TestValidateGrantWebsite(t *testing.T) {
	cases := []struct {
		website string
		ok      bool
	}{
		{"https://acme.org", true},
		{"http://acme.org/path?q=1", true},
		{"  https://acme.org  ", true},
		{"", false},
		{"   ", false},
		{"ftp://x.com", false},
		{"notaurl", false},
		{"acme.org", false},
		{"https://", false},
		{"mailto:a@acme.org", false},
	}
	for _, tc := range cases {
		g := validGrant()
		g.Website = tc.website
		errs := ValidateGrant(g)
		_, bad := errs[FieldWebsite]
		if bad == tc.ok {
			t.Fatalf("website %q: expected ok=%v, got errors %v", tc.website, tc.ok, errs)
		}
	}
}

func TestValidateGrantReportsEveryField(t *testing.T) {
	errs := ValidateGrant(Grant{Name: "  "})
	for _, f := range []string{FieldName, FieldWebsite, FieldDeadline, FieldRegion} {
		if errs[f] == "" {
			t.Fatalf("expected error for %s, got %v", f, errs)
		}
	}
	if len(errs) != 4 {
		t.Fatalf("expected exactly 4 errors, got %v", errs)
	}
	if errs := ValidateGrant(validGrant()); len(errs) != 0 {
		t.Fatalf("valid grant rejected: %v", errs)
	}
}

func TestValidateFieldsFilters(t *testing.T) {
	g := validGrant()
	g.Deadline = ""
	g.Region = ""
	errs := ValidateFields(g, FieldName, FieldRegion)
	if len(errs) != 1 || errs[FieldRegion] == "" {
		t.Fatalf("expected only region error, got %v", errs)
	}
}
