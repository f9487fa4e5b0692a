package core

import (
	"net/url"
	"strings"
)

// Grant fields checked by ValidateGrant.
const (
	FieldName     = "name"
	FieldWebsite  = "website"
	FieldDeadline = "deadline"
	FieldRegion   = "region"
)

// ValidateGrant checks every validated field and returns field -> message for
// each failure. An empty map means the grant is valid.
func ValidateGrant(g Grant) map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(g.Name) == "" {
		errs[FieldName] = "Grant name is required"
	}
	if msg := validateWebsite(g.Website); msg != "" {
		errs[FieldWebsite] = msg
	}
	if strings.TrimSpace(g.Deadline) == "" {
		errs[FieldDeadline] = "Deadline is required"
	}
	if strings.TrimSpace(g.Region) == "" {
		errs[FieldRegion] = "Region is required"
	}
	return errs
}

// ValidateFields runs ValidateGrant and keeps only the listed fields.
func ValidateFields(g Grant, fields ...string) map[string]string {
	all := ValidateGrant(g)
	out := make(map[string]string)
	for _, f := range fields {
		if msg, ok := all[f]; ok {
			out[f] = msg
		}
	}
	return out
}

func validateWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Website is required"
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return "Website must be a full URL (http/https)"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "Website must start with http:// or https://"
	}
	if u.Host == "" {
		return "Website must include a host"
	}
	return ""
}
