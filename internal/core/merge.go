package core

import "strings"

// Merged is a template rendered against a grant.
type Merged struct {
	Subject string
	Body    string
}

type mergeToken struct {
	token    string
	value    func(Grant) string
	fallback string
}

// mergeTokens is applied in order. Each token is replaced literally across
// subject and body; tokens not listed here are left verbatim.
var mergeTokens = []mergeToken{
	{"{FirstName}", firstName, "there"},
	{"{Grant}", func(g Grant) string { return g.Name }, "your grant"},
	{"{Funder}", func(g Grant) string { return g.Funder }, "your foundation"},
	{"{Sector}", func(g Grant) string { return g.Sector }, "education"},
	{"{Amount}", func(g Grant) string { return g.Amount }, "requested support"},
	{"{Region}", func(g Grant) string { return g.Region }, "our regions"},
}

// MergeTokens lists the recognised placeholder tokens.
func MergeTokens() []string {
	out := make([]string, 0, len(mergeTokens))
	for _, t := range mergeTokens {
		out = append(out, t.token)
	}
	return out
}

// Merge substitutes grant fields into the template's subject and body.
func Merge(tpl Template, g Grant) Merged {
	subject, body := tpl.Subject, tpl.Body
	for _, t := range mergeTokens {
		v := t.value(g)
		if v == "" {
			v = t.fallback
		}
		subject = strings.ReplaceAll(subject, t.token, v)
		body = strings.ReplaceAll(body, t.token, v)
	}
	return Merged{Subject: subject, Body: body}
}

func firstName(g Grant) string {
	first, _, _ := strings.Cut(g.ContactName, " ")
	return first
}
