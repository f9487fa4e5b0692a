package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// OutreachClient selects the compose URI flavour.
type OutreachClient string

const (
	// ClientGmail opens the Gmail web composer.
	ClientGmail OutreachClient = "gmail"
	// ClientMailto uses the platform mail handler.
	ClientMailto OutreachClient = "mailto"
)

const gmailComposeBase = "https://mail.google.com/mail/?view=cm&fs=1"

// Opener hands a compose URI to something that can display it.
type Opener interface {
	Open(ctx context.Context, uri string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, uri string) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, uri string) error { return f(ctx, uri) }

// ComposeURI builds a compose link for client with every field percent-encoded.
func ComposeURI(client OutreachClient, to, subject, body string) (string, error) {
	switch client {
	case ClientGmail, "":
		return gmailComposeBase +
			"&to=" + encodeComponent(to) +
			"&su=" + encodeComponent(subject) +
			"&body=" + encodeComponent(body), nil
	case ClientMailto:
		return "mailto:" + url.PathEscape(to) +
			"?subject=" + encodeComponent(subject) +
			"&body=" + encodeComponent(body), nil
	default:
		return "", fmt.Errorf("unknown outreach client %q", client)
	}
}

var componentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent percent-encodes s with spaces as %20, leaving the
// unreserved mark characters readable.
func encodeComponent(s string) string {
	return componentUnescapes.Replace(url.QueryEscape(s))
}
