package core

import (
	"net/url"
	"strings"
	"testing"
)

func TestComposeURIGmail(t *testing.T) {
	uri, err := ComposeURI(ClientGmail, "jane@acme.org", "Hello world", "Line1\nLine2 & more")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	want := gmailComposeBase + "&to=jane%40acme.org&su=Hello%20world&body=Line1%0ALine2%20%26%20more"
	if uri != want {
		t.Fatalf("got %s\nwant %s", uri, want)
	}
	if def, _ := ComposeURI("", "jane@acme.org", "Hello world", "Line1\nLine2 & more"); def != uri {
		t.Fatalf("empty client should default to gmail")
	}
}

func TestComposeURIMailtoRoundTrips(t *testing.T) {
	subject := "Q&A: 100% (fit)?"
	body := "Hi Jane,\n\nit's a = b + c"
	uri, err := ComposeURI(ClientMailto, "jane@acme.org", subject, body)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.HasPrefix(uri, "mailto:jane@acme.org?subject=") {
		t.Fatalf("unexpected mailto prefix %s", uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("subject") != subject || q.Get("body") != body {
		t.Fatalf("round trip mismatch: %q / %q", q.Get("subject"), q.Get("body"))
	}
}

func TestEncodeComponentMarks(t *testing.T) {
	if got := encodeComponent("it's (ok)*!"); got != "it's%20(ok)*!" {
		t.Fatalf("unexpected encoding %q", got)
	}
}

func TestComposeURIUnknownClient(t *testing.T) {
	if _, err := ComposeURI("pigeon", "a@b.org", "s", "b"); err == nil {
		t.Fatalf("expected error for unknown client")
	}
}
