package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"grantcrm/internal/core"
	"grantcrm/pkg/domain"
)

type recordingOpener struct{ uris []string }

func (r *recordingOpener) Open(_ context.Context, uri string) error {
	r.uris = append(r.uris, uri)
	return nil
}

type cliEnv struct {
	t        *testing.T
	config   string
	textfile string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	textfile := filepath.Join(dir, "grantcrm.prom")
	t.Setenv("GRANTCRM_STORAGE_DRIVER", "fs")
	t.Setenv("GRANTCRM_FS_ROOT", filepath.Join(dir, "data"))
	t.Setenv("GRANTCRM_SESSION_PATH", filepath.Join(dir, "session.json"))
	t.Setenv("GRANTCRM_METRICS_TEXTFILE", textfile)
	t.Setenv("GRANTCRM_LOG_LEVEL", "error")
	return &cliEnv{t: t, config: filepath.Join(dir, "missing.yaml"), textfile: textfile}
}

func (e *cliEnv) runWith(a *app, args ...string) (string, error) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), a, append([]string{"--config", e.config}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	return e.runWith(newApp(), args...)
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "grantcrm %s\n%s", strings.Join(args, " "), out)
	return out
}

var createdRE = regexp.MustCompile(`Created grant (\S+)`)

func (e *cliEnv) add(args ...string) string {
	e.t.Helper()
	out := e.mustRun(append([]string{"add"}, args...)...)
	m := createdRE.FindStringSubmatch(out)
	require.Len(e.t, m, 2, out)
	return m[1]
}

// grantArgs returns add flags for a grant that passes validation, followed by extra.
func grantArgs(name string, extra ...string) []string {
	args := []string{"--name", name, "--funder", "Acme Foundation",
		"--website", "https://acme.org/grants", "--deadline", "2026-11-30", "--region", "India"}
	return append(args, extra...)
}

func (e *cliEnv) listJSON(args ...string) []core.Grant {
	e.t.Helper()
	out := e.mustRun(append([]string{"list", "--json"}, args...)...)
	var grants []core.Grant
	require.NoError(e.t, json.Unmarshal([]byte(out), &grants), out)
	return grants
}

func TestDataCommandsRequireSignIn(t *testing.T) {
	e := newCLIEnv(t)
	_, err := e.run("list")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not signed in")

	out := e.mustRun("whoami")
	require.Contains(t, out, "Not signed in")
}

func TestLoginRejectsOtherDomains(t *testing.T) {
	e := newCLIEnv(t)
	_, err := e.run("login", "someone@example.com")
	require.Error(t, err)
	var unauth core.ErrUnauthorized
	require.ErrorAs(t, err, &unauth)

	// the rejected identity is not kept
	out := e.mustRun("whoami")
	require.Contains(t, out, "Not signed in")
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	e := newCLIEnv(t)
	out := e.mustRun("login", "Aadi@LiliPadLibrary.org")
	require.Contains(t, out, "Signed in as Aadi@LiliPadLibrary.org")

	out = e.mustRun("whoami")
	require.Contains(t, out, "(allowed,")

	e.mustRun("logout")
	_, err := e.run("board")
	require.Error(t, err)
}

func TestFirstRunShowsSeedData(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")

	grants := e.listJSON()
	require.Len(t, grants, 2)
	for _, g := range grants {
		require.Equal(t, core.Stage("intake"), g.Stage)
	}

	out := e.mustRun("templates", "list")
	require.Contains(t, out, "Intro + Fit")
	require.Contains(t, out, "{FirstName}")
}

func TestAddEditMoveDelete(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")

	id := e.add(grantArgs("Literacy Fund", "--contact-name", "Jane Doe", "--contact-email", "jane@acme.org")...)

	grants := e.listJSON()
	require.Len(t, grants, 3)
	require.Equal(t, id, grants[0].ID, "new grants are listed first")
	require.Equal(t, domain.DefaultSector, grants[0].Sector)

	out := e.mustRun("edit", id[:8], "--amount", "$25,000")
	require.Contains(t, out, "Updated Literacy Fund")

	out = e.mustRun("move", id, "Qualified")
	require.Contains(t, out, "Moved Literacy Fund: Intake -> Qualified")

	out = e.mustRun("move", id, "qualified")
	require.Contains(t, out, "already in Qualified")

	out = e.mustRun("show", id)
	require.Contains(t, out, "$25,000")
	require.Contains(t, out, "Qualified")

	e.mustRun("move", id, "won")
	out = e.mustRun("move", id, "lost")
	require.Contains(t, out, "Won -> Closed – Lost")

	out = e.mustRun("delete", id)
	require.Contains(t, out, "Deleted "+id)
	require.Len(t, e.listJSON(), 2)
}

func TestMovingIntoWonCelebrates(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	id := e.add(grantArgs("Big Award")...)

	out := e.mustRun("move", id, "won")
	require.Contains(t, out, "Marked as WON! Big Award")

	out = e.mustRun("move", id, "won")
	require.NotContains(t, out, "Marked as WON!")
}

func TestAddReportsInvalidFields(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")

	_, err := e.run("add", "--name", "Broken", "--website", "ftp://acme.org")
	require.Error(t, err)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "Website must start with http:// or https://", verr.Fields["website"])
	require.Contains(t, verr.Fields, "deadline")
	require.Contains(t, verr.Fields, "region")
	require.NotContains(t, verr.Fields, "name")

	var buf bytes.Buffer
	reportError(&buf, err)
	require.Contains(t, buf.String(), "validation failed")
	require.Contains(t, buf.String(), "  website: ")
	require.Len(t, e.listJSON(), 2)
}

func TestIntakeGrantsCannotBeDeleted(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	id := e.add(grantArgs("Fresh")...)

	_, err := e.run("delete", id)
	require.Error(t, err)
	var forbidden core.ErrForbidden
	require.ErrorAs(t, err, &forbidden)
	require.Len(t, e.listJSON(), 3)
}

func TestUnknownStageFlagIsRejected(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	seed := e.listJSON()[0]

	_, err := e.run("edit", seed.ID, "--stage", "archived")
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown stage "archived"`)
}

func TestBulkMoveReportsEachRecord(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	good := e.add(grantArgs("Complete")...)
	var seed core.Grant
	for _, g := range e.listJSON() {
		if g.ID != good {
			seed = g
		}
	}

	// seed grants have no deadline, so strict promotion stops them
	out, err := e.run("bulk-move", "--to", "qualified", good, seed.ID)
	require.Error(t, err)
	require.Contains(t, out, shortID(good)+": moved")
	require.Contains(t, out, "Moved 1 of 2 to Qualified")

	qualified := e.listJSON("--stage", "qualified")
	require.Len(t, qualified, 1)
	require.Equal(t, good, qualified[0].ID)
}

func TestListFiltersAndSorts(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	late := e.add(grantArgs("Late", "--deadline", "2027-03-01")...)
	early := e.add(grantArgs("Early", "--deadline", "2026-12-01")...)

	// seed grants have no deadline and sort ahead of both
	grants := e.listJSON("--by-deadline")
	require.Len(t, grants, 4)
	require.Empty(t, grants[0].Deadline)
	require.Empty(t, grants[1].Deadline)
	require.Equal(t, early, grants[2].ID)
	require.Equal(t, late, grants[3].ID)

	require.Empty(t, e.listJSON("--stage", "won,lost"))

	out := e.mustRun("list")
	require.Contains(t, out, "GRANT")
	require.Contains(t, out, shortID(early))
}

func TestBoardRendersColumns(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	out := e.mustRun("board")
	require.Contains(t, out, "Intake (2)")
	require.Contains(t, out, "Submitted (0)")
}

func TestTemplateLifecycleAndImport(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")

	out := e.mustRun("templates", "add", "--name", "Thanks", "--subject", "Thank you, {Funder}", "--body", "Hi {FirstName}")
	m := regexp.MustCompile(`Created template (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)

	e.mustRun("templates", "edit", m[1], "--subject", "Many thanks, {Funder}")
	out = e.mustRun("templates", "show", m[1])
	require.Contains(t, out, "Subject: Many thanks, {Funder}")

	e.mustRun("templates", "delete", m[1])
	_, err := e.run("templates", "show", m[1])
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "templates.jsonc")
	require.NoError(t, os.WriteFile(file, []byte(`{
  // shared with the board
  "templates": [
    {"id": "t1", "name": "Intro v2", "subject": "Hello {Funder}", "body": "Hi {FirstName}"},
    {"id": "t9", "name": "Renewal", "subject": "Renewing {Grant}", "body": "Hi {FirstName},",},
  ],
}`), 0o600))
	out = e.mustRun("templates", "import", file)
	require.Contains(t, out, "Imported 2 templates")

	out = e.mustRun("templates", "list")
	require.Contains(t, out, "Intro v2")
	require.Contains(t, out, "Renewal")
	require.NotContains(t, out, "Intro + Fit")
}

func TestComposeSaveDraftAndSend(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	id := e.add("--name", "Literacy Fund", "--funder", "Acme", "--website", "https://acme.org",
		"--deadline", "2026-11-30", "--region", "India", "--contact-name", "Jane Doe", "--contact-email", "jane@acme.org")

	out := e.mustRun("compose", id, "--template", "t2", "--save-draft")
	require.Contains(t, out, "Subject: Following up on Literacy Fund at Acme")
	require.Contains(t, out, "Hi Jane,")
	require.Contains(t, out, "Draft saved")

	opener := &recordingOpener{}
	a := newApp()
	a.opener = opener
	out, err := e.runWith(a, "compose", id, "--send")
	require.NoError(t, err, out)
	require.Contains(t, out, "Subject: Following up on Literacy Fund at Acme", "the saved draft is preferred")
	require.Len(t, opener.uris, 1)
	require.True(t, strings.HasPrefix(opener.uris[0], "https://mail.google.com/mail/?view=cm&fs=1&to=jane%40acme.org"), opener.uris[0])

	out = e.mustRun("compose", id, "--send", "--no-open", "--subject", "Custom")
	require.Contains(t, out, "https://mail.google.com/")
	require.Contains(t, out, "su=Custom")
}

func TestComposeWithoutContactEmail(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	id := e.add(grantArgs("No Contact")...)

	_, err := e.run("compose", id, "--send", "--no-open")
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "No contact email on this grant.", verr.Fields["contact_email"])
}

func TestResetRestoresSeed(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	e.add(grantArgs("Extra")...)
	require.Len(t, e.listJSON(), 3)

	out := e.mustRun("reset")
	require.Contains(t, out, "2 grants, 2 templates")
	require.Len(t, e.listJSON(), 2)
}

func TestMetricsTextfileWritten(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	e.add(grantArgs("Metered")...)

	data, err := os.ReadFile(e.textfile)
	require.NoError(t, err)
	require.Contains(t, string(data), "grantcrm_")
}

func TestExportWritesFiles(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("login", "aadi@lilipadlibrary.org")
	dir := t.TempDir()

	out := e.mustRun("export", "--dir", dir, "--format", "csv")
	require.Contains(t, out, "Wrote 2 grants to ")

	matches, err := filepath.Glob(filepath.Join(dir, "grants-*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "id,name,funder,"))

	_, err = e.run("export", "--dir", dir, "--format", "xlsx")
	require.ErrorContains(t, err, "unsupported export format")
}

func TestStagesListsMachine(t *testing.T) {
	e := newCLIEnv(t)
	out := e.mustRun("stages")
	require.Contains(t, out, "intake")
	require.Contains(t, out, "(initial, deletion locked)")
	require.Contains(t, out, "(terminal, celebrated)")
}
