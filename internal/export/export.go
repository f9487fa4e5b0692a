// Package export renders the grant pipeline into downloadable artifacts and
// stores them in a blob store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"

	"grantcrm/internal/blob"
	"grantcrm/internal/core"
)

// Format names an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Formats lists the supported formats in their default order.
func Formats() []Format { return []Format{FormatJSON, FormatCSV} }

// ParseFormat resolves a format name.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(raw); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// Artifact describes one stored export.
type Artifact struct {
	Format Format
	Rows   int
	Info   blob.Info
}

// Columns is the CSV header, one per exported grant field.
var Columns = []string{
	"id", "name", "funder", "website", "deadline", "region", "sector", "amount",
	"contact_name", "contact_email", "notes", "stage", "stage_label", "last_activity",
}

// Exporter writes pipeline snapshots to a blob store.
type Exporter struct {
	store   blob.Store
	machine *core.StageMachine
	logger  *zap.Logger
	now     func() time.Time
	prefix  string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces the timestamp source used in keys.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// WithPrefix stores artifacts under prefix.
func WithPrefix(prefix string) Option {
	return func(e *Exporter) { e.prefix = prefix }
}

// New constructs an Exporter.
func New(store blob.Store, machine *core.StageMachine, opts ...Option) *Exporter {
	if machine == nil {
		machine = core.DefaultStageMachine()
	}
	e := &Exporter{store: store, machine: machine, logger: zap.NewNop(), now: time.Now, prefix: "exports"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders grants once per distinct format and stores each artifact.
// All artifacts of one call share a timestamped key stem.
func (e *Exporter) Export(ctx context.Context, grants []core.Grant, formats ...Format) ([]Artifact, error) {
	if len(formats) == 0 {
		formats = Formats()
	}
	stem := path.Join(e.prefix, "grants-"+e.now().UTC().Format("20060102T150405Z"))
	seen := make(map[Format]struct{}, len(formats))
	out := make([]Artifact, 0, len(formats))
	for _, f := range formats {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		payload, contentType, err := Render(f, e.machine, grants)
		if err != nil {
			return out, err
		}
		info, err := e.store.Put(ctx, stem+"."+string(f), bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"rows": strconv.Itoa(len(grants)), "format": string(f)},
		})
		if err != nil {
			return out, fmt.Errorf("store %s export: %w", f, err)
		}
		e.logger.Info("pipeline exported",
			zap.String("key", info.Key), zap.String("format", string(f)), zap.Int("rows", len(grants)))
		out = append(out, Artifact{Format: f, Rows: len(grants), Info: info})
	}
	return out, nil
}

// Render encodes grants in format and returns the payload and its content type.
func Render(format Format, machine *core.StageMachine, grants []core.Grant) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(grants, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		w := csv.NewWriter(buf)
		if err := w.Write(Columns); err != nil {
			return nil, "", err
		}
		for _, g := range grants {
			if err := w.Write(row(machine, g)); err != nil {
				return nil, "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %s", format)
	}
}

func row(machine *core.StageMachine, g core.Grant) []string {
	activity := ""
	if !g.LastActivity.IsZero() {
		activity = g.LastActivity.UTC().Format(time.RFC3339)
	}
	return []string{
		g.ID, g.Name, g.Funder, g.Website, g.Deadline, g.Region, g.Sector, g.Amount,
		g.ContactName, g.ContactEmail, g.Notes, string(g.Stage), machine.Label(g.Stage), activity,
	}
}
