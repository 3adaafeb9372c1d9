package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Format is the extraction format requested from the data endpoint.
type Format string

// Data endpoint formats. CSV is the default synchronous format; BULK streams
// large extracts.
const (
	FormatCSV      Format = "CSV"
	FormatBulk     Format = "BULK"
	FormatJSONStat Format = "JSONSTAT"
	FormatXLSX     Format = "XLSX"
	FormatPX       Format = "PX"
)

// Formats lists the formats the data endpoint accepts.
var Formats = []Format{FormatCSV, FormatBulk, FormatJSONStat, FormatXLSX, FormatPX}

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(string(f), name) {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return "", fmt.Errorf("unknown format %q (expected one of %s)", name, strings.Join(names, ", "))
}

// Delimited reports whether the format is a semicolon-delimited table.
func (f Format) Delimited() bool {
	return f == FormatCSV || f == FormatBulk
}

// Fragment is one dimension's part of an extraction request.
type Fragment struct {
	Code   string   `json:"code"`
	Values []string `json:"values"`
}

// Request is the body of a data endpoint call. Its JSON form is the
// endpoint's documented request shape.
type Request struct {
	Table     string     `json:"table"`
	Format    Format     `json:"format"`
	Variables []Fragment `json:"variables"`
}

// JSON returns the request body.
func (r *Request) JSON() ([]byte, error) {
	return json.Marshal(r)
}

type buildConfig struct {
	format Format
}

// BuildOption configures a single BuildRequest call.
type BuildOption func(*buildConfig)

// WithFormat overrides the format chosen from the row estimate.
// The safety gate still applies.
func WithFormat(f Format) BuildOption {
	return func(c *buildConfig) { c.format = f }
}

// BuildRequest assembles the extraction request.
//
// Dimensions with no chosen values are left out. When the row estimate
// exceeds the safety threshold the format escalates to BULK and, unless the
// builder auto-accepts large pulls, the configured Confirmer must approve
// the pull. A declined or impossible confirmation returns ErrUserAborted and
// no request. An approval covers later builds up to the approved estimate.
func (b *Builder) BuildRequest(ctx context.Context, opts ...BuildOption) (*Request, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	rows := b.RowEstimate()
	large := rows > b.threshold

	format := FormatCSV
	if large {
		format = FormatBulk
	}
	if cfg.format != "" {
		format = cfg.format
	}

	if large && !b.autoAccept && rows > b.confirmedRows {
		if err := b.confirm(ctx, rows); err != nil {
			return nil, err
		}
	}

	variables := make([]Fragment, 0, len(b.dims))
	for _, d := range b.dims {
		f := d.QueryFragment()
		if len(f.Values) == 0 {
			continue
		}
		variables = append(variables, f)
	}

	b.logger.Debug("built extraction request",
		"table", b.tableID,
		"format", format,
		"rows", rows,
		"columns", b.ColumnEstimate(),
		"variables", len(variables))

	return &Request{
		Table:     b.tableID,
		Format:    format,
		Variables: variables,
	}, nil
}

// confirm runs the safety gate for a pull of the given size.
func (b *Builder) confirm(ctx context.Context, rows int64) error {
	if b.confirmer == nil {
		b.logger.Warn("oversized pull without confirmation", "table", b.tableID, "rows", rows)
		return fmt.Errorf("%w: %d estimated rows exceed the safety threshold of %d and no confirmation is available",
			ErrUserAborted, rows, b.threshold)
	}

	ok, err := b.confirmer.Confirm(ctx, gatePrompt(b.tableID, rows, b.threshold))
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		b.logger.Info("oversized pull declined", "table", b.tableID, "rows", rows)
		return fmt.Errorf("%w: %d estimated rows", ErrUserAborted, rows)
	}

	b.confirmedRows = rows
	return nil
}
