// Package transform holds the per-row value transformations applied between the HTTP
// payload and the data access object. Every step takes a row snapshot and returns a new
// one; the input row is never modified.
package transform

import (
	"fmt"
	"sort"

	"dbadminapi/pkg/logger"
	"dbadminapi/services/apperrors"
	"dbadminapi/services/dao"
	"dbadminapi/services/metadata"
	"dbadminapi/services/widget"
)

// PasswordSentinel replaces Password widget values on the way out. Sending it back on
// update means "unchanged".
const PasswordSentinel = "***"

// Context is the table description a chain runs against.
type Context struct {
	Metadata *metadata.TableMetadata
	Log      *logger.Entry
}

func (c *Context) log() *logger.Entry {
	if c.Log == nil {
		return logger.WithFields(nil)
	}
	return c.Log
}

func (c *Context) widgets() widget.Set {
	if c.Metadata == nil {
		return widget.Set{}
	}
	return c.Metadata.Widgets
}

// Step transforms one row snapshot.
type Step func(c *Context, row dao.Row) (dao.Row, error)

// Apply runs steps in order, stopping at the first error.
func Apply(c *Context, row dao.Row, steps ...Step) (dao.Row, error) {
	out := row.Clone()
	if out == nil {
		out = dao.Row{}
	}
	for _, step := range steps {
		var err error
		out, err = step(c, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Inbound returns the steps applied to a row before it is written. requireAll enables
// the required-column check used by inserts.
func Inbound(requireAll bool) []Step {
	steps := []Step{ValidateRow(requireAll)}
	if !requireAll {
		steps = append(steps, DropReadonly)
	}
	steps = append(steps, HashPasswords, DecodeUUIDs)
	if requireAll {
		steps = append(steps, FillMissingUUIDs)
	}
	return append(steps, HexToBinary)
}

// Outbound returns the steps applied to a row read back from the database.
func Outbound() []Step {
	return []Step{BinaryToHex, RedactPasswords}
}

// ValidateRow reports every column missing from the live structure and, when requireAll
// is set, every required column the row does not supply. All violations are returned in
// one ValidationFailed error.
func ValidateRow(requireAll bool) Step {
	return func(c *Context, row dao.Row) (dao.Row, error) {
		if c.Metadata == nil {
			return row, nil
		}
		var violations []string
		for _, col := range row.Columns() {
			if _, ok := c.Metadata.Column(col); !ok {
				violations = append(violations, fmt.Sprintf("column %q does not exist in table", col))
			}
		}
		if requireAll {
			w := c.widgets()
			for _, col := range c.Metadata.Structure {
				if !col.IsRequired() {
					continue
				}
				if v, ok := row[col.ColumnName]; ok && v != nil {
					continue
				}
				if wd, ok := w.Get(col.ColumnName); ok && wd.Kind == widget.KindUUID {
					continue
				}
				violations = append(violations, fmt.Sprintf("column %q is required", col.ColumnName))
			}
		}
		if len(violations) > 0 {
			return nil, apperrors.ValidationFailed(violations)
		}
		return row, nil
	}
}

// ValidatePrimaryKey checks that pk names exactly the table's primary columns.
func ValidatePrimaryKey(md *metadata.TableMetadata, pk dao.Row) error {
	expected := md.PrimaryColumnNames()
	got := pk.Columns()
	if len(expected) == 0 || len(expected) != len(got) {
		return invalidKey(expected, got)
	}
	for _, col := range expected {
		if _, ok := pk[col]; !ok {
			return invalidKey(expected, got)
		}
	}
	return nil
}

func invalidKey(expected, got []string) error {
	sorted := append([]string(nil), expected...)
	sort.Strings(sorted)
	return apperrors.InvalidPrimaryKey(sorted, got)
}

// DropReadonly removes columns listed as readonly in the table settings.
func DropReadonly(c *Context, row dao.Row) (dao.Row, error) {
	if c.Metadata == nil || c.Metadata.Settings == nil {
		return row, nil
	}
	for _, f := range c.Metadata.Settings.ReadonlyFields {
		delete(row, f)
	}
	return row, nil
}
