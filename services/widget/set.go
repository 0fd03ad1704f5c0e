package widget

import (
	"sort"

	"dbadminapi/models"
	"dbadminapi/pkg/logger"
)

// Set is the parsed widget collection of one table, indexed by column.
type Set struct {
	byField map[string]Widget
}

// NewSet indexes widgets by field name. A later widget for the same field replaces an earlier one.
func NewSet(widgets []Widget) Set {
	s := Set{byField: make(map[string]Widget, len(widgets))}
	for _, w := range widgets {
		s.byField[w.FieldName] = w
	}
	return s
}

// ParseAll parses every stored widget. Widgets with invalid params are reported on log and
// kept with their kind but without params, so a Password column is still redacted.
func ParseAll(stored []models.TableWidget, log *logger.Entry) Set {
	if log == nil {
		log = logger.WithFields(nil)
	}
	parsed := make([]Widget, 0, len(stored))
	for _, w := range stored {
		pw, err := Parse(w)
		if err != nil {
			log.WithError(err).Warnf("ignoring params of %s widget on %q", w.WidgetType, w.FieldName)
		}
		parsed = append(parsed, pw)
	}
	return NewSet(parsed)
}

// Get returns the widget bound to field.
func (s Set) Get(field string) (Widget, bool) {
	w, ok := s.byField[field]
	return w, ok
}

// Len returns the number of widgets.
func (s Set) Len() int {
	return len(s.byField)
}

// FieldsOfKind returns the sorted field names bound to a widget of kind k.
func (s Set) FieldsOfKind(k Kind) []string {
	var out []string
	for field, w := range s.byField {
		if w.Kind == k {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// ForeignKeys returns the virtual foreign keys defined by Foreign_key widgets, sorted by column.
func (s Set) ForeignKeys() []ForeignKeyParams {
	var out []ForeignKeyParams
	for _, field := range s.FieldsOfKind(KindForeignKey) {
		if fk := s.byField[field].ForeignKey; fk != nil {
			out = append(out, *fk)
		}
	}
	return out
}

// Sources returns the stored widgets in field order.
func (s Set) Sources() []models.TableWidget {
	fields := make([]string, 0, len(s.byField))
	for f := range s.byField {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make([]models.TableWidget, 0, len(fields))
	for _, f := range fields {
		out = append(out, s.byField[f].Source)
	}
	return out
}
