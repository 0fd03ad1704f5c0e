// Package widget parses per-column widget definitions into typed parameters.
//
// widget_params is stored as the JSON5 text the admin typed (comments, unquoted keys,
// trailing commas). It is parsed once per load into one of the typed parameter structs below.
package widget

import (
	"fmt"
	"strings"

	"dbadminapi/models"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Kind is the widget_type of a column widget.
type Kind string

// Widget kinds with value-transformation behavior. Other kinds are display-only here.
const (
	KindPassword   Kind = "Password"
	KindUUID       Kind = "UUID"
	KindForeignKey Kind = "Foreign_key"
)

// PasswordParams selects how a Password widget processes new values.
type PasswordParams struct {
	Encrypt   bool   `json:"encrypt"`
	Algorithm string `json:"algorithm"`
}

// UUIDParams selects the UUID version generated for absent values.
type UUIDParams struct {
	Version   string `json:"version"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// ForeignKeyParams defines a virtual foreign key.
type ForeignKeyParams struct {
	ColumnName           string `json:"column_name"`
	ReferencedColumnName string `json:"referenced_column_name"`
	ReferencedTableName  string `json:"referenced_table_name"`
	ConstraintName       string `json:"constraint_name"`
}

// Widget is a parsed column widget. Exactly one of the params pointers is set for the
// kinds that carry parameters.
type Widget struct {
	FieldName  string
	Kind       Kind
	Password   *PasswordParams
	UUID       *UUIDParams
	ForeignKey *ForeignKeyParams
	Source     models.TableWidget
}

// Parse converts a stored widget into its typed form.
func Parse(w models.TableWidget) (Widget, error) {
	out := Widget{FieldName: w.FieldName, Kind: Kind(w.WidgetType), Source: w}
	body := strings.TrimSpace(w.WidgetParams)

	switch out.Kind {
	case KindPassword:
		p := PasswordParams{}
		if err := decode(body, &p); err != nil {
			return out, fmt.Errorf("widget %s: password params: %w", w.FieldName, err)
		}
		out.Password = &p
	case KindUUID:
		p := UUIDParams{Version: "v4"}
		if err := decode(body, &p); err != nil {
			return out, fmt.Errorf("widget %s: uuid params: %w", w.FieldName, err)
		}
		if _, err := parseVersion(p.Version); err != nil {
			return out, fmt.Errorf("widget %s: %w", w.FieldName, err)
		}
		out.UUID = &p
	case KindForeignKey:
		p := ForeignKeyParams{}
		if err := decode(body, &p); err != nil {
			return out, fmt.Errorf("widget %s: foreign key params: %w", w.FieldName, err)
		}
		if p.ColumnName == "" {
			p.ColumnName = w.FieldName
		}
		if p.ReferencedTableName == "" || p.ReferencedColumnName == "" {
			return out, fmt.Errorf("widget %s: foreign key params need referenced_table_name and referenced_column_name", w.FieldName)
		}
		out.ForeignKey = &p
	}
	return out, nil
}

func decode(body string, v interface{}) error {
	if body == "" {
		return nil
	}
	return json5.Unmarshal([]byte(body), v)
}
