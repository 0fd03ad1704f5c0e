package transform

import (
	"encoding/hex"
	"fmt"
	"sort"

	"dbadminapi/services/apperrors"
	"dbadminapi/services/dao"
	"dbadminapi/services/encryption"
	"dbadminapi/services/widget"
)

// HashPasswords drops Password fields that carry the sentinel and hashes the others when
// the widget asks for it. A hashing failure or a widget whose params did not parse fails
// the row rather than storing plaintext.
func HashPasswords(c *Context, row dao.Row) (dao.Row, error) {
	w := c.widgets()
	for _, field := range w.FieldsOfKind(widget.KindPassword) {
		v, ok := row[field]
		if !ok {
			continue
		}
		s, isString := v.(string)
		if isString && s == PasswordSentinel {
			delete(row, field)
			continue
		}
		if v == nil || (isString && s == "") {
			continue
		}
		wd, _ := w.Get(field)
		if wd.Password == nil {
			c.log().WithField("column", field).Errorf("password widget params could not be parsed")
			return nil, apperrors.OperationFailed(fmt.Errorf("password widget on column %q has invalid params", field))
		}
		if !isString || !wd.Password.Encrypt {
			continue
		}
		alg, err := encryption.ParseAlgorithm(wd.Password.Algorithm)
		if err == nil {
			row[field], err = encryption.ProcessDataWithAlgorithm(s, alg)
		}
		if err != nil {
			c.log().WithError(err).WithField("column", field).Errorf("password widget processing failed")
			return nil, apperrors.OperationFailed(fmt.Errorf("process password column %q: %w", field, err))
		}
	}
	return row, nil
}

// DecodeUUIDs converts 16-byte buffers in UUID widget columns to canonical strings.
func DecodeUUIDs(c *Context, row dao.Row) (dao.Row, error) {
	for _, field := range c.widgets().FieldsOfKind(widget.KindUUID) {
		b, ok := row[field].([]byte)
		if !ok {
			continue
		}
		if s, ok := widget.DecodeBytes(b); ok {
			row[field] = s
		}
	}
	return row, nil
}

// FillMissingUUIDs generates a value for every UUID widget column the row leaves out.
func FillMissingUUIDs(c *Context, row dao.Row) (dao.Row, error) {
	w := c.widgets()
	for _, field := range w.FieldsOfKind(widget.KindUUID) {
		if v, ok := row[field]; ok && v != nil && v != "" {
			continue
		}
		params := widget.UUIDParams{}
		if wd, _ := w.Get(field); wd.UUID != nil {
			params = *wd.UUID
		}
		id, err := params.Generate()
		if err != nil {
			c.log().WithError(err).WithField("column", field).Errorf("uuid widget generation failed")
			return nil, apperrors.ValidationFailed([]string{fmt.Sprintf("column %q: %v", field, err)})
		}
		row[field] = id
	}
	return row, nil
}

// HexToBinary decodes hex strings supplied for binary columns. UUID widget columns stored
// as binary also accept the canonical UUID form.
func HexToBinary(c *Context, row dao.Row) (dao.Row, error) {
	if c.Metadata == nil {
		return row, nil
	}
	w := c.widgets()
	var violations []string
	for col := range c.Metadata.BinaryColumns() {
		s, ok := row[col].(string)
		if !ok {
			continue
		}
		if wd, ok := w.Get(col); ok && wd.Kind == widget.KindUUID {
			if b, ok := widget.EncodeBytes(s); ok {
				row[col] = b
				continue
			}
		}
		b, err := HexToBinaryValue(s)
		if err != nil {
			violations = append(violations, fmt.Sprintf("column %q: value is not valid hex", col))
			continue
		}
		row[col] = b
	}
	if len(violations) > 0 {
		sort.Strings(violations)
		return nil, apperrors.ValidationFailed(violations)
	}
	return row, nil
}

// BinaryToHex encodes byte values of binary columns as hex strings.
func BinaryToHex(c *Context, row dao.Row) (dao.Row, error) {
	if c.Metadata == nil {
		return row, nil
	}
	for col := range c.Metadata.BinaryColumns() {
		if b, ok := row[col].([]byte); ok {
			row[col] = BinaryToHexValue(b)
		}
	}
	return row, nil
}

// RedactPasswords replaces non-empty Password widget values with PasswordSentinel.
func RedactPasswords(c *Context, row dao.Row) (dao.Row, error) {
	for _, field := range c.widgets().FieldsOfKind(widget.KindPassword) {
		v, ok := row[field]
		if !ok || v == nil || v == "" {
			continue
		}
		row[field] = PasswordSentinel
	}
	return row, nil
}

// BinaryToHexValue is the outbound binary encoding.
func BinaryToHexValue(b []byte) string {
	return hex.EncodeToString(b)
}

// HexToBinaryValue is the inverse of BinaryToHexValue. An optional "0x" prefix is accepted.
func HexToBinaryValue(s string) ([]byte, error) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}
