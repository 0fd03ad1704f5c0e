package widget

import (
	"testing"

	"dbadminapi/models"
	"dbadminapi/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePasswordParamsSyntax(t *testing.T) {
	tests := []struct {
		name   string
		params string
	}{
		{"strict json", `{"encrypt": true, "algorithm": "sha256"}`},
		{"trailing comma", `{"encrypt": true, "algorithm": "sha256",}`},
		{"unquoted keys", `{encrypt: true, algorithm: "sha256"}`},
		{"single quotes", `{encrypt: true, algorithm: 'sha256'}`},
		{"block comment", `{/* hashed */ "encrypt": true, "algorithm": "sha256"}`},
		{"slashes inside string", `{"encrypt": true, "algorithm": "sha256", "note": "http://x/*y*/"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Parse(models.TableWidget{FieldName: "password", WidgetType: "Password", WidgetParams: tt.params})
			require.NoError(t, err)
			require.NotNil(t, w.Password)
			assert.Equal(t, PasswordParams{Encrypt: true, Algorithm: "sha256"}, *w.Password)
		})
	}
}

func TestParsePasswordRejectsWrongTypes(t *testing.T) {
	w, err := Parse(models.TableWidget{FieldName: "password", WidgetType: "Password", WidgetParams: `{"encrypt": "true", "algorithm": "sha256"}`})
	require.Error(t, err)
	assert.Nil(t, w.Password)
}

func TestParsePassword(t *testing.T) {
	w, err := Parse(models.TableWidget{
		FieldName:    "password",
		WidgetType:   "Password",
		WidgetParams: "{\n\t// provide algorithm\n\t\"encrypt\": true,\n\t\"algorithm\": \"sha256\"\n}",
	})
	require.NoError(t, err)
	require.NotNil(t, w.Password)
	assert.True(t, w.Password.Encrypt)
	assert.Equal(t, "sha256", w.Password.Algorithm)
}

func TestParseEmptyParams(t *testing.T) {
	w, err := Parse(models.TableWidget{FieldName: "password", WidgetType: "Password"})
	require.NoError(t, err)
	require.NotNil(t, w.Password)
	assert.False(t, w.Password.Encrypt)

	u, err := Parse(models.TableWidget{FieldName: "id", WidgetType: "UUID"})
	require.NoError(t, err)
	require.NotNil(t, u.UUID)
	assert.Equal(t, "v4", u.UUID.Version)
}

func TestParseForeignKey(t *testing.T) {
	w, err := Parse(models.TableWidget{
		FieldName:    "owner_id",
		WidgetType:   "Foreign_key",
		WidgetParams: `{"referenced_column_name": "id", "referenced_table_name": "users", "constraint_name": "fk_owner"}`,
	})
	require.NoError(t, err)
	require.NotNil(t, w.ForeignKey)
	assert.Equal(t, "owner_id", w.ForeignKey.ColumnName)
	assert.Equal(t, "users", w.ForeignKey.ReferencedTableName)

	_, err = Parse(models.TableWidget{FieldName: "owner_id", WidgetType: "Foreign_key", WidgetParams: `{}`})
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(models.TableWidget{FieldName: "p", WidgetType: "Password", WidgetParams: `{broken`})
	assert.Error(t, err)

	_, err = Parse(models.TableWidget{FieldName: "id", WidgetType: "UUID", WidgetParams: `{"version": "v9"}`})
	assert.Error(t, err)
}

func TestParseDisplayOnlyKind(t *testing.T) {
	w, err := Parse(models.TableWidget{FieldName: "bio", WidgetType: "Textarea", WidgetParams: `not json at all`})
	require.NoError(t, err)
	assert.Equal(t, Kind("Textarea"), w.Kind)
	assert.Nil(t, w.Password)
}

func TestParseAllKeepsKindOnBadParams(t *testing.T) {
	set := ParseAll([]models.TableWidget{
		{FieldName: "password", WidgetType: "Password", WidgetParams: `{broken`},
		{FieldName: "owner_id", WidgetType: "Foreign_key", WidgetParams: `{"referenced_column_name":"id","referenced_table_name":"users"}`},
	}, logger.WithFields(logger.Fields{"test": t.Name()}))

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"password"}, set.FieldsOfKind(KindPassword))
	w, ok := set.Get("password")
	require.True(t, ok)
	assert.Nil(t, w.Password)

	fks := set.ForeignKeys()
	require.Len(t, fks, 1)
	assert.Equal(t, "users", fks[0].ReferencedTableName)
	assert.Len(t, set.Sources(), 2)
}

func TestUUIDGenerate(t *testing.T) {
	tests := []struct {
		params  UUIDParams
		version uuid.Version
	}{
		{UUIDParams{Version: "v1"}, 1},
		{UUIDParams{Version: "v4"}, 4},
		{UUIDParams{Version: "v7"}, 7},
		{UUIDParams{Version: "v5", Namespace: "dns", Name: "example.com"}, 5},
		{UUIDParams{Version: "v3", Namespace: "6ba7b811-9dad-11d1-80b4-00c04fd430c8", Name: "x"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.params.Version, func(t *testing.T) {
			s, err := tt.params.Generate()
			require.NoError(t, err)
			id, err := uuid.Parse(s)
			require.NoError(t, err)
			assert.Equal(t, tt.version, id.Version())
		})
	}
}

func TestUUIDv5IsDeterministic(t *testing.T) {
	p := UUIDParams{Version: "v5", Namespace: "url", Name: "https://example.com"}
	a, err := p.Generate()
	require.NoError(t, err)
	b, err := p.Generate()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = UUIDParams{Version: "v5", Namespace: "dns"}.Generate()
	assert.Error(t, err)
	_, err = UUIDParams{Version: "v5", Namespace: "nope", Name: "x"}.Generate()
	assert.Error(t, err)
}

func TestDecodeBytes(t *testing.T) {
	id := uuid.New()
	s, ok := DecodeBytes(id[:])
	require.True(t, ok)
	assert.Equal(t, id.String(), s)

	_, ok = DecodeBytes([]byte{1, 2, 3})
	assert.False(t, ok)
}
