package settings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"dbadminapi/models"
	"dbadminapi/services/apperrors"
	"dbadminapi/services/usecase"

	"gorm.io/gorm"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Placeholders returns the column names referenced by a template such as
// "https://crm.example.com/users/{{id}}", in order of first appearance.
func Placeholders(template string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// RenderCustomField substitutes the template placeholders with row values.
func RenderCustomField(f models.CustomField, row map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(f.TemplateString, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		v, ok := row[name]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}

// CustomFieldInput addresses one custom field of a table. ID is ignored on create.
type CustomFieldInput struct {
	Target
	ID    uint
	Field models.CustomField
}

func (s *Service) GetCustomFields(ctx context.Context, t Target) ([]models.CustomField, error) {
	return s.getFields.Execute(ctx, t, usecase.InTransactionOff)
}

func (s *Service) CreateCustomField(ctx context.Context, in CustomFieldInput) (*models.CustomField, error) {
	return s.createField.Execute(ctx, in, usecase.InTransactionOn)
}

func (s *Service) UpdateCustomField(ctx context.Context, in CustomFieldInput) (*models.CustomField, error) {
	return s.updateField.Execute(ctx, in, usecase.InTransactionOn)
}

func (s *Service) DeleteCustomField(ctx context.Context, in CustomFieldInput) (*models.CustomField, error) {
	return s.deleteField.Execute(ctx, in, usecase.InTransactionOn)
}

func (s *Service) getFieldsImpl(ctx context.Context, tx *gorm.DB, t Target) ([]models.CustomField, error) {
	st, err := s.repo.FindByConnectionAndTable(tx, t.ConnectionID, t.TableName)
	if err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	if st == nil {
		return []models.CustomField{}, nil
	}
	fields, err := s.fields.FindBySettingsID(tx, st.ID)
	if err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	return fields, nil
}

// validateCustomField fills TemplateFields from the template when empty and checks every
// referenced column against the live structure.
func (s *Service) validateCustomField(ctx context.Context, t Target, f *models.CustomField) error {
	var v []string
	if strings.TrimSpace(f.Type) == "" {
		v = append(v, "type: required")
	}
	if strings.TrimSpace(f.Text) == "" {
		v = append(v, "text: required")
	}
	if strings.TrimSpace(f.TemplateString) == "" {
		v = append(v, "template_string: required")
	}
	placeholders := Placeholders(f.TemplateString)
	if len(f.TemplateFields) == 0 {
		f.TemplateFields = placeholders
	} else {
		declared := map[string]bool{}
		for _, name := range f.TemplateFields {
			declared[name] = true
		}
		for _, p := range placeholders {
			if !declared[p] {
				v = append(v, fmt.Sprintf("template_string: placeholder %q is not listed in template_fields", p))
			}
		}
	}
	if len(v) > 0 {
		return apperrors.ValidationFailed(v)
	}

	cols, err := s.structure(ctx, t)
	if err != nil {
		return err
	}
	if v = checkColumns(nil, cols, "template_fields", f.TemplateFields...); len(v) > 0 {
		return apperrors.ValidationFailed(v)
	}
	return nil
}

func (s *Service) createFieldImpl(ctx context.Context, tx *gorm.DB, in CustomFieldInput) (*models.CustomField, error) {
	field := in.Field
	if err := s.validateCustomField(ctx, in.Target, &field); err != nil {
		return nil, err
	}
	st, err := s.settingsFor(tx, in.Target, true)
	if err != nil {
		return nil, err
	}
	field.ID = 0
	field.SettingsID = st.ID
	if err := s.fields.Create(tx, &field); err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	return &field, nil
}

func (s *Service) findField(tx *gorm.DB, in CustomFieldInput) (*models.TableSettings, *models.CustomField, error) {
	st, err := s.settingsFor(tx, in.Target, false)
	if err != nil {
		return nil, nil, err
	}
	field, err := s.fields.FindByID(tx, st.ID, in.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NotFound(fmt.Sprintf("custom field %d", in.ID))
		}
		return nil, nil, apperrors.OperationFailed(err)
	}
	return st, field, nil
}

func (s *Service) updateFieldImpl(ctx context.Context, tx *gorm.DB, in CustomFieldInput) (*models.CustomField, error) {
	field := in.Field
	if err := s.validateCustomField(ctx, in.Target, &field); err != nil {
		return nil, err
	}
	st, existing, err := s.findField(tx, in)
	if err != nil {
		return nil, err
	}
	field.ID = existing.ID
	field.SettingsID = st.ID
	if err := s.fields.Save(tx, &field); err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	return &field, nil
}

func (s *Service) deleteFieldImpl(ctx context.Context, tx *gorm.DB, in CustomFieldInput) (*models.CustomField, error) {
	st, existing, err := s.findField(tx, in)
	if err != nil {
		return nil, err
	}
	if err := s.fields.DeleteByID(tx, st.ID, existing.ID); err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	return existing, nil
}
