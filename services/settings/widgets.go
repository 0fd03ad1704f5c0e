package settings

import (
	"context"
	"fmt"

	"dbadminapi/models"
	"dbadminapi/services/apperrors"
	"dbadminapi/services/usecase"
	"dbadminapi/services/widget"

	"gorm.io/gorm"
)

// WidgetsInput replaces the widget set of a table.
type WidgetsInput struct {
	Target
	Widgets []models.TableWidget
}

// WidgetInput addresses one widget.
type WidgetInput struct {
	Target
	ID uint
}

func (s *Service) FindTableWidgets(ctx context.Context, t Target) ([]models.TableWidget, error) {
	return s.findWidgets.Execute(ctx, t, usecase.InTransactionOff)
}

// CreateOrUpdateTableWidgets replaces every widget of the table with in.Widgets.
func (s *Service) CreateOrUpdateTableWidgets(ctx context.Context, in WidgetsInput) ([]models.TableWidget, error) {
	return s.replaceWidgets.Execute(ctx, in, usecase.InTransactionOn)
}

func (s *Service) DeleteTableWidget(ctx context.Context, in WidgetInput) error {
	_, err := s.deleteWidget.Execute(ctx, in, usecase.InTransactionOn)
	return err
}

func (s *Service) findWidgetsImpl(ctx context.Context, tx *gorm.DB, t Target) ([]models.TableWidget, error) {
	widgets, err := s.widgets.FindByConnectionAndTable(tx, t.ConnectionID, t.TableName)
	if err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	if widgets == nil {
		widgets = []models.TableWidget{}
	}
	return widgets, nil
}

// validateWidgets parses every widget and checks its columns, collecting all violations.
func (s *Service) validateWidgets(ctx context.Context, in WidgetsInput) error {
	cols, err := s.structure(ctx, in.Target)
	if err != nil {
		return err
	}
	var v []string
	seen := map[string]bool{}
	for i, w := range in.Widgets {
		if w.FieldName == "" {
			v = append(v, fmt.Sprintf("widget %d: field_name required", i))
			continue
		}
		if seen[w.FieldName] {
			v = append(v, fmt.Sprintf("widget %d: field %q already has a widget", i, w.FieldName))
		}
		seen[w.FieldName] = true
		v = checkColumns(v, cols, fmt.Sprintf("widget %d", i), w.FieldName)
		if w.WidgetType == "" {
			v = append(v, fmt.Sprintf("widget %d: widget_type required", i))
			continue
		}
		if _, err := widget.Parse(w); err != nil {
			v = append(v, err.Error())
		}
	}
	if len(v) > 0 {
		return apperrors.ValidationFailed(v)
	}
	return nil
}

func (s *Service) replaceWidgetsImpl(ctx context.Context, tx *gorm.DB, in WidgetsInput) ([]models.TableWidget, error) {
	if err := s.validateWidgets(ctx, in); err != nil {
		return nil, err
	}
	st, err := s.settingsFor(tx, in.Target, true)
	if err != nil {
		return nil, err
	}
	widgets := append([]models.TableWidget(nil), in.Widgets...)
	if err := s.widgets.ReplaceForSettings(tx, st.ID, widgets); err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	if widgets == nil {
		widgets = []models.TableWidget{}
	}
	return widgets, nil
}

func (s *Service) deleteWidgetImpl(ctx context.Context, tx *gorm.DB, in WidgetInput) (struct{}, error) {
	st, err := s.settingsFor(tx, in.Target, false)
	if err != nil {
		return struct{}{}, err
	}
	n, err := s.widgets.DeleteByID(tx, st.ID, in.ID)
	if err != nil {
		return struct{}{}, apperrors.OperationFailed(err)
	}
	if n == 0 {
		return struct{}{}, apperrors.NotFound(fmt.Sprintf("widget %d", in.ID))
	}
	return struct{}{}, nil
}
