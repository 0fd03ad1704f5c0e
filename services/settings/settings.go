// Package settings manages the per-table preferences of a connection: table settings,
// custom fields and column widgets. Every write is validated against the live table
// structure and runs in one metadata-store transaction.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dbadminapi/config"
	"dbadminapi/models"
	"dbadminapi/pkg/logger"
	"dbadminapi/repository"
	"dbadminapi/services/apperrors"
	"dbadminapi/services/dao"
	"dbadminapi/services/usecase"

	"gorm.io/gorm"
)

// ConnectionResolver loads and decrypts the connection whose tables are configured.
type ConnectionResolver interface {
	FindAndDecryptConnection(ctx context.Context, tx *gorm.DB, id, masterPwd string) (*models.Connection, error)
}

// Target names the table being configured and the credentials needed to inspect it.
type Target struct {
	ConnectionID   string
	TableName      string
	MasterPassword string
	UserID         string
	UserEmail      string
}

type Deps struct {
	Connections  ConnectionResolver
	Factory      dao.Factory
	Settings     repository.TableSettingsRepository
	CustomFields repository.CustomFieldRepository
	Widgets      repository.TableWidgetRepository
	Begin        usecase.Beginner
	Timeout      time.Duration
}

// Service exposes the settings use cases.
type Service struct {
	conns   ConnectionResolver
	factory dao.Factory
	repo    repository.TableSettingsRepository
	fields  repository.CustomFieldRepository
	widgets repository.TableWidgetRepository
	timeout time.Duration

	findSettings   *usecase.UseCase[Target, *models.TableSettings]
	createSettings *usecase.UseCase[SettingsInput, *models.TableSettings]
	updateSettings *usecase.UseCase[SettingsInput, *models.TableSettings]
	deleteSettings *usecase.UseCase[Target, *models.TableSettings]

	getFields   *usecase.UseCase[Target, []models.CustomField]
	createField *usecase.UseCase[CustomFieldInput, *models.CustomField]
	updateField *usecase.UseCase[CustomFieldInput, *models.CustomField]
	deleteField *usecase.UseCase[CustomFieldInput, *models.CustomField]

	findWidgets    *usecase.UseCase[Target, []models.TableWidget]
	replaceWidgets *usecase.UseCase[WidgetsInput, []models.TableWidget]
	deleteWidget   *usecase.UseCase[WidgetInput, struct{}]
}

func NewService(d Deps) *Service {
	s := &Service{
		conns:   d.Connections,
		factory: d.Factory,
		repo:    d.Settings,
		fields:  d.CustomFields,
		widgets: d.Widgets,
		timeout: d.Timeout,
	}
	if s.timeout <= 0 {
		s.timeout = config.Cfg.DAOTimeout
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}

	s.findSettings = usecase.New("find_table_settings", d.Begin, s.findSettingsImpl)
	s.createSettings = usecase.New("create_table_settings", d.Begin, s.createSettingsImpl)
	s.updateSettings = usecase.New("update_table_settings", d.Begin, s.updateSettingsImpl)
	s.deleteSettings = usecase.New("delete_table_settings", d.Begin, s.deleteSettingsImpl)

	s.getFields = usecase.New("get_custom_fields", d.Begin, s.getFieldsImpl)
	s.createField = usecase.New("create_custom_field", d.Begin, s.createFieldImpl)
	s.updateField = usecase.New("update_custom_field", d.Begin, s.updateFieldImpl)
	s.deleteField = usecase.New("delete_custom_field", d.Begin, s.deleteFieldImpl)

	s.findWidgets = usecase.New("find_table_widgets", d.Begin, s.findWidgetsImpl)
	s.replaceWidgets = usecase.New("create_or_update_table_widgets", d.Begin, s.replaceWidgetsImpl)
	s.deleteWidget = usecase.New("delete_table_widget", d.Begin, s.deleteWidgetImpl)
	return s
}

// structure reads the live columns of the target table through a fresh DAO.
func (s *Service) structure(ctx context.Context, t Target) (map[string]bool, error) {
	conn, err := s.conns.FindAndDecryptConnection(ctx, nil, t.ConnectionID, t.MasterPassword)
	if err != nil {
		return nil, err
	}
	d, err := s.factory.CreateDataAccessObject(*conn, t.UserID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			logger.Warnf("closing data access object for %s: %v", t.ConnectionID, cerr)
		}
	}()

	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cols, err := d.GetTableStructure(dctx, t.TableName, t.UserEmail)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Timeout(err)
		}
		return nil, apperrors.OperationFailed(fmt.Errorf("read structure of %q: %w", t.TableName, err))
	}
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c.ColumnName] = true
	}
	return out, nil
}

// checkColumns appends one violation per name missing from columns.
func checkColumns(violations []string, columns map[string]bool, setting string, names ...string) []string {
	for _, n := range names {
		if n == "" {
			continue
		}
		if !columns[n] {
			violations = append(violations, fmt.Sprintf("%s: column %q does not exist in table", setting, n))
		}
	}
	return violations
}

// settingsFor returns the stored settings of t, creating an empty record when create is set.
func (s *Service) settingsFor(tx *gorm.DB, t Target, create bool) (*models.TableSettings, error) {
	st, err := s.repo.FindByConnectionAndTable(tx, t.ConnectionID, t.TableName)
	if err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	if st != nil {
		return st, nil
	}
	if !create {
		return nil, apperrors.NotFound(fmt.Sprintf("settings of table %q", t.TableName))
	}
	st = &models.TableSettings{ConnectionID: t.ConnectionID, Table: t.TableName}
	if err := s.repo.Create(tx, st); err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	return st, nil
}

// SettingsInput carries the settings to store for a table.
type SettingsInput struct {
	Target
	Settings models.TableSettings
}

func (s *Service) FindTableSettings(ctx context.Context, t Target) (*models.TableSettings, error) {
	return s.findSettings.Execute(ctx, t, usecase.InTransactionOff)
}

func (s *Service) CreateTableSettings(ctx context.Context, in SettingsInput) (*models.TableSettings, error) {
	return s.createSettings.Execute(ctx, in, usecase.InTransactionOn)
}

func (s *Service) UpdateTableSettings(ctx context.Context, in SettingsInput) (*models.TableSettings, error) {
	return s.updateSettings.Execute(ctx, in, usecase.InTransactionOn)
}

func (s *Service) DeleteTableSettings(ctx context.Context, t Target) (*models.TableSettings, error) {
	return s.deleteSettings.Execute(ctx, t, usecase.InTransactionOn)
}

func (s *Service) findSettingsImpl(ctx context.Context, tx *gorm.DB, t Target) (*models.TableSettings, error) {
	st, err := s.repo.FindByConnectionAndTable(tx, t.ConnectionID, t.TableName)
	if err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	if st == nil {
		return &models.TableSettings{ConnectionID: t.ConnectionID, Table: t.TableName}, nil
	}
	return st, nil
}

func (s *Service) validateSettings(ctx context.Context, in SettingsInput) error {
	cols, err := s.structure(ctx, in.Target)
	if err != nil {
		return err
	}
	st := in.Settings
	var v []string
	v = checkColumns(v, cols, "search_fields", st.SearchFields...)
	v = checkColumns(v, cols, "excluded_fields", st.ExcludedFields...)
	v = checkColumns(v, cols, "readonly_fields", st.ReadonlyFields...)
	v = checkColumns(v, cols, "sortable_by", st.SortableBy...)
	v = checkColumns(v, cols, "list_fields", st.ListFields...)
	v = checkColumns(v, cols, "autocomplete_columns", st.AutocompleteColumns...)
	v = checkColumns(v, cols, "columns_view", st.ColumnsView...)
	v = checkColumns(v, cols, "sensitive_fields", st.SensitiveFields...)
	v = checkColumns(v, cols, "ordering_field", st.OrderingField)
	v = checkColumns(v, cols, "identity_column", st.IdentityColumn)
	if st.Ordering != "" && st.Ordering != models.OrderingAsc && st.Ordering != models.OrderingDesc {
		v = append(v, fmt.Sprintf("ordering: %q is not ASC or DESC", st.Ordering))
	}
	if st.ListPerPage < 0 {
		v = append(v, "list_per_page: must not be negative")
	}
	if len(v) > 0 {
		return apperrors.ValidationFailed(v)
	}
	return nil
}

func (s *Service) createSettingsImpl(ctx context.Context, tx *gorm.DB, in SettingsInput) (*models.TableSettings, error) {
	if err := s.validateSettings(ctx, in); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByConnectionAndTable(tx, in.ConnectionID, in.TableName)
	if err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	if existing != nil {
		return nil, apperrors.DuplicateKey(fmt.Errorf("settings of table %q already exist", in.TableName))
	}

	st := in.Settings
	st.ID = 0
	st.ConnectionID = in.ConnectionID
	st.Table = in.TableName
	if err := s.repo.Create(tx, &st); err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	logger.Infof("Created settings of table %s on connection %s", in.TableName, in.ConnectionID)
	return &st, nil
}

func (s *Service) updateSettingsImpl(ctx context.Context, tx *gorm.DB, in SettingsInput) (*models.TableSettings, error) {
	if err := s.validateSettings(ctx, in); err != nil {
		return nil, err
	}
	existing, err := s.settingsFor(tx, in.Target, false)
	if err != nil {
		return nil, err
	}

	st := in.Settings
	st.ID = existing.ID
	st.ConnectionID = in.ConnectionID
	st.Table = in.TableName
	if err := s.repo.Save(tx, &st); err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	return &st, nil
}

func (s *Service) deleteSettingsImpl(ctx context.Context, tx *gorm.DB, t Target) (*models.TableSettings, error) {
	existing, err := s.settingsFor(tx, t, false)
	if err != nil {
		return nil, err
	}
	if err := s.widgets.ReplaceForSettings(tx, existing.ID, nil); err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	fields, err := s.fields.FindBySettingsID(tx, existing.ID)
	if err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	for _, f := range fields {
		if err := s.fields.DeleteByID(tx, existing.ID, f.ID); err != nil {
			return nil, apperrors.OperationFailed(err)
		}
	}
	if err := s.repo.DeleteByID(tx, existing.ID); err != nil {
		return nil, apperrors.OperationFailed(err)
	}
	return existing, nil
}
