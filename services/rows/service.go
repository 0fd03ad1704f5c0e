// Package rows implements the row operations of the admin panel: add, update, delete
// and read by primary key. Every operation resolves the connection, builds a fresh DAO,
// gathers table metadata, runs the value transform chain and audits the outcome once
// the DAO has been reached.
package rows

import (
	"context"
	"errors"
	"time"

	"dbadminapi/config"
	"dbadminapi/models"
	"dbadminapi/pkg/logger"
	"dbadminapi/services/analytics"
	"dbadminapi/services/apperrors"
	"dbadminapi/services/dao"
	"dbadminapi/services/metadata"
	"dbadminapi/services/transform"
	"dbadminapi/services/usecase"

	"gorm.io/gorm"
)

// ConnectionResolver loads and decrypts the connection an operation targets.
type ConnectionResolver interface {
	FindAndDecryptConnection(ctx context.Context, tx *gorm.DB, id, masterPwd string) (*models.Connection, error)
}

// LogStore persists audit records.
type LogStore interface {
	Create(tx *gorm.DB, entry *models.TableLog) error
}

// Deps are the collaborators of a Service. Tracker and Log may be nil.
type Deps struct {
	Connections ConnectionResolver
	Factory     dao.Factory
	Metadata    *metadata.Aggregator
	Logs        LogStore
	Tracker     analytics.Tracker
	Log         *logger.Entry
	// Timeout bounds every DAO call. Zero means config.Cfg.DAOTimeout.
	Timeout time.Duration
}

// Service runs row operations. It holds no per-call state.
type Service struct {
	conns    ConnectionResolver
	factory  dao.Factory
	metadata *metadata.Aggregator
	logs     LogStore
	tracker  analytics.Tracker
	log      *logger.Entry
	timeout  time.Duration

	add *usecase.UseCase[AddRowInput, *RowResponse]
	upd *usecase.UseCase[UpdateRowInput, *RowResponse]
	del *usecase.UseCase[DeleteRowInput, *RowResponse]
	get *usecase.UseCase[GetRowInput, *RowResponse]
}

// NewService wires the row use cases. Row operations touch the target database, not the
// metadata store, so they run without a metadata-store transaction.
func NewService(d Deps) *Service {
	s := &Service{
		conns:    d.Connections,
		factory:  d.Factory,
		metadata: d.Metadata,
		logs:     d.Logs,
		tracker:  d.Tracker,
		log:      d.Log,
		timeout:  d.Timeout,
	}
	if s.tracker == nil {
		s.tracker = analytics.NoopTracker{}
	}
	if s.log == nil {
		s.log = logger.WithFields(logger.Fields{"component": "rows"})
	}
	if s.timeout <= 0 {
		s.timeout = config.Cfg.DAOTimeout
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	s.add = usecase.New("add_row", nil, s.addRow)
	s.upd = usecase.New("update_row", nil, s.updateRow)
	s.del = usecase.New("delete_row", nil, s.deleteRow)
	s.get = usecase.New("get_row_by_primary_key", nil, s.getRow)
	return s
}

// Caller identifies who runs an operation on which table.
type Caller struct {
	ConnectionID   string
	TableName      string
	MasterPassword string
	UserID         string
	UserEmail      string
}

type AddRowInput struct {
	Caller
	Row dao.Row
}

type UpdateRowInput struct {
	Caller
	Row        dao.Row
	PrimaryKey dao.Row
}

type DeleteRowInput struct {
	Caller
	PrimaryKey dao.Row
}

type GetRowInput struct {
	Caller
	PrimaryKey dao.Row
}

// RowResponse is a row as returned to clients together with the table description.
// Delete fills only Row, with the deleted row.
type RowResponse struct {
	Row            dao.Row                               `json:"row"`
	Structure      []dao.ColumnStructure                 `json:"structure,omitempty"`
	ForeignKeys    []metadata.ForeignKeyWithAutocomplete `json:"foreignKeys,omitempty"`
	PrimaryColumns []dao.PrimaryColumn                   `json:"primaryColumns,omitempty"`
	ReadonlyFields []string                              `json:"readonlyFields,omitempty"`
	TableWidgets   []models.TableWidget                  `json:"tableWidgets,omitempty"`
	TableActions   []models.TableAction                  `json:"tableActions,omitempty"`
	IdentityColumn string                                `json:"identityColumn,omitempty"`
	DisplayName    string                                `json:"displayName,omitempty"`
	ListFields     []string                              `json:"listFields,omitempty"`
	ExcludedFields []string                              `json:"excludedFields,omitempty"`
}

func (s *Service) AddRow(ctx context.Context, in AddRowInput) (*RowResponse, error) {
	return s.add.Execute(ctx, in, usecase.InTransactionOff)
}

func (s *Service) UpdateRow(ctx context.Context, in UpdateRowInput) (*RowResponse, error) {
	return s.upd.Execute(ctx, in, usecase.InTransactionOff)
}

func (s *Service) DeleteRow(ctx context.Context, in DeleteRowInput) (*RowResponse, error) {
	return s.del.Execute(ctx, in, usecase.InTransactionOff)
}

func (s *Service) GetRowByPrimaryKey(ctx context.Context, in GetRowInput) (*RowResponse, error) {
	return s.get.Execute(ctx, in, usecase.InTransactionOff)
}

// operation is the per-invocation state shared by the steps of one row operation.
type operation struct {
	caller Caller
	conn   *models.Connection
	dao    dao.DataAccessObject
	md     *metadata.TableMetadata
	tc     *transform.Context
	log    *logger.Entry
}

func (s *Service) begin(op models.LogOperationType, c Caller) *logger.Entry {
	return s.log.WithFields(logger.Fields{
		"operation":     string(op),
		"connection_id": c.ConnectionID,
		"table":         c.TableName,
		"user_id":       c.UserID,
	})
}

// prepare resolves the connection, builds the DAO and gathers metadata. On success the
// caller owns op and must call op.close.
func (s *Service) prepare(ctx context.Context, c Caller, log *logger.Entry) (*operation, error) {
	conn, err := s.conns.FindAndDecryptConnection(ctx, nil, c.ConnectionID, c.MasterPassword)
	if err != nil {
		return nil, err
	}
	d, err := s.factory.CreateDataAccessObject(*conn, c.UserID)
	if err != nil {
		return nil, classifyDAOError(err)
	}

	mctx, cancel := s.daoContext(ctx)
	defer cancel()
	md, err := s.metadata.Gather(mctx, metadata.Request{
		DAO:          d,
		ConnectionID: conn.ID,
		TableName:    c.TableName,
		UserEmail:    c.UserEmail,
	}, log)
	if err != nil {
		closeDAO(d, log)
		return nil, classifyDAOError(err)
	}

	return &operation{
		caller: c,
		conn:   conn,
		dao:    d,
		md:     md,
		tc:     &transform.Context{Metadata: md, Log: log},
		log:    log,
	}, nil
}

func (op *operation) close() {
	closeDAO(op.dao, op.log)
}

func closeDAO(d dao.DataAccessObject, log *logger.Entry) {
	if err := d.Close(); err != nil {
		log.WithError(err).Warnf("closing data access object")
	}
}

func (s *Service) daoContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// primaryKey validates pk against the table's primary columns and decodes hex values of
// binary key columns.
func (op *operation) primaryKey(pk dao.Row) (dao.Row, error) {
	if err := transform.ValidatePrimaryKey(op.md, pk); err != nil {
		return nil, err
	}
	return transform.Apply(op.tc, pk, transform.HexToBinary)
}

// readRow fetches a row under the DAO timeout. A missing row is RowNotFound.
func (s *Service) readRow(ctx context.Context, op *operation, pk dao.Row) (dao.Row, error) {
	dctx, cancel := s.daoContext(ctx)
	defer cancel()
	row, err := op.dao.GetRowByPrimaryKey(dctx, op.caller.TableName, pk, op.md.Settings, op.caller.UserEmail)
	if err != nil {
		return nil, classifyDAOError(err)
	}
	if row == nil {
		return nil, apperrors.RowNotFound()
	}
	return row, nil
}

func (op *operation) outbound(row dao.Row) (dao.Row, error) {
	if row == nil {
		return nil, nil
	}
	return transform.Apply(op.tc, row, transform.Outbound()...)
}

// keyOf returns the primary key columns present in row.
func (op *operation) keyOf(row dao.Row) dao.Row {
	pk := dao.Row{}
	for _, col := range op.md.PrimaryColumnNames() {
		if v, ok := row[col]; ok {
			pk[col] = v
		}
	}
	return pk
}

// respond builds the full table response around row.
func (s *Service) respond(ctx context.Context, op *operation, row dao.Row) *RowResponse {
	ectx, cancel := s.daoContext(ctx)
	defer cancel()
	fks := s.metadata.EnrichForeignKeys(ectx, metadata.Request{
		DAO:          op.dao,
		ConnectionID: op.conn.ID,
		TableName:    op.caller.TableName,
		UserEmail:    op.caller.UserEmail,
	}, op.md.ForeignKeys, op.log)

	resp := &RowResponse{
		Row:            row,
		Structure:      op.md.Structure,
		ForeignKeys:    fks,
		PrimaryColumns: op.md.PrimaryColumns,
		TableWidgets:   op.md.Widgets.Sources(),
	}
	if st := op.md.Settings; st != nil {
		resp.ReadonlyFields = st.ReadonlyFields
		resp.TableActions = st.TableActions
		resp.IdentityColumn = st.IdentityColumn
		resp.DisplayName = st.DisplayName
		resp.ListFields = st.ListFields
		resp.ExcludedFields = st.ExcludedFields
	}
	return resp
}

// classifyDAOError maps engine and transport errors onto the error taxonomy. Errors that
// already carry a kind pass through.
func classifyDAOError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout(err)
	case errors.Is(err, dao.ErrNoRowsAffected):
		return apperrors.RowNotFound()
	case dao.IsDuplicateKeyError(err):
		return apperrors.DuplicateKey(err)
	}
	return apperrors.OperationFailed(err)
}
