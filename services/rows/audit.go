package rows

import (
	"context"
	"encoding/json"
	"time"

	"dbadminapi/models"
	"dbadminapi/services/analytics"
	"dbadminapi/services/dao"
	"dbadminapi/services/transform"

	"gorm.io/datatypes"
)

// audit writes the log record and analytics event of an operation that reached the DAO.
// Failures are logged and never replace opErr.
func (s *Service) audit(ctx context.Context, op *operation, kind models.LogOperationType, received, old dao.Row, opErr error) {
	status := models.OperationResultSuccessfully
	if opErr != nil {
		status = models.OperationResultUnsuccessfully
	}

	entry := &models.TableLog{
		ConnectionID:          op.conn.ID,
		Table:                 op.caller.TableName,
		UserID:                op.caller.UserID,
		Email:                 op.caller.UserEmail,
		OperationType:         kind,
		OperationStatusResult: status,
		ReceivedData:          s.snapshot(op, received),
		OldData:               s.snapshot(op, old),
		CreatedAt:             time.Now().UTC(),
	}
	if s.logs != nil {
		if err := s.logs.Create(nil, entry); err != nil {
			op.log.WithError(err).Errorf("writing %s audit record", kind)
		}
	}

	event := analytics.Event{
		Name:         analytics.EventName(kind, op.conn.IsTestConnection),
		UserID:       op.caller.UserID,
		ConnectionID: op.conn.ID,
		TableName:    op.caller.TableName,
		Status:       status,
		At:           entry.CreatedAt,
	}
	if err := s.tracker.Track(context.WithoutCancel(ctx), event); err != nil {
		op.log.WithError(err).Warnf("tracking %s", event.Name)
	}
}

// snapshot renders row for the audit record with passwords redacted and binary values hex encoded.
func (s *Service) snapshot(op *operation, row dao.Row) datatypes.JSON {
	if row == nil {
		return nil
	}
	safe, err := transform.Apply(op.tc, row, transform.Outbound()...)
	if err != nil {
		op.log.WithError(err).Warnf("redacting audit payload")
		return nil
	}
	b, err := json.Marshal(safe)
	if err != nil {
		op.log.WithError(err).Warnf("encoding audit payload")
		return nil
	}
	return datatypes.JSON(b)
}
