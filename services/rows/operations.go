package rows

import (
	"context"

	"dbadminapi/models"
	"dbadminapi/services/apperrors"
	"dbadminapi/services/dao"
	"dbadminapi/services/transform"

	"gorm.io/gorm"
)

func (s *Service) addRow(ctx context.Context, _ *gorm.DB, in AddRowInput) (*RowResponse, error) {
	log := s.begin(models.LogOperationAddRow, in.Caller)
	op, err := s.prepare(ctx, in.Caller, log)
	if err != nil {
		return nil, err
	}
	defer op.close()

	if !op.md.Settings.AllowsAdd() {
		return nil, apperrors.Forbidden("adding rows to this table is disabled")
	}
	row, err := transform.Apply(op.tc, in.Row, transform.Inbound(true)...)
	if err != nil {
		return nil, err
	}

	dctx, cancel := s.daoContext(ctx)
	pk, err := op.dao.AddRowInTable(dctx, in.TableName, row, in.UserEmail)
	cancel()
	err = classifyDAOError(err)
	s.audit(ctx, op, models.LogOperationAddRow, in.Row, nil, err)
	if err != nil {
		log.WithError(err).Warnf("add row failed")
		return nil, err
	}

	if len(pk) == 0 {
		pk = op.keyOf(row)
	}
	added, err := s.readRow(ctx, op, pk)
	if err != nil && apperrors.KindOf(err) != apperrors.KindRowNotFound {
		// The insert is committed; a failed read back must not report it as lost.
		log.WithError(err).Warnf("read back of added row failed")
	}
	if added == nil {
		// Engines that cannot report generated keys leave nothing to read back by.
		added = row.Clone()
		for k, v := range pk {
			added[k] = v
		}
	}
	out, err := op.outbound(added)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, op, out), nil
}

func (s *Service) updateRow(ctx context.Context, _ *gorm.DB, in UpdateRowInput) (*RowResponse, error) {
	log := s.begin(models.LogOperationUpdateRow, in.Caller)
	op, err := s.prepare(ctx, in.Caller, log)
	if err != nil {
		return nil, err
	}
	defer op.close()

	if !op.md.Settings.AllowsUpdate() {
		return nil, apperrors.Forbidden("editing rows of this table is disabled")
	}
	pk, err := op.primaryKey(in.PrimaryKey)
	if err != nil {
		return nil, err
	}
	row, err := transform.Apply(op.tc, in.Row, transform.Inbound(false)...)
	if err != nil {
		return nil, err
	}

	old, err := s.readRow(ctx, op, pk)
	if err != nil {
		s.audit(ctx, op, models.LogOperationUpdateRow, in.Row, nil, err)
		return nil, err
	}

	newPK := pk
	if len(row) > 0 {
		dctx, cancel := s.daoContext(ctx)
		var updated dao.Row
		updated, err = op.dao.UpdateRowInTable(dctx, in.TableName, row, pk, in.UserEmail)
		cancel()
		err = classifyDAOError(err)
		if len(updated) > 0 {
			newPK = updated
		}
	} else {
		log.Debugf("nothing to write after transforms, skipping update")
	}
	s.audit(ctx, op, models.LogOperationUpdateRow, in.Row, old, err)
	if err != nil {
		log.WithError(err).Warnf("update row failed")
		return nil, err
	}

	current, err := s.readRow(ctx, op, newPK)
	if err != nil {
		return nil, err
	}
	out, err := op.outbound(current)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, op, out), nil
}

func (s *Service) deleteRow(ctx context.Context, _ *gorm.DB, in DeleteRowInput) (*RowResponse, error) {
	log := s.begin(models.LogOperationDeleteRow, in.Caller)
	op, err := s.prepare(ctx, in.Caller, log)
	if err != nil {
		return nil, err
	}
	defer op.close()

	if !op.md.Settings.AllowsDelete() {
		return nil, apperrors.Forbidden("deleting rows of this table is disabled")
	}
	pk, err := op.primaryKey(in.PrimaryKey)
	if err != nil {
		return nil, err
	}

	old, err := s.readRow(ctx, op, pk)
	if err != nil {
		s.audit(ctx, op, models.LogOperationDeleteRow, in.PrimaryKey, nil, err)
		return nil, err
	}

	dctx, cancel := s.daoContext(ctx)
	_, err = op.dao.DeleteRowInTable(dctx, in.TableName, pk, in.UserEmail)
	cancel()
	err = classifyDAOError(err)
	s.audit(ctx, op, models.LogOperationDeleteRow, in.PrimaryKey, old, err)
	if err != nil {
		log.WithError(err).Warnf("delete row failed")
		return nil, err
	}

	out, err := op.outbound(old)
	if err != nil {
		return nil, err
	}
	return &RowResponse{Row: out}, nil
}

func (s *Service) getRow(ctx context.Context, _ *gorm.DB, in GetRowInput) (*RowResponse, error) {
	log := s.begin(models.LogOperationRowReceived, in.Caller)
	op, err := s.prepare(ctx, in.Caller, log)
	if err != nil {
		return nil, err
	}
	defer op.close()

	pk, err := op.primaryKey(in.PrimaryKey)
	if err != nil {
		return nil, err
	}

	row, err := s.readRow(ctx, op, pk)
	s.audit(ctx, op, models.LogOperationRowReceived, in.PrimaryKey, nil, err)
	if err != nil {
		return nil, err
	}
	out, err := op.outbound(row)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, op, out), nil
}
