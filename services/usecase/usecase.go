// Package usecase is the execution harness shared by every use case: optional
// single-transaction bracketing around an implementation, plus a tracing span.
package usecase

import (
	"context"
	"fmt"

	"dbadminapi/pkg/logger"
	"dbadminapi/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// InTransaction selects whether Execute brackets the implementation in a transaction.
type InTransaction int

const (
	InTransactionOff InTransaction = iota
	InTransactionOn
)

func (t InTransaction) String() string {
	if t == InTransactionOn {
		return "on"
	}
	return "off"
}

// Beginner opens metadata-store transactions. repository.BaseRepository satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (repository.Transaction, error)
}

// Implementation is the body of a use case. tx is nil when running without a transaction.
type Implementation[I, O any] func(ctx context.Context, tx *gorm.DB, input I) (O, error)

// UseCase binds an implementation to the harness. It holds no per-call state, so one
// value may serve concurrent calls.
type UseCase[I, O any] struct {
	name   string
	begin  Beginner
	impl   Implementation[I, O]
	tracer trace.Tracer
}

// New creates a use case. begin may be nil for use cases only run with InTransactionOff.
func New[I, O any](name string, begin Beginner, impl Implementation[I, O]) *UseCase[I, O] {
	return &UseCase[I, O]{
		name:   name,
		begin:  begin,
		impl:   impl,
		tracer: otel.Tracer("dbadminapi/usecase"),
	}
}

// Name returns the use case name used for spans.
func (u *UseCase[I, O]) Name() string {
	return u.name
}

// Execute runs the implementation, inside a fresh transaction when inTx is InTransactionOn.
// Nested Execute calls each open their own transaction; callers must not nest on one resource.
func (u *UseCase[I, O]) Execute(ctx context.Context, input I, inTx InTransaction) (out O, err error) {
	ctx, span := u.tracer.Start(ctx, "usecase."+u.name,
		trace.WithAttributes(attribute.String("usecase.in_transaction", inTx.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	if inTx != InTransactionOn {
		return u.impl(ctx, nil, input)
	}
	if u.begin == nil {
		var zero O
		return zero, fmt.Errorf("use case %s: transaction requested without a transaction source", u.name)
	}

	err = WithTransaction(ctx, u.begin, func(tx *gorm.DB) error {
		var implErr error
		out, implErr = u.impl(ctx, tx, input)
		return implErr
	})
	return out, err
}

// WithTransaction begins a transaction, runs fn, then commits on success or rolls back on
// error or panic, and finally releases the transaction on every path. A panic is re-raised
// after cleanup.
func WithTransaction(ctx context.Context, b Beginner, fn func(tx *gorm.DB) error) (err error) {
	t, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer t.Release()

	committed := false
	defer func() {
		if r := recover(); r != nil {
			if rbErr := t.Rollback(); rbErr != nil {
				logger.Errorf("rollback after panic failed: %v", rbErr)
			}
			panic(r)
		}
		if err != nil && !committed {
			if rbErr := t.Rollback(); rbErr != nil {
				logger.Errorf("rollback failed: %v", rbErr)
			}
		}
	}()

	if err = fn(t.DB()); err != nil {
		return err
	}
	committed = true
	if err = t.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
