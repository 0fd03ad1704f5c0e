// Package repotest provides an in-memory transaction source for service tests.
package repotest

import (
	"context"
	"sync"

	"dbadminapi/repository"

	"gorm.io/gorm"
)

// Beginner hands out transactions that only record their lifecycle.
type Beginner struct {
	BeginErr  error
	CommitErr error

	mu     sync.Mutex
	events []string
}

// Begin implements usecase.Beginner.
func (b *Beginner) Begin(ctx context.Context) (repository.Transaction, error) {
	if b.BeginErr != nil {
		return nil, b.BeginErr
	}
	b.record("begin")
	return &tx{b: b}, nil
}

// Events returns the recorded lifecycle calls in order.
func (b *Beginner) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func (b *Beginner) record(e string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

type tx struct {
	b *Beginner
}

func (t *tx) DB() *gorm.DB    { return nil }
func (t *tx) Commit() error   { t.b.record("commit"); return t.b.CommitErr }
func (t *tx) Rollback() error { t.b.record("rollback"); return nil }
func (t *tx) Release()        { t.b.record("release") }
