package repository

import (
	"context"
	"sync"

	"dbadminapi/config"

	"gorm.io/gorm"
)

// Transaction is a single metadata-store transaction owned by one invocation.
// Release must be called exactly once after Commit or Rollback; releasing a
// transaction that was neither committed nor rolled back rolls it back.
type Transaction interface {
	DB() *gorm.DB
	Commit() error
	Rollback() error
	Release()
}

// BaseRepository provides transaction management capabilities for database operations.
type BaseRepository interface {
	Begin(ctx context.Context) (Transaction, error)
}

type baseRepository struct {
	db *gorm.DB
}

// NewBaseRepository creates a new base repository instance with database connection.
func NewBaseRepository() BaseRepository {
	return &baseRepository{
		db: config.DB,
	}
}

// NewBaseRepositoryWithDB creates a base repository over an explicit connection.
func NewBaseRepositoryWithDB(db *gorm.DB) BaseRepository {
	return &baseRepository{db: db}
}

func (r *baseRepository) Begin(ctx context.Context) (Transaction, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormTransaction{tx: tx}, nil
}

type gormTransaction struct {
	tx       *gorm.DB
	mu       sync.Mutex
	finished bool
	released bool
}

func (t *gormTransaction) DB() *gorm.DB {
	return t.tx
}

func (t *gormTransaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
	return t.tx.Commit().Error
}

func (t *gormTransaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
	return t.tx.Rollback().Error
}

func (t *gormTransaction) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	if !t.finished {
		t.tx.Rollback()
	}
}
