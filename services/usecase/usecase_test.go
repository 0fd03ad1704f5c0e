package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dbadminapi/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type fakeTx struct {
	j         *journal
	commitErr error
}

func (t *fakeTx) DB() *gorm.DB    { return nil }
func (t *fakeTx) Commit() error   { t.j.add("commit"); return t.commitErr }
func (t *fakeTx) Rollback() error { t.j.add("rollback"); return nil }
func (t *fakeTx) Release()        { t.j.add("release") }

type fakeBeginner struct {
	j         *journal
	beginErr  error
	commitErr error
}

func (b *fakeBeginner) Begin(ctx context.Context) (repository.Transaction, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	b.j.add("begin")
	return &fakeTx{j: b.j, commitErr: b.commitErr}, nil
}

func TestExecuteInTransactionCommits(t *testing.T) {
	j := &journal{}
	uc := New("double", &fakeBeginner{j: j}, func(ctx context.Context, tx *gorm.DB, in int) (int, error) {
		j.add("impl")
		return in * 2, nil
	})

	out, err := uc.Execute(context.Background(), 21, InTransactionOn)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, []string{"begin", "impl", "commit", "release"}, j.list())
}

func TestExecuteInTransactionRollsBackOnError(t *testing.T) {
	j := &journal{}
	boom := errors.New("boom")
	uc := New("fail", &fakeBeginner{j: j}, func(ctx context.Context, tx *gorm.DB, in int) (int, error) {
		j.add("impl")
		return 0, boom
	})

	_, err := uc.Execute(context.Background(), 1, InTransactionOn)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"begin", "impl", "rollback", "release"}, j.list())
}

func TestExecuteInTransactionRollsBackOnPanic(t *testing.T) {
	j := &journal{}
	uc := New("panic", &fakeBeginner{j: j}, func(ctx context.Context, tx *gorm.DB, in int) (int, error) {
		j.add("impl")
		panic("kaboom")
	})

	assert.PanicsWithValue(t, "kaboom", func() {
		_, _ = uc.Execute(context.Background(), 1, InTransactionOn)
	})
	assert.Equal(t, []string{"begin", "impl", "rollback", "release"}, j.list())
}

func TestCommitFailureDoesNotRollBackAgain(t *testing.T) {
	j := &journal{}
	uc := New("commit", &fakeBeginner{j: j, commitErr: errors.New("lost connection")}, func(ctx context.Context, tx *gorm.DB, in int) (int, error) {
		return in, nil
	})

	_, err := uc.Execute(context.Background(), 1, InTransactionOn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
	assert.Equal(t, []string{"begin", "commit", "release"}, j.list())
}

func TestBeginFailureSkipsImplementation(t *testing.T) {
	j := &journal{}
	called := false
	uc := New("begin", &fakeBeginner{j: j, beginErr: errors.New("pool exhausted")}, func(ctx context.Context, tx *gorm.DB, in int) (int, error) {
		called = true
		return in, nil
	})

	_, err := uc.Execute(context.Background(), 1, InTransactionOn)
	require.Error(t, err)
	assert.False(t, called)
	assert.Empty(t, j.list())
}

func TestExecuteWithoutTransaction(t *testing.T) {
	j := &journal{}
	uc := New("plain", &fakeBeginner{j: j}, func(ctx context.Context, tx *gorm.DB, in string) (string, error) {
		assert.Nil(t, tx)
		return in + "!", nil
	})

	out, err := uc.Execute(context.Background(), "hi", InTransactionOff)
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
	assert.Empty(t, j.list())
}

func TestTransactionRequestedWithoutSource(t *testing.T) {
	uc := New("nosource", nil, func(ctx context.Context, tx *gorm.DB, in int) (int, error) { return in, nil })
	_, err := uc.Execute(context.Background(), 1, InTransactionOn)
	assert.Error(t, err)
}

func TestConcurrentCallsOwnTheirTransactions(t *testing.T) {
	var mu sync.Mutex
	begun := 0
	b := beginFunc(func(ctx context.Context) (repository.Transaction, error) {
		mu.Lock()
		begun++
		mu.Unlock()
		return &fakeTx{j: &journal{}}, nil
	})
	uc := New("concurrent", b, func(ctx context.Context, tx *gorm.DB, in int) (int, error) { return in, nil })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := uc.Execute(context.Background(), i, InTransactionOn)
			assert.NoError(t, err)
			assert.Equal(t, i, out)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, begun)
}

type beginFunc func(ctx context.Context) (repository.Transaction, error)

func (f beginFunc) Begin(ctx context.Context) (repository.Transaction, error) { return f(ctx) }
