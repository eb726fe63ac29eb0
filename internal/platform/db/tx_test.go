package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx    *fakeTx
	err   error
	calls int
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx, got %v", tx)
	}
}

func TestWithTx_NilBeginner(t *testing.T) {
	_, _, err := WithTx(context.Background(), nil)
	if !errors.Is(err, ErrNoBeginner) {
		t.Errorf("expected ErrNoBeginner, got %v", err)
	}
}

func TestWithTx_StoresTx(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	ctx, tx, err := WithTx(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if TxFromContext(ctx) != tx {
		t.Error("expected context to carry the started tx")
	}
}

func TestInTx_Commit(t *testing.T) {
	tx := &fakeTx{}
	r := NewTxRunner(&fakeBeginner{tx: tx})

	var sawTx bool
	err := r.InTx(context.Background(), func(ctx context.Context) error {
		sawTx = TxFromContext(ctx) != nil
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawTx {
		t.Error("expected fn to run with a tx in context")
	}
	if !tx.committed || tx.rolledBack {
		t.Errorf("expected commit only, got committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestInTx_RollbackOnError(t *testing.T) {
	tx := &fakeTx{}
	r := NewTxRunner(&fakeBeginner{tx: tx})

	boom := errors.New("boom")
	err := r.InTx(context.Background(), func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Errorf("expected rollback only, got committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestInTx_RollbackOnPanic(t *testing.T) {
	tx := &fakeTx{}
	r := NewTxRunner(&fakeBeginner{tx: tx})

	defer func() {
		if recover() == nil {
			t.Error("expected panic to propagate")
		}
		if !tx.rolledBack {
			t.Error("expected rollback after panic")
		}
	}()
	_ = r.InTx(context.Background(), func(ctx context.Context) error { panic("kaboom") })
}

func TestInTx_CommitError(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("conn closed")}
	r := NewTxRunner(&fakeBeginner{tx: tx})

	if err := r.InTx(context.Background(), func(ctx context.Context) error { return nil }); err == nil {
		t.Error("expected commit error")
	}
}

func TestInTx_JoinsExisting(t *testing.T) {
	outer := &fakeTx{}
	b := &fakeBeginner{tx: &fakeTx{}}
	r := NewTxRunner(b)

	ctx := context.WithValue(context.Background(), DBTxKey, pgx.Tx(outer))
	if err := r.InTx(ctx, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.calls != 0 {
		t.Errorf("expected no new transaction, got %d Begin calls", b.calls)
	}
	if outer.committed {
		t.Error("inner InTx must not commit the outer tx")
	}
}

func TestInTx_BeginError(t *testing.T) {
	r := NewTxRunner(&fakeBeginner{err: errors.New("pool exhausted")})
	called := false
	err := r.InTx(context.Background(), func(ctx context.Context) error { called = true; return nil })
	if err == nil {
		t.Error("expected begin error")
	}
	if called {
		t.Error("fn must not run when Begin fails")
	}
}

func TestConn_PrefersTx(t *testing.T) {
	tx := &fakeTx{}
	ctx := context.WithValue(context.Background(), DBTxKey, pgx.Tx(tx))
	if Conn(ctx, nil) != Querier(tx) {
		t.Error("expected Conn to return the tx")
	}
	if Conn(context.Background(), nil) != nil {
		t.Error("expected Conn to fall back")
	}
}
