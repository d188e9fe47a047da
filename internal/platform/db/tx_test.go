package db

import (
	"context"
	"errors"
	"testing"
)

func TestConnFromContext_Empty(t *testing.T) {
	if q := ConnFromContext(context.Background()); q != nil {
		t.Errorf("expected nil querier, got %T", q)
	}
}

func TestConnFromContext_NilTx(t *testing.T) {
	ctx := WithTxContext(context.Background(), nil)
	if q := ConnFromContext(ctx); q != nil {
		t.Errorf("expected nil querier for nil tx, got %T", q)
	}
}

func TestNopTx_PassesThroughError(t *testing.T) {
	want := errors.New("boom")
	called := false
	err := NopTx{}.WithTx(context.Background(), func(ctx context.Context) error {
		called = true
		return want
	})
	if !called {
		t.Error("expected fn to be called")
	}
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestTxRunner_Interface(t *testing.T) {
	var _ TxRunner = NopTx{}
	var _ TxRunner = (*TxManager)(nil)
}
