package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestAsStorageError_MapeaConflictos(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := fmt.Errorf("get variant for update: %w", &pgconn.PgError{Code: code})
		got := asStorageError("tx", err)
		assert.ErrorIs(t, got, domain.ErrStorageTransaction, code)
		assert.True(t, domain.IsRetryable(got))
	}
}

func TestAsStorageError_OtrosErroresPasanIgual(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, asStorageError("tx", plain))

	unique := &pgconn.PgError{Code: "23505"}
	got := asStorageError("tx", unique)
	assert.False(t, domain.IsRetryable(got))
	assert.True(t, isUniqueViolation(got))

	assert.NoError(t, asStorageError("tx", nil))
}

func TestResolveIPv4_Literal(t *testing.T) {
	ip, err := resolveIPv4(t.Context(), "127.0.0.1")
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)

	_, err = resolveIPv4(t.Context(), "::1")
	assert.Error(t, err)
}
