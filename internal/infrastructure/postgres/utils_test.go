package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestWrap_TraduceSQLState(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"demasiadas conexiones", "53300", domain.ErrRateLimited},
		{"límite de configuración", "53400", domain.ErrRateLimited},
		{"serialización", "40001", domain.ErrRateLimited},
		{"único", "23505", domain.ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap("op", fmt.Errorf("driver: %w", &pgconn.PgError{Code: tt.code}))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.want == domain.ErrRateLimited, domain.IsRateLimited(err))
		})
	}
}

func TestWrap_ErrorGenericoConservaCausa(t *testing.T) {
	cause := errors.New("conexión cerrada")
	err := wrap("get sku", cause)
	assert.ErrorIs(t, err, cause)
	assert.False(t, domain.IsRateLimited(err))
	assert.Nil(t, wrap("get sku", nil))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", *nullString("x"))
	assert.Equal(t, "", fromNull(nil))
}
