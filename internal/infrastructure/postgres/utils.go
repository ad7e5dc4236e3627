package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// SQLSTATE relevantes para el motor de stock.
const (
	codeUniqueViolation      = "23505"
	codeTooManyConnections   = "53300"
	codeConfigLimitExceeded  = "53400"
	codeSerializationFailure = "40001"
	codeLockNotAvailable     = "55P03"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// isRateLimited errores de saturación del servidor: se tratan como límite de peticiones.
func isRateLimited(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeTooManyConnections, codeConfigLimitExceeded, codeSerializationFailure, codeLockNotAvailable:
		return true
	}
	return false
}

// wrap traduce errores del driver a errores de dominio conservando el original en el mensaje.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isRateLimited(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrRateLimited, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// nullString NULL para cadenas vacías (FKs y columnas opcionales).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNull(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
