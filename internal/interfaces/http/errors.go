package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// errorStatus tabla sentinel → HTTP. El orden importa: un ValidationError de stock insuficiente
// también envuelve ErrInvalidInput si no trae Kind.
var errorStatus = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrChoiceRequired, fiber.StatusConflict, "CHOICE_REQUIRED"},
	{domain.ErrLedgerConflict, fiber.StatusConflict, "LEDGER_CONFLICT"},
	{domain.ErrVersionConflict, fiber.StatusConflict, "LEDGER_CONFLICT"},
	{domain.ErrBatchInProgress, fiber.StatusConflict, "BATCH_IN_PROGRESS"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrRateLimited, fiber.StatusServiceUnavailable, "RATE_LIMITED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrVerifyMismatch, fiber.StatusInternalServerError, "VERIFY_MISMATCH"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
}

// writeError traduce errores de dominio a dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	resp := dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()}
	status := fiber.StatusInternalServerError
	for _, e := range errorStatus {
		if errors.Is(err, e.target) {
			status, resp.Code = e.status, e.code
			break
		}
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Shortages = ve.Shortages
	}
	return c.Status(status).JSON(resp)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
