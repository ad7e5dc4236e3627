package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// OrderHandler despacho, costo previo, devoluciones y eliminación de órdenes (protegido).
type OrderHandler struct {
	svc *fulfillment.Service
}

// NewOrderHandler construye el handler.
func NewOrderHandler(svc *fulfillment.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Fulfill godoc
// @Summary      Despachar orden
// @Description  Asigna costo FIFO a cada línea, descuenta stock y deja la orden en fulfilled.
//
//	Si algún SKU no alcanza, la orden completa se rechaza con la lista de faltantes.
//
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/fulfill [post]
func (h *OrderHandler) Fulfill(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	order, err := h.svc.Fulfill(c.Context(), companyID, userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.OrderFromEntity(order))
}

// CostPreview godoc
// @Summary      Costo FIFO previo
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la orden"
// @Success      200  {object}  dto.CostPreviewResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/cost-preview [get]
func (h *OrderHandler) CostPreview(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.svc.PreviewCost(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ProcessReturn godoc
// @Summary      Devolver líneas
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID de la orden"
// @Param        body  body  dto.ProcessReturnRequest   true  "líneas y condición (sound|damaged|missing)"
// @Success      200   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/returns [post]
func (h *OrderHandler) ProcessReturn(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.ProcessReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, err)
	}
	inputs := make([]fulfillment.ReturnLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		inputs = append(inputs, fulfillment.ReturnLineInput{LineID: l.LineID, Condition: entity.ReturnCondition(l.Condition)})
	}
	order, err := h.svc.ReturnLines(c.Context(), companyID, userID, c.Params("id"), inputs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.OrderFromEntity(order))
}

// UndoReturn godoc
// @Summary      Deshacer devolución
// @Description  Revierte el efecto del movimiento según su condición y lo elimina.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del movimiento de devolución"
// @Success      200  {object}  dto.UndoReturnResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/{id}/undo-return [post]
func (h *OrderHandler) UndoReturn(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	order, err := h.svc.UndoReturn(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.UndoReturnResponse{MovementID: c.Params("id"), Order: dto.OrderFromEntity(order)})
}

// Delete godoc
// @Summary      Eliminar orden
// @Description  Si la orden no está pendiente, devuelve al stock las líneas no devueltas antes de borrar.
// @Tags         orders
// @Security     Bearer
// @Param        id   path  string  true  "ID de la orden"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	if err := h.svc.DeleteOrder(c.Context(), companyID, userID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
