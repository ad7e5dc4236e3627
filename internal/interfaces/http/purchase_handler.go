package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/spreadsheet"
)

// maxImportBytes tope del archivo de importación.
const maxImportBytes = 10 << 20

// PurchaseHandler registro, importación y eliminación de compras (protegido).
type PurchaseHandler struct {
	uc *inventory.PurchaseUseCase
}

// NewPurchaseHandler construye el handler.
func NewPurchaseHandler(uc *inventory.PurchaseUseCase) *PurchaseHandler {
	return &PurchaseHandler{uc: uc}
}

// Record godoc
// @Summary      Registrar compra
// @Tags         purchases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RecordPurchaseRequest  true  "sku_id, purchase_date, cost_per_unit, quantity"
// @Success      201   {object}  dto.PurchaseLotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/purchases [post]
func (h *PurchaseHandler) Record(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.RecordPurchaseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lot, err := h.uc.RecordPurchase(c.Context(), companyID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.LotFromEntity(lot))
}

// Import godoc
// @Summary      Importar compras desde xlsx o csv
// @Description  Columnas: sku_code, purchase_date (YYYY-MM-DD), cost_per_unit, quantity.
//
//	Las filas inválidas se devuelven en rejected; las válidas se registran.
//
// @Tags         purchases
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "archivo .xlsx o .csv"
// @Success      200   {object}  dto.ImportPurchasesResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/purchases/import [post]
func (h *PurchaseHandler) Import(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_FILE", Message: "campo file requerido"})
	}
	if fh.Size > maxImportBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{Code: "FILE_TOO_LARGE", Message: "el archivo supera 10 MB"})
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer f.Close()

	rows, err := spreadsheet.ReadPurchases(fh.Filename, f)
	if err != nil {
		if errors.Is(err, spreadsheet.ErrUnsupportedFormat) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(dto.ErrorResponse{Code: "UNSUPPORTED_FORMAT", Message: err.Error()})
		}
		return writeError(c, err)
	}
	out, err := h.uc.ImportPurchases(c.Context(), companyID, userID, rows)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar compra
// @Description  Sin mode responde 409 con el efecto de cada opción; nada se modifica hasta elegir.
//
//	deduct descuenta lo que queda del lote (puede dejar stock negativo); keep solo borra el registro.
//
// @Tags         purchases
// @Security     Bearer
// @Produce      json
// @Param        id    path   string  true   "ID del lote"
// @Param        mode  query  string  false  "deduct | keep"
// @Success      204
// @Failure      409   {object}  dto.LotDeletionPreviewResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/purchases/{id} [delete]
func (h *PurchaseHandler) Delete(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	mode, err := inventory.ParseDeletionMode(c.Query("mode"))
	if err != nil {
		return writeError(c, err)
	}
	plan, err := h.uc.DeletePurchase(c.Context(), companyID, userID, c.Params("id"), mode)
	if errors.Is(err, domain.ErrChoiceRequired) && plan != nil {
		return c.Status(fiber.StatusConflict).JSON(dto.LotDeletionPreviewResponse{
			Code:             "CHOICE_REQUIRED",
			Message:          err.Error(),
			LotID:            plan.Lot.ID,
			CurrentAvailable: plan.CurrentAvailable,
			DeductQuantity:   plan.DeductQuantity,
			Options:          []string{string(inventory.DeletionModeDeduct), string(inventory.DeletionModeKeep)},
			Warning:          plan.Warning,
		})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
