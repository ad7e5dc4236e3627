package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/jhoicas/stock-ledger/internal/application/batch"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// El WriteTimeout del servidor fija un único plazo para toda la respuesta; un flujo SSE lo
// renueva antes de cada escritura y envía un comentario de latido durante los silencios.
var (
	sseWriteWindow = 30 * time.Second
	sseHeartbeat   = 15 * time.Second
)

// BatchHandler corridas de lote: inicio, estado, eventos SSE y reporte PDF (protegido).
type BatchHandler struct {
	coord  *batch.Coordinator
	report batch.ReportGenerator
}

// NewBatchHandler construye el handler. report puede ser nil (sin PDF).
func NewBatchHandler(coord *batch.Coordinator, report batch.ReportGenerator) *BatchHandler {
	return &BatchHandler{coord: coord, report: report}
}

// Start godoc
// @Summary      Iniciar corrida de lote
// @Description  Devuelve 202 con run_id; el avance se consulta en /api/batches/{id} o /events.
//
//	delete_purchases y delete_purchase_import exigen deletion_mode (deduct|keep) antes de empezar.
//	item_ids no admite repetidos.
//
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.StartBatchRequest  true  "operation, item_ids, deletion_mode"
// @Success      202   {object}  dto.StartBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches [post]
func (h *BatchHandler) Start(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.StartBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, err)
	}
	// La corrida sobrevive a la petición: no se ata al RequestCtx de fasthttp, que se recicla.
	p, err := h.coord.Start(c.UserContext(), batch.Request{
		CompanyID:            companyID,
		UserID:               userID,
		Operation:            batch.Operation(in.Operation),
		ItemIDs:              in.ItemIDs,
		PurchaseDeletionMode: inventory.DeletionMode(in.DeletionMode),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.StartBatchResponse{RunID: p.RunID, Total: p.Total})
}

// Get godoc
// @Summary      Estado de una corrida
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "run_id"
// @Success      200  {object}  batch.Progress
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [get]
func (h *BatchHandler) Get(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	p, ok := h.coord.Registry().Get(companyID, c.Params("id"))
	if !ok {
		return runNotFound(c)
	}
	return c.JSON(p)
}

// Events godoc
// @Summary      Eventos de progreso (SSE)
// @Description  Un evento progress por ítem; el último trae done=true y cierra el stream.
// @Tags         batches
// @Security     Bearer
// @Produce      text/event-stream
// @Param        id   path  string  true  "run_id"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/events [get]
func (h *BatchHandler) Events(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	runID := c.Params("id")
	reg := h.coord.Registry()
	current, events, cancel, ok := reg.Subscribe(companyID, runID)
	if !ok {
		return runNotFound(c)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	conn := c.Context().Conn()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		s := &sseStream{w: w, conn: conn}
		if err := s.progress(current); err != nil || current.Done {
			return
		}
		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		last := current
		for {
			select {
			case p, open := <-events:
				if !open {
					// Si el evento final se descartó por suscriptor lento, la instantánea lo tiene.
					if !last.Done {
						if final, ok := reg.Get(companyID, runID); ok && final.Done {
							_ = s.progress(final)
						}
					}
					return
				}
				if err := s.progress(p); err != nil {
					return // cliente desconectado
				}
				last = p
			case <-heartbeat.C:
				if err := s.ping(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

// sseStream escribe eventos renovando el plazo de escritura de la conexión.
type sseStream struct {
	w    *bufio.Writer
	conn net.Conn
}

func (s *sseStream) extend() {
	if s.conn != nil {
		_ = s.conn.SetWriteDeadline(time.Now().Add(sseWriteWindow))
	}
}

func (s *sseStream) progress(p batch.Progress) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.extend()
	if _, err := fmt.Fprintf(s.w, "event: progress\ndata: %s\n\n", b); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *sseStream) ping() error {
	s.extend()
	if _, err := s.w.WriteString(": ping\n\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

// Report godoc
// @Summary      Reporte PDF de una corrida
// @Tags         batches
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "run_id"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/report.pdf [get]
func (h *BatchHandler) Report(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	if h.report == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_AVAILABLE", Message: "reporte PDF no configurado"})
	}
	p, ok := h.coord.Registry().Get(companyID, c.Params("id"))
	if !ok {
		return runNotFound(c)
	}
	pdf, err := h.report.GenerateReport(c.Context(), p)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="lote-%s.pdf"`, p.RunID))
	return c.Send(pdf)
}

// Forget godoc
// @Summary      Descartar una corrida terminada
// @Tags         batches
// @Security     Bearer
// @Param        id   path  string  true  "run_id"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [delete]
func (h *BatchHandler) Forget(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	if err := h.coord.Registry().Forget(companyID, c.Params("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return runNotFound(c)
		}
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func runNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "corrida no encontrada"})
}
