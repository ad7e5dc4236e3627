// Package pdf genera el reporte PDF de una corrida de lote con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Operación + RunID   │  Inicio / Fin                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Total | Exitosos | Fallidos                        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Ítem | Resultado | Detalle                       │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/stock-ledger/internal/application/batch"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorFail    = &props.Color{Red: 170, Green: 30, Blue: 30}
	colorOK      = &props.Color{Red: 20, Green: 120, Blue: 60}
)

var operationTitles = map[batch.Operation]string{
	batch.OperationFulfillOrders:        "Despacho de órdenes",
	batch.OperationDeleteOrders:         "Eliminación de órdenes",
	batch.OperationDeleteImportBatch:    "Eliminación de lote de importación",
	batch.OperationDeletePurchases:      "Eliminación de compras",
	batch.OperationDeletePurchaseImport: "Eliminación de importación de compras",
}

// maxDetailChars recorte del mensaje de error por fila para no partir la tabla.
const maxDetailChars = 90

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoReportGenerator implementa batch.ReportGenerator usando Maroto v2.
type MarotoReportGenerator struct{}

// NewMarotoReportGenerator construye el generador.
func NewMarotoReportGenerator() *MarotoReportGenerator { return &MarotoReportGenerator{} }

var _ batch.ReportGenerator = (*MarotoReportGenerator)(nil)

// GenerateReport genera el PDF de la corrida y devuelve sus bytes.
func (g *MarotoReportGenerator) GenerateReport(_ context.Context, p batch.Progress) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de lote "+p.RunID, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(p))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(p))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(logRows(p.Log)...)

	if !p.Done {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Corrida en curso: el reporte muestra el avance hasta ahora.", props.Text{
				Style: fontstyle.Italic, Size: 8, Color: colorGray, Top: 2,
			}),
		)))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar reporte: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(p batch.Progress) core.Row {
	title := operationTitles[p.Operation]
	if title == "" {
		title = string(p.Operation)
	}
	finished := "—"
	if p.FinishedAt != nil {
		finished = p.FinishedAt.Format(time.DateTime)
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("Corrida: "+p.RunID, props.Text{Size: 8, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("Inicio: "+p.StartedAt.Format(time.DateTime), props.Text{Size: 8, Align: align.Right, Top: 2}),
			text.New("Fin: "+finished, props.Text{Size: 8, Align: align.Right, Top: 8}),
		),
	)
}

func summaryRow(p batch.Progress) core.Row {
	cell := func(label string, value int, c *props.Color) core.Col {
		return col.New(4).Add(
			text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center, Color: colorGray, Top: 1}),
			text.New(strconv.Itoa(value), props.Text{Style: fontstyle.Bold, Size: 14, Align: align.Center, Color: c, Top: 6}),
		)
	}
	return row.New(16).Add(
		cell("TOTAL", p.Total, colorPrimary),
		cell("EXITOSOS", p.SuccessCount, colorOK),
		cell("FALLIDOS", p.FailCount, colorFail),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("Ítem", 4, align.Left),
		h("Resultado", 2, align.Center),
		h("Detalle", 5, align.Left),
	)
}

// logRows una fila por ítem, en el orden en que se procesaron.
func logRows(entries []batch.LogEntry) []core.Row {
	out := make([]core.Row, 0, len(entries))
	for i, e := range entries {
		result, c := "OK", colorOK
		if !e.Success {
			result, c = "FALLÓ", colorFail
		}
		out = append(out, row.New(7).Add(
			col.New(1).Add(text.New(strconv.Itoa(i+1), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(4).Add(text.New(e.Label, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(result, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center, Color: c, Top: 1})),
			col.New(5).Add(text.New(truncate(e.Error, maxDetailChars), props.Text{Size: 7, Color: colorGray, Top: 1, Left: 1})),
		))
	}
	return out
}

// ── helpers ───────────────────────────────────────────────────────────────────

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
