package pdf_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/batch"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
)

func TestGenerateReport_ProduceUnPDF(t *testing.T) {
	finished := time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)
	p := batch.Progress{
		RunID:        "run-1",
		Operation:    batch.OperationFulfillOrders,
		Current:      2,
		Total:        2,
		SuccessCount: 1,
		FailCount:    1,
		Log: []batch.LogEntry{
			{Label: "ORD-1", Success: true},
			{Label: "ORD-2", Success: false, Error: strings.Repeat("stock insuficiente ", 20)},
		},
		Done:       true,
		StartedAt:  finished.Add(-5 * time.Minute),
		FinishedAt: &finished,
	}

	out, err := pdf.NewMarotoReportGenerator().GenerateReport(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
