// Package spreadsheet extrae filas de compras desde archivos xlsx o csv subidos por el usuario.
// Solo convierte celdas en dto.PurchaseImportRow; la validación de cada fila ocurre en la
// importación, que reporta las filas rechazadas sin abortar el resto.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// ErrUnsupportedFormat extensión distinta de .xlsx y .csv.
var ErrUnsupportedFormat = errors.New("formato no soportado: use .xlsx o .csv")

// Columnas reconocidas (en minúsculas, sin acentos) para cada campo.
var headerAliases = map[string][]string{
	"sku_code":      {"sku_code", "sku", "codigo", "code"},
	"purchase_date": {"purchase_date", "fecha", "fecha_compra", "date"},
	"cost_per_unit": {"cost_per_unit", "costo_unitario", "costo", "unit_cost", "cost"},
	"quantity":      {"quantity", "cantidad", "qty"},
}

// ReadPurchases elige el lector por extensión del nombre de archivo.
func ReadPurchases(filename string, r io.Reader) ([]dto.PurchaseImportRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ReadPurchasesXLSX(r)
	case ".csv":
		return ReadPurchasesCSV(r)
	}
	return nil, fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
}

// ReadPurchasesXLSX lee la primera hoja del libro.
func ReadPurchasesXLSX(r io.Reader) ([]dto.PurchaseImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.NewValidationError("no se pudo abrir el archivo xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewValidationError("el libro no tiene hojas")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, domain.NewValidationError("no se pudo leer la hoja %s: %v", sheets[0], err)
	}
	return mapRows(rows)
}

// ReadPurchasesCSV acepta UTF-8 (con o sin BOM) o Windows-1252, separado por coma o punto y coma.
func ReadPurchasesCSV(r io.Reader) ([]dto.PurchaseImportRow, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("leer csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var src io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		src = transform.NewReader(src, charmap.Windows1252.NewDecoder())
	}
	cr := csv.NewReader(src)
	cr.Comma = detectDelimiter(raw)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, domain.NewValidationError("csv inválido: %v", err)
	}
	return mapRows(records)
}

func detectDelimiter(raw []byte) rune {
	firstLine := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		firstLine = raw[:i]
	}
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}

// mapRows usa la primera fila como encabezado. Line es el número de fila de la planilla (1-based).
func mapRows(rows [][]string) ([]dto.PurchaseImportRow, error) {
	if len(rows) == 0 {
		return nil, domain.NewValidationError("el archivo está vacío")
	}
	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}
	cell := func(row []string, field string) string {
		i := index[field]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]dto.PurchaseImportRow, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, dto.PurchaseImportRow{
			Line:         n + 2,
			SKUCode:      cell(row, "sku_code"),
			PurchaseDate: cell(row, "purchase_date"),
			CostPerUnit:  strings.ReplaceAll(cell(row, "cost_per_unit"), ",", "."),
			Quantity:     cell(row, "quantity"),
		})
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(headerAliases))
	for i, h := range header {
		key := normalizeHeader(h)
		for field, aliases := range headerAliases {
			if _, done := index[field]; done {
				continue
			}
			for _, a := range aliases {
				if key == a {
					index[field] = i
					break
				}
			}
		}
	}
	var missing []string
	for _, field := range []string{"sku_code", "purchase_date", "cost_per_unit", "quantity"} {
		if _, ok := index[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewValidationError("faltan columnas: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

var accentReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = accentReplacer.Replace(h)
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
