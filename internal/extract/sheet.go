package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"kb-engine/internal/domain/kbmodel"
)

// extractSheet reads every sheet of a workbook. Sheets whose header row
// carries the configured name column become structured records, one per data
// row; otherwise the sheet is serialized row-wise into flat text. A sheet
// that fails to read is skipped so the rest of the workbook still lands.
func (e *Extractor) extractSheet(path string) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var records []kbmodel.StructuredRecord
	var sheetTexts []string

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			e.logger.Error("skipping unreadable sheet", "sheet", sheet, "error", err)
			continue
		}
		if len(rows) < 2 {
			continue
		}

		headers := rows[0]
		nameCol := e.nameColumnIndex(headers)

		if nameCol >= 0 {
			records = append(records, recordsFromRows(headers, rows[1:], nameCol)...)
			continue
		}
		if text := serializeSheet(sheet, headers, rows[1:]); text != "" {
			sheetTexts = append(sheetTexts, text)
		}
	}

	if len(records) > 0 {
		return Result{Records: records}, nil
	}
	return Result{Text: strings.Join(sheetTexts, "\n\n")}, nil
}

func (e *Extractor) nameColumnIndex(headers []string) int {
	if e.NameColumn == "" {
		return -1
	}
	for i, h := range headers {
		if strings.TrimSpace(h) == e.NameColumn {
			return i
		}
	}
	return -1
}

func recordsFromRows(headers []string, rows [][]string, nameCol int) []kbmodel.StructuredRecord {
	var records []kbmodel.StructuredRecord
	for _, row := range rows {
		if nameCol >= len(row) || strings.TrimSpace(row[nameCol]) == "" {
			// catalog rows without the name cell are skipped, not failed
			continue
		}

		attrs := make(map[string]string)
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" || i >= len(headers) {
				continue
			}
			header := strings.TrimSpace(headers[i])
			if header == "" {
				continue
			}
			attrs[header] = cell
		}

		records = append(records, kbmodel.StructuredRecord{
			Name:       strings.TrimSpace(row[nameCol]),
			Attributes: attrs,
		})
	}
	return records
}

func serializeSheet(sheet string, headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("=== SHEET: " + sheet + " ===")

	for _, row := range rows {
		var cells []string
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			header := ""
			if i < len(headers) {
				header = strings.TrimSpace(headers[i])
			}
			if header != "" {
				cells = append(cells, header+": "+cell)
			} else {
				cells = append(cells, cell)
			}
		}
		if len(cells) > 0 {
			b.WriteString("\n" + strings.Join(cells, " | "))
		}
	}

	if !strings.Contains(b.String(), "\n") {
		return ""
	}
	return b.String()
}
