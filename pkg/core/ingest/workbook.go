// Package ingest runs import jobs: it reads uploaded spreadsheets and PDFs,
// maps them onto the fact tables, derives project and contract roll-ups and
// tracks each run as an import batch.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"subsea_intel/pkg/core/schema"
)

// ErrLegacyXLS is returned for binary BIFF .xls files, which cannot be read.
var ErrLegacyXLS = errors.New("binary .xls workbooks are not supported, save the file as .xlsx")

// ReadWorkbook returns every sheet of an uploaded workbook. HTML table
// exports (often named .xls) are detected by content.
func ReadWorkbook(data []byte, fileName string) ([]schema.Sheet, error) {
	if looksLikeHTML(data) {
		return ReadHTMLWorkbook(data)
	}
	if strings.EqualFold(filepath.Ext(fileName), ".xls") && !bytes.HasPrefix(data, []byte("PK")) {
		return nil, ErrLegacyXLS
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", fileName, err)
	}
	defer f.Close()

	var sheets []schema.Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return sheets, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if sheet, ok := gridToSheet(name, rows); ok {
			sheets = append(sheets, sheet)
		}
	}
	return sheets, nil
}

func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > 2048 {
		head = head[:2048]
	}
	lower := bytes.ToLower(bytes.TrimSpace(head))
	return bytes.HasPrefix(lower, []byte("<!doctype html")) ||
		bytes.Contains(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<table"))
}

// gridToSheet turns a cell grid into a Sheet. The header is the first row
// with at least two non-empty cells; title rows above it are ignored.
// Repeated header names get a " (n)" suffix.
func gridToSheet(name string, grid [][]string) (schema.Sheet, bool) {
	headerIdx := -1
	for i, row := range grid {
		filled := 0
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				filled++
			}
		}
		if filled >= 2 {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return schema.Sheet{}, false
	}

	seen := map[string]int{}
	header := make([]string, len(grid[headerIdx]))
	var columns []string
	for i, c := range grid[headerIdx] {
		c = strings.Join(strings.Fields(c), " ")
		if c == "" {
			continue
		}
		seen[c]++
		if seen[c] > 1 {
			c = fmt.Sprintf("%s (%d)", c, seen[c])
		}
		header[i] = c
		columns = append(columns, c)
	}

	sheet := schema.Sheet{Name: name, Columns: columns}
	for _, row := range grid[headerIdx+1:] {
		rec := map[string]interface{}{}
		empty := true
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				empty = false
				rec[header[i]] = cell
			}
		}
		if !empty {
			sheet.Rows = append(sheet.Rows, rec)
		}
	}
	return sheet, true
}
