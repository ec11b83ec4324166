package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"subsea_intel/pkg/core/schema"
)

// ReadHTMLWorkbook reads each <table> of an HTML export as a sheet, named
// by its caption, a preceding heading, or its position.
func ReadHTMLWorkbook(data []byte) ([]schema.Sheet, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html export: %w", err)
	}

	var sheets []schema.Sheet
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		var grid [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				text := strings.Join(strings.Fields(cell.Text()), " ")
				row = append(row, text)
				if span, ok := cell.Attr("colspan"); ok {
					var n int
					if _, err := fmt.Sscanf(span, "%d", &n); err == nil {
						for k := 1; k < n && k < 50; k++ {
							row = append(row, "")
						}
					}
				}
			})
			grid = append(grid, row)
		})
		if sheet, ok := gridToSheet(tableName(table, i), grid); ok {
			sheets = append(sheets, sheet)
		}
	})
	return sheets, nil
}

func tableName(table *goquery.Selection, i int) string {
	if c := strings.TrimSpace(table.Find("caption").First().Text()); c != "" {
		return c
	}
	if prev := table.PrevFiltered("h1, h2, h3, h4, p"); prev.Length() > 0 {
		if t := strings.TrimSpace(prev.Text()); t != "" && len(t) < 80 {
			return t
		}
	}
	return fmt.Sprintf("Table %d", i+1)
}
