// Package report renders report markdown as a paginated A4 PDF. Output
// depends only on the input document.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Document is the input to Render.
type Document struct {
	Title       string
	Subtitle    string
	RequestText string
	Markdown    string
	GeneratedAt time.Time
}

type rgb struct{ r, g, b int }

var (
	colorNavy   = rgb{12, 45, 72}
	colorTeal   = rgb{0, 133, 150}
	colorText   = rgb{33, 37, 41}
	colorMuted  = rgb{108, 117, 125}
	colorPage   = rgb{250, 251, 252}
	colorStripe = rgb{236, 242, 246}
	colorCode   = rgb{241, 243, 245}
	colorWhite  = rgb{255, 255, 255}
)

const (
	marginLeft   = 18.0
	marginRight  = 18.0
	marginTop    = 24.0
	marginBottom = 22.0
	bodySize     = 10.0
	lineHeight   = 5.2
	font         = "Helvetica"
)

// fixedStamp dates documents rendered without a generation time.
var fixedStamp = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Render produces the PDF bytes and the page count. Every page carries the
// background, the accent bars and a "Page N of M" footer.
func Render(doc Document) ([]byte, int, error) {
	return render(doc, true)
}

type renderer struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	pageW    float64
	pageH    float64
	contentW float64
	y        float64
}

func render(doc Document, compress bool) ([]byte, int, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetCatalogSort(true)
	stamp := doc.GeneratedAt
	if stamp.IsZero() {
		stamp = fixedStamp
	}
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.AliasNbPages("{nb}")

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	r.pageW, r.pageH = pdf.GetPageSize()
	r.contentW = r.pageW - marginLeft - marginRight

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = "Report"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("subsea_intel", true)

	pdf.SetHeaderFunc(r.background)
	pdf.SetFooterFunc(func() {
		pdf.SetY(r.pageH - 12)
		pdf.SetFont(font, "", 8)
		r.color(colorMuted)
		pdf.SetX(marginLeft)
		pdf.CellFormat(r.contentW/2, 5, r.tr(truncate(title, 70)), "", 0, "L", false, 0, "")
		pdf.CellFormat(r.contentW/2, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	r.newPage()
	r.cover(title, doc)
	for _, b := range parseBlocks(StripFollowUps(doc.Markdown)) {
		r.block(b)
	}

	pages := pdf.PageCount()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, 0, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), pages, nil
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}

func (r *renderer) color(c rgb) { r.pdf.SetTextColor(c.r, c.g, c.b) }
func (r *renderer) fill(c rgb)  { r.pdf.SetFillColor(c.r, c.g, c.b) }

// background runs on every new page.
func (r *renderer) background() {
	p := r.pdf
	r.fill(colorPage)
	p.Rect(0, 0, r.pageW, r.pageH, "F")
	r.fill(colorNavy)
	p.Rect(0, 0, r.pageW, 8, "F")
	r.fill(colorTeal)
	p.Rect(0, 8, r.pageW, 1.2, "F")
	p.Rect(0, 9.2, 3, r.pageH-9.2, "F")
}

func (r *renderer) newPage() {
	r.pdf.AddPage()
	r.y = marginTop
}

// ensure starts a new page unless h millimetres fit above the footer.
func (r *renderer) ensure(h float64) {
	if r.y+h > r.pageH-marginBottom {
		r.newPage()
	}
}

func (r *renderer) lines(text, style string, size, lineH, indent float64, c rgb) {
	if strings.TrimSpace(text) == "" {
		return
	}
	p := r.pdf
	p.SetFont(font, style, size)
	r.color(c)
	w := r.contentW - indent
	for _, l := range p.SplitText(r.tr(text), w) {
		r.ensure(lineH)
		p.SetXY(marginLeft+indent, r.y)
		p.CellFormat(w, lineH, l, "", 0, "L", false, 0, "")
		r.y += lineH
	}
}

func (r *renderer) cover(title string, doc Document) {
	r.lines(title, "B", 20, 9, 0, colorNavy)
	r.y += 1
	r.lines(doc.Subtitle, "", 11, 6, 0, colorTeal)
	if !doc.GeneratedAt.IsZero() {
		r.lines("Generated "+doc.GeneratedAt.UTC().Format("2 January 2006 15:04 UTC"), "", 8.5, 4.5, 0, colorMuted)
	}
	if req := strings.TrimSpace(doc.RequestText); req != "" {
		r.y += 3
		start, page := r.y, r.pdf.PageNo()
		r.lines("Request: "+req, "I", 9, 4.8, 4, colorMuted)
		if r.pdf.PageNo() == page {
			r.fill(colorTeal)
			r.pdf.Rect(marginLeft, start, 1, r.y-start, "F")
		}
	}
	r.y += 4
	r.pdf.SetDrawColor(colorTeal.r, colorTeal.g, colorTeal.b)
	r.pdf.SetLineWidth(0.4)
	r.pdf.Line(marginLeft, r.y, marginLeft+r.contentW, r.y)
	r.y += 6
}

func (r *renderer) block(b block) {
	switch b.kind {
	case blockHeading:
		size, lineH, c := 11.5, 6.0, colorTeal
		switch b.level {
		case 1:
			size, lineH, c = 16, 8, colorNavy
		case 2:
			size, lineH, c = 13, 7, colorNavy
		}
		r.y += 3
		// keep the heading with at least two lines of what follows
		r.ensure(lineH + 2*lineHeight)
		r.lines(b.text, "B", size, lineH, 0, c)
		if b.level <= 2 {
			r.pdf.SetDrawColor(colorStripe.r, colorStripe.g, colorStripe.b)
			r.pdf.SetLineWidth(0.3)
			r.pdf.Line(marginLeft, r.y+0.5, marginLeft+r.contentW, r.y+0.5)
		}
		r.y += 2
	case blockParagraph:
		r.lines(b.text, "", bodySize, lineHeight, 0, colorText)
		r.y += 2
	case blockBullet, blockNumbered:
		marker := "•"
		if b.kind == blockNumbered {
			marker = fmt.Sprintf("%d.", b.level)
		}
		r.ensure(lineHeight)
		r.pdf.SetFont(font, "B", bodySize)
		r.color(colorTeal)
		r.pdf.SetXY(marginLeft+1, r.y)
		r.pdf.CellFormat(6, lineHeight, r.tr(marker), "", 0, "L", false, 0, "")
		r.lines(b.text, "", bodySize, lineHeight, 7, colorText)
		r.y += 0.8
	case blockQuote:
		start, page := r.y, r.pdf.PageNo()
		r.lines(b.text, "I", bodySize, lineHeight, 5, colorMuted)
		if r.pdf.PageNo() == page {
			r.fill(colorTeal)
			r.pdf.Rect(marginLeft+1, start, 1, r.y-start, "F")
		}
		r.y += 2
	case blockRule:
		r.ensure(6)
		r.y += 2
		r.pdf.SetDrawColor(colorMuted.r, colorMuted.g, colorMuted.b)
		r.pdf.SetLineWidth(0.2)
		r.pdf.Line(marginLeft, r.y, marginLeft+r.contentW, r.y)
		r.y += 4
	case blockCode:
		r.code(b.lines)
	case blockTable:
		r.table(b.header, b.rows)
	}
}

func (r *renderer) code(lines []string) {
	p := r.pdf
	const h = 4.4
	p.SetFont("Courier", "", 8.5)
	for _, l := range lines {
		for _, part := range p.SplitText(r.tr(strings.ReplaceAll(l, "\t", "    ")), r.contentW-4) {
			r.ensure(h)
			r.fill(colorCode)
			p.Rect(marginLeft, r.y, r.contentW, h, "F")
			r.color(colorText)
			p.SetFont("Courier", "", 8.5)
			p.SetXY(marginLeft+2, r.y)
			p.CellFormat(r.contentW-4, h, part, "", 0, "L", false, 0, "")
			r.y += h
		}
	}
	r.y += 3
}

// columnWidths splits the content width in proportion to the longest cell
// of each column, with a floor so short columns stay legible.
func columnWidths(header []string, rows [][]string, total float64) []float64 {
	n := len(header)
	weights := make([]float64, n)
	for i, h := range header {
		weights[i] = float64(len([]rune(h)))
	}
	for _, row := range rows {
		for i := 0; i < n && i < len(row); i++ {
			if l := float64(len([]rune(row[i]))); l > weights[i] {
				weights[i] = l
			}
		}
	}
	sum := 0.0
	for i := range weights {
		if weights[i] < 4 {
			weights[i] = 4
		}
		sum += weights[i]
	}
	widths := make([]float64, n)
	minW := total / float64(n) * 0.4
	used := 0.0
	for i := range weights {
		widths[i] = total * weights[i] / sum
		if widths[i] < minW {
			widths[i] = minW
		}
		used += widths[i]
	}
	for i := range widths {
		widths[i] *= total / used
	}
	return widths
}

func (r *renderer) table(header []string, rows [][]string) {
	if len(header) == 0 {
		return
	}
	widths := columnWidths(header, rows, r.contentW)
	const lineH = 4.6

	r.y += 1
	r.ensure(2 * (lineH + 2))
	r.tableRow(header, widths, lineH, true, false)
	for i, row := range rows {
		if len(row) < len(header) {
			row = append(row, make([]string, len(header)-len(row))...)
		}
		h := r.rowHeight(row[:len(header)], widths, lineH, false)
		if r.y+h > r.pageH-marginBottom {
			r.newPage()
			r.tableRow(header, widths, lineH, true, false)
		}
		r.tableRow(row[:len(header)], widths, lineH, false, i%2 == 1)
	}
	r.y += 4
}

func (r *renderer) rowHeight(cells []string, widths []float64, lineH float64, head bool) float64 {
	style := ""
	if head {
		style = "B"
	}
	r.pdf.SetFont(font, style, 8.5)
	most := 1
	for i, c := range cells {
		if n := len(r.pdf.SplitText(r.tr(c), widths[i]-2)); n > most {
			most = n
		}
	}
	return float64(most)*lineH + 2
}

func (r *renderer) tableRow(cells []string, widths []float64, lineH float64, head, striped bool) {
	p := r.pdf
	h := r.rowHeight(cells, widths, lineH, head)
	bg, fg, style := colorWhite, colorText, ""
	switch {
	case head:
		bg, fg, style = colorNavy, colorWhite, "B"
	case striped:
		bg = colorStripe
	}
	x := marginLeft
	for i, c := range cells {
		r.fill(bg)
		p.Rect(x, r.y, widths[i], h, "F")
		p.SetFont(font, style, 8.5)
		r.color(fg)
		p.SetXY(x+1, r.y+1)
		p.MultiCell(widths[i]-2, lineH, r.tr(c), "", "L", false)
		x += widths[i]
	}
	r.y += h
}
