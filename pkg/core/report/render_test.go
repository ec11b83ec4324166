package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestParseBlocks(t *testing.T) {
	md := strings.Join([]string{
		"# Market outlook",
		"Intro **bold** text",
		"continues here.",
		"",
		"- first [link](https://example.com)",
		"2. second",
		"> quoted",
		"---",
		"| Year | XMTs |",
		"|------|-----:|",
		"| 2025 | 310 |",
		"| 2026 | 325 |",
		"",
		"```",
		"raw | not a table",
		"```",
		"#### Deep heading",
	}, "\n")

	blocks := parseBlocks(md)
	kinds := []blockKind{blockHeading, blockParagraph, blockBullet, blockNumbered, blockQuote, blockRule, blockTable, blockCode, blockHeading}
	if len(blocks) != len(kinds) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(kinds), len(blocks), blocks)
	}
	for i, k := range kinds {
		if blocks[i].kind != k {
			t.Errorf("block %d kind = %d, want %d", i, blocks[i].kind, k)
		}
	}
	if blocks[1].text != "Intro bold text continues here." {
		t.Errorf("paragraph = %q", blocks[1].text)
	}
	if blocks[2].text != "first link (https://example.com)" {
		t.Errorf("bullet = %q", blocks[2].text)
	}
	if tb := blocks[6]; len(tb.header) != 2 || len(tb.rows) != 2 || tb.rows[1][1] != "325" {
		t.Errorf("table = %+v", tb)
	}
	if blocks[8].level != 3 {
		t.Errorf("headings below H3 render as H3, got %d", blocks[8].level)
	}
}

func TestPipeWithoutSeparatorIsParagraph(t *testing.T) {
	blocks := parseBlocks("Supplier A | Supplier B\nnext line")
	if len(blocks) != 1 || blocks[0].kind != blockParagraph {
		t.Errorf("got %+v", blocks)
	}
}

func TestStripFollowUps(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"heading", "## Summary\nText\n\n## Follow-up questions\n- What about Brazil?", "## Summary\nText"},
		{"norwegian heading", "Tekst\n### Forslag til videre spørsmål\n- Hva med 2027?", "Tekst"},
		{"trailing offer", "Body\n\nWould you like a breakdown by operator?", "Body"},
		{"norwegian offer", "Body\nVil du ha mer detaljer?\n", "Body"},
		{"untouched", "Body\nWould-be line in middle\nEnd", "Body\nWould-be line in middle\nEnd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFollowUps(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColumnWidthsFillContent(t *testing.T) {
	w := columnWidths([]string{"Year", "Project description"}, [][]string{{"2025", "Johan Sverdrup phase 3 tie-back"}}, 170)
	if w[1] <= w[0] {
		t.Errorf("longer column should be wider: %v", w)
	}
	if sum := w[0] + w[1]; sum < 169.99 || sum > 170.01 {
		t.Errorf("widths sum to %v", sum)
	}
}

func TestRenderPaginatesWithFooter(t *testing.T) {
	var md strings.Builder
	md.WriteString("## Overview\n\n")
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&md, "Paragraph %d about subsea tree awards on the Norwegian shelf and in Brazil.\n\n", i)
	}
	md.WriteString("| Year | Value |\n|---|---|\n")
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&md, "| %d | %d |\n", 2000+i, i*10)
	}

	data, pages, err := render(Document{
		Title:       "Subsea market report",
		Subtitle:    "Norway 2024-2026",
		RequestText: "Report for Johan Sverdrup 2024-2026",
		Markdown:    md.String(),
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if pages < 2 {
		t.Fatalf("expected several pages, got %d", pages)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
	for n := 1; n <= pages; n++ {
		if footer := fmt.Sprintf("Page %d of %d", n, pages); !bytes.Contains(data, []byte(footer)) {
			t.Errorf("missing footer %q", footer)
		}
	}
	if bytes.Contains(data, []byte("{nb}")) {
		t.Error("page count alias was not replaced")
	}
}

func TestRenderEmptyMarkdown(t *testing.T) {
	data, pages, err := Render(Document{Title: "Empty"})
	if err != nil || pages != 1 || len(data) == 0 {
		t.Errorf("Render = %d bytes, %d pages, %v", len(data), pages, err)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	cases := map[string]Document{
		"dated": {
			Title:       "Subsea market report",
			Markdown:    "## Overview\n\nTree awards held steady.",
			GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		"undated": {Title: "Subsea market report", Markdown: "Tree awards held steady."},
	}
	for name, doc := range cases {
		first, _, err := render(doc, false)
		if err != nil {
			t.Fatal(err)
		}
		time.Sleep(1100 * time.Millisecond)
		second, _, err := render(doc, false)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("%s: renders differ across a clock tick", name)
		}
		want := "/ModDate (D:20000101000000)"
		if !doc.GeneratedAt.IsZero() {
			want = "/ModDate (D:" + doc.GeneratedAt.Format("20060102150405") + ")"
		}
		if !bytes.Contains(first, []byte(want)) {
			t.Errorf("%s: missing %s", name, want)
		}
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"Johan Sverdrup 2024-2026":   "johan-sverdrup-2024-2026-20260504.pdf",
		"  ":                         "report-20260504.pdf",
		"Ærlig talt: Nordsjøen/SURF": "aerlig-talt-nordsjoen-surf-20260504.pdf",
		"Åsgard subsea compression":  "asgard-subsea-compression-20260504.pdf",
		"Søderberg & Müller façade":  "soderberg-muller-facade-20260504.pdf",
	}
	for title, want := range cases {
		if got := FileName(title, at); got != want {
			t.Errorf("FileName(%q) = %q, want %q", title, got, want)
		}
	}
}
