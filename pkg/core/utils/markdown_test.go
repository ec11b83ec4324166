package utils

import (
	"strings"
	"testing"
)

func TestStripMarkdown(t *testing.T) {
	in := "## Summary\n\n**Equinor** leads with *12* awards and `xmt_count` data. See [the dashboard](https://example.com/d).\n\n- first point\n- second **point**\n\n1. one\n2. two\n"
	got := StripMarkdown(in)

	for _, marker := range []string{"##", "**", "`", "](", "*12*"} {
		if strings.Contains(got, marker) {
			t.Errorf("output still contains %q:\n%s", marker, got)
		}
	}
	wants := []string{
		"Summary",
		"Equinor leads with 12 awards and xmt_count data.",
		"the dashboard (https://example.com/d)",
		"• first point",
		"• second point",
		"1. one",
		"2. two",
	}
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("expected %q in output:\n%s", w, got)
		}
	}
}

func TestStripMarkdownTable(t *testing.T) {
	in := "| Year | XMTs |\n|---|---|\n| 2024 | 31 |\n"
	got := StripMarkdown(in)
	if !strings.Contains(got, "Year | XMTs") || !strings.Contains(got, "2024 | 31") {
		t.Errorf("table not flattened: %q", got)
	}
}

func TestCleanMarkdown(t *testing.T) {
	got := CleanMarkdown("```markdown\n# Title\n\nBody\n```")
	if got != "# Title\n\nBody" {
		t.Errorf("CleanMarkdown = %q", got)
	}
	if CleanMarkdown("  # Plain  ") != "# Plain" {
		t.Error("plain markdown should only be trimmed")
	}
}
