// Package schema recognizes the known spreadsheet layouts and projects their
// rows onto the canonical fact records.
package schema

import (
	"regexp"
	"strings"
)

// SheetType identifies which fact table a sheet feeds.
type SheetType string

const (
	SheetXMT    SheetType = "xmt"
	SheetSURF   SheetType = "surf"
	SheetSubsea SheetType = "subsea"
	SheetAwards SheetType = "awards"
	SheetNone   SheetType = "none"
)

// discriminators are checked in order; the first type with a column
// containing one of its markers wins. Awards come first because award
// sheets also carry XMT and SURF columns.
var discriminators = []struct {
	typ     SheetType
	markers []string
}{
	{SheetAwards, []string{"xmts awarded"}},
	{SheetSURF, []string{"surf line group", "km surf lines"}},
	{SheetSubsea, []string{"subsea unit"}},
	{SheetXMT, []string{"xmt purpose", "xmts (# installed)"}},
}

var awardsSheetName = regexp.MustCompile(`(?i)awards?`)

// DetectSheetType classifies a sheet from its header names, falling back to
// the sheet name for award sheets.
func DetectSheetType(columns []string, sheetName string) SheetType {
	lower := make([]string, len(columns))
	for i, c := range columns {
		lower[i] = strings.ToLower(c)
	}
	for _, d := range discriminators {
		for _, m := range d.markers {
			for _, c := range lower {
				if strings.Contains(c, m) {
					return d.typ
				}
			}
		}
	}
	if awardsSheetName.MatchString(sheetName) {
		return SheetAwards
	}
	return SheetNone
}

// FuzzyCol returns the first column whose lowercase name contains one of the
// patterns, trying patterns in order. ok is false when nothing matches.
func FuzzyCol(columns []string, patterns ...string) (string, bool) {
	for _, p := range patterns {
		p = strings.ToLower(p)
		for _, c := range columns {
			if strings.Contains(strings.ToLower(c), p) {
				return c, true
			}
		}
	}
	return "", false
}
