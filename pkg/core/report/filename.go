package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9_-]+`)

// latin folds the Nordic and common Western European letters to ASCII.
var latin = strings.NewReplacer(
	"æ", "ae", "ø", "o", "å", "a",
	"ä", "a", "ö", "o", "ü", "u", "ß", "ss",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o",
	"ú", "u", "ù", "u", "û", "u",
	"ç", "c", "ñ", "n",
)

// FileName is the download name for a report: a slug of the title and the
// generation date, e.g. "johan-sverdrup-outlook-20260504.pdf".
func FileName(title string, at time.Time) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(latin.Replace(strings.ToLower(title)), "-"), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	if slug == "" {
		slug = "report"
	}
	return fmt.Sprintf("%s-%s.pdf", slug, at.Format("20060102"))
}
