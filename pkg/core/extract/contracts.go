package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"subsea_intel/pkg/models"
)

// SourcePDF tags contracts extracted from documents.
const SourcePDF = "pdf_extraction"

// ClassifyContractType maps a free-text segment onto a contract type.
func ClassifyContractType(segment string) string {
	s := strings.ToLower(segment)
	switch {
	case strings.Contains(s, "epci"):
		return models.ContractEPCI
	case strings.Contains(s, "subsea"), strings.Contains(s, "sps"):
		return models.ContractSPS
	case strings.Contains(s, "surf"):
		return models.ContractSURF
	}
	return models.ContractOther
}

var (
	foreignCurrency = regexp.MustCompile(`(?i)\b(nok|eur|gbp|brl|aud|cad|dkk|sek|cny|rmb)\b|€|£|r\$`)
	usdCurrency     = regexp.MustCompile(`(?i)\busd\b|us\$|\$`)
	amountRe        = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:(?:-|–|to)\s*(\d[\d,]*(?:\.\d+)?))?\s*(billion|bn|b|million|mill|mn|mm|m|thousand|k)?\b`)
)

var scales = map[string]float64{
	"billion": 1e9, "bn": 1e9, "b": 1e9,
	"million": 1e6, "mill": 1e6, "mn": 1e6, "mm": 1e6, "m": 1e6,
	"thousand": 1e3, "k": 1e3,
}

// ParseUSDValue converts award text such as "USD 1.2bn" or "$250-300m" to
// dollars. Other currencies and wording without figures ("sizeable") give
// nil. For a range the upper bound is used.
func ParseUSDValue(text string) *float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	if foreignCurrency.MatchString(t) && !usdCurrency.MatchString(strings.ReplaceAll(strings.ToLower(t), "r$", "")) {
		return nil
	}
	// Start at the currency marker so dates ahead of it are not read as the amount.
	if loc := usdCurrency.FindStringIndex(t); loc != nil {
		t = t[loc[0]:]
	}
	m := amountRe.FindStringSubmatch(t)
	if m == nil {
		return nil
	}
	num := m[1]
	if m[2] != "" {
		num = m[2]
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	if err != nil {
		return nil
	}
	if scale, ok := scales[strings.ToLower(m[3])]; ok {
		v *= scale
	}
	return &v
}

// ContractExternalID hashes the identifying content of an extracted row so
// processing the same document twice updates instead of duplicating.
func ContractExternalID(row ContractRow) string {
	parts := []string{row.Date, row.Supplier, row.Operator, row.Project, row.Scope, row.Value, row.Region, row.Segment}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "pdf-" + hex.EncodeToString(sum[:16])
}

var dateLayouts = []string{"2006-01-02", "2006-01", "02.01.2006", "01/02/2006", "2 January 2006", "January 2006", "Jan 2006", "2006"}

// NormalizeDate returns YYYY-MM-DD for the date formats models commonly
// produce, or nil. Month or year precision dates use the first day.
func NormalizeDate(text string) *string {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, t); err == nil {
			d := parsed.Format("2006-01-02")
			return &d
		}
	}
	if y := yearRe.FindString(t); y != "" {
		d := y + "-01-01"
		return &d
	}
	return nil
}

// ToContract maps an extracted row to a stored contract record.
func ToContract(row ContractRow, fileName string, batchID *string) models.ContractRecord {
	desc := row.Scope
	if row.Duration != "" {
		if desc != "" {
			desc += " (" + row.Duration + ")"
		} else {
			desc = row.Duration
		}
	}
	source := SourcePDF
	if fileName != "" {
		source = SourcePDF + ":" + fileName
	}
	return models.ContractRecord{
		ExternalID:        ContractExternalID(row),
		Date:              NormalizeDate(row.Date),
		Supplier:          nonEmpty(row.Supplier),
		Operator:          nonEmpty(row.Operator),
		ProjectName:       nonEmpty(row.Project),
		Description:       nonEmpty(desc),
		ContractType:      ClassifyContractType(row.Segment),
		Region:            nonEmpty(row.Region),
		Country:           nonEmpty(row.Country),
		Source:            source,
		PipelinePhase:     nonEmpty("awarded"),
		EstimatedValueUSD: ParseUSDValue(row.Value),
		BatchID:           batchID,
	}
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
