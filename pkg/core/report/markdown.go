package report

import (
	"regexp"
	"strconv"
	"strings"

	"subsea_intel/pkg/core/utils"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockBullet
	blockNumbered
	blockQuote
	blockRule
	blockTable
	blockCode
)

// block is one rendered unit of the report body.
type block struct {
	kind   blockKind
	level  int // heading level, or list number
	text   string
	header []string
	rows   [][]string
	lines  []string // code
}

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	ruleRe     = regexp.MustCompile(`^\s*([-*_])(\s*([-*_])){2,}\s*$`)
	bulletRe   = regexp.MustCompile(`^\s*[-*+•]\s+(.*)$`)
	numberedRe = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.*)$`)
	quoteRe    = regexp.MustCompile(`^\s*>\s?(.*)$`)
	tableSepRe = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?\s*$`)

	followUpHeadingRe = regexp.MustCompile(`(?i)^#{1,6}\s*(\*\*)?\s*(follow[- ]?up|suggested (next )?questions|next questions|oppfølging|forslag til (videre )?spørsmål|videre spørsmål)`)
	followUpLineRe    = regexp.MustCompile(`(?i)^\s*([-*]\s*)?(\*\*)?(vil du|ønsker du|skal jeg|would you|do you want|shall i|should i|want me to)\b`)
)

// StripFollowUps removes a trailing follow-up questions section from report
// markdown: everything from a follow-up heading on, then any trailing lines
// that open with an offer such as "Would you like" or "Vil du".
func StripFollowUps(md string) string {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	for i, l := range lines {
		if followUpHeadingRe.MatchString(strings.TrimSpace(l)) {
			lines = lines[:i]
			break
		}
	}
	end := len(lines)
	for end > 0 {
		l := strings.TrimSpace(lines[end-1])
		if l == "" || followUpLineRe.MatchString(l) {
			end--
			continue
		}
		break
	}
	return strings.Join(lines[:end], "\n")
}

func splitRow(line string) []string {
	l := strings.TrimSpace(line)
	l = strings.TrimPrefix(l, "|")
	l = strings.TrimSuffix(l, "|")
	parts := strings.Split(l, "|")
	for i, p := range parts {
		parts[i] = inlineText(strings.TrimSpace(p))
	}
	return parts
}

// inlineText drops emphasis, code and link syntax from a single line.
func inlineText(s string) string {
	if !strings.ContainsAny(s, "*_`[]<") {
		return s
	}
	out := utils.StripMarkdown(s)
	if out == "" {
		return s
	}
	return strings.Join(strings.Fields(out), " ")
}

// parseBlocks reads markdown line by line. Pipe tables need a separator
// row under the header; otherwise the lines are plain paragraphs.
func parseBlocks(md string) []block {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	var out []block
	var para []string
	flush := func() {
		if len(para) > 0 {
			out = append(out, block{kind: blockParagraph, text: inlineText(strings.Join(para, " "))})
			para = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		raw := strings.TrimRight(lines[i], " \t")
		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "```"):
			flush()
			var code []string
			for i++; i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```"); i++ {
				code = append(code, strings.TrimRight(lines[i], " \t"))
			}
			out = append(out, block{kind: blockCode, lines: code})
		case headingRe.MatchString(trimmed):
			flush()
			m := headingRe.FindStringSubmatch(trimmed)
			level := len(m[1])
			if level > 3 {
				level = 3
			}
			out = append(out, block{kind: blockHeading, level: level, text: inlineText(m[2])})
		case ruleRe.MatchString(trimmed):
			flush()
			out = append(out, block{kind: blockRule})
		case strings.Contains(trimmed, "|") && i+1 < len(lines) && tableSepRe.MatchString(lines[i+1]) && strings.Contains(lines[i+1], "-"):
			flush()
			t := block{kind: blockTable, header: splitRow(trimmed)}
			for i += 2; i < len(lines) && strings.Contains(lines[i], "|") && strings.TrimSpace(lines[i]) != ""; i++ {
				t.rows = append(t.rows, splitRow(lines[i]))
			}
			i--
			out = append(out, t)
		case quoteRe.MatchString(raw):
			flush()
			out = append(out, block{kind: blockQuote, text: inlineText(quoteRe.FindStringSubmatch(raw)[1])})
		case bulletRe.MatchString(raw):
			flush()
			out = append(out, block{kind: blockBullet, text: inlineText(bulletRe.FindStringSubmatch(raw)[1])})
		case numberedRe.MatchString(raw):
			flush()
			m := numberedRe.FindStringSubmatch(raw)
			n, _ := strconv.Atoi(m[1])
			out = append(out, block{kind: blockNumbered, level: n, text: inlineText(m[2])})
		default:
			para = append(para, trimmed)
		}
	}
	flush()
	return out
}
