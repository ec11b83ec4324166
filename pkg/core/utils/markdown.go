package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// CleanMarkdown strips conversational filler and outer markdown code blocks.
// It ensures the output is pure Markdown ready for rendering.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)

	if strings.HasPrefix(cleaned, "```markdown") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```markdown")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	} else if strings.HasPrefix(cleaned, "```md") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```md")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	return cleaned
}

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)).Parser()

var blankRuns = regexp.MustCompile(`\n{3,}`)

// StripMarkdown renders Markdown as plain chat text: headings, emphasis and
// code markers disappear, links become "label (url)", list items keep a
// bullet or number, table cells are joined with " | ".
func StripMarkdown(input string) string {
	src := []byte(input)
	doc := markdownParser.Parse(text.NewReader(src))
	p := &plainWriter{src: src}
	var sb strings.Builder
	p.blocks(&sb, doc)
	out := blankRuns.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(out)
}

type plainWriter struct {
	src []byte
}

func (p *plainWriter) blocks(sb *strings.Builder, n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		p.block(sb, c)
	}
}

func (p *plainWriter) block(sb *strings.Builder, n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading, *ast.Paragraph:
		sb.WriteString(p.inline(node))
		sb.WriteString("\n\n")
	case *ast.TextBlock:
		sb.WriteString(p.inline(node))
		sb.WriteString("\n")
	case *ast.List:
		idx := node.Start
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			prefix := "• "
			if node.IsOrdered() {
				prefix = fmt.Sprintf("%d. ", idx)
				idx++
			}
			var inner strings.Builder
			p.blocks(&inner, item)
			body := strings.TrimSpace(inner.String())
			body = strings.ReplaceAll(body, "\n", "\n"+strings.Repeat(" ", len([]rune(prefix))))
			sb.WriteString(prefix + body + "\n")
		}
		sb.WriteString("\n")
	case *ast.Blockquote:
		p.blocks(sb, node)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(p.src))
		}
		sb.WriteString("\n")
	case *ast.ThematicBreak, *ast.HTMLBlock:
		sb.WriteString("\n")
	case *east.Table:
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, strings.TrimSpace(p.inline(cell)))
			}
			sb.WriteString(strings.Join(cells, " | "))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	default:
		if n.HasChildren() {
			p.blocks(sb, n)
		}
	}
}

func (p *plainWriter) inline(n ast.Node) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(p.src))
			if node.HardLineBreak() {
				sb.WriteString("\n")
			} else if node.SoftLineBreak() {
				sb.WriteString(" ")
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.Link:
			label := p.inline(node)
			url := string(node.Destination)
			if url == "" || label == url {
				sb.WriteString(label)
			} else {
				sb.WriteString(label + " (" + url + ")")
			}
		case *ast.AutoLink:
			sb.Write(node.URL(p.src))
		case *ast.RawHTML:
			// dropped
		default:
			sb.WriteString(p.inline(node))
		}
	}
	return sb.String()
}
