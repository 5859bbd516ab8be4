// Package lessonfmt renders generated lesson text as HTML, plain text and
// downloadable documents.
package lessonfmt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lessonlift/backend/internal/domain"
)

var (
	headingLine = regexp.MustCompile(`^\*\*(.*)\*\*$`)
	inlineBold  = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	bulletLine  = regexp.MustCompile(`^(?:-|•)\s*`)

	// Only text-node metacharacters; quotes and apostrophes stay verbatim.
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

const vocabTableStyle = `<style>
.vocab-table { width: 100%; max-width: 600px; margin: 20px 0; border-collapse: collapse; }
.vocab-table th { background: #667eea; color: white; padding: 16px; text-align: left; font-weight: 600; }
.vocab-table td { padding: 14px 16px; border-bottom: 1px solid #e5e7eb; }
.vocab-table tr:last-child td { border-bottom: none; }
</style>`

// HTML converts the model's marked-up text into the lesson-plan HTML fragment.
func HTML(content string, req domain.LessonRequest) string {
	var b strings.Builder

	b.WriteString(`<div class="lesson-plan">`)
	b.WriteString(`<div class="lesson-header">`)
	fmt.Fprintf(&b, `<h1>%s: %s</h1>`, escapeText(req.Subject), escapeText(req.Topic))
	b.WriteString(`<div class="lesson-meta">`)
	fmt.Fprintf(&b, `<span class="meta-item"><strong>Year Group:</strong> %s</span>`, escapeText(req.YearGroup))
	fmt.Fprintf(&b, `<span class="meta-item"><strong>Ability:</strong> %s</span>`, escapeText(req.AbilityLevel))
	fmt.Fprintf(&b, `<span class="meta-item"><strong>Duration:</strong> %d minutes</span>`, req.LessonDuration)
	b.WriteString(`</div></div>`)
	b.WriteString(vocabTableStyle)

	b.WriteString(`<div class="lesson-content">`)
	b.WriteString(Body(content))
	b.WriteString(`</div></div>`)

	return b.String()
}

// Body runs the line transformer over content and returns the HTML for it.
func Body(content string) string {
	t := &transformer{}
	for _, raw := range strings.Split(content, "\n") {
		t.line(strings.TrimSpace(raw))
	}
	t.closeList()
	t.flushTable()
	return t.out.String()
}

type transformer struct {
	out    strings.Builder
	inList bool
	rows   [][]string
}

func (t *transformer) line(line string) {
	if line == "" {
		t.closeList()
		t.flushTable()
		return
	}

	if isTableRow(line) {
		if isSeparatorRow(line) {
			return
		}
		t.closeList()
		if cells := splitCells(line); len(cells) > 0 {
			t.rows = append(t.rows, cells)
		}
		return
	}

	t.flushTable()

	switch {
	case headingLine.MatchString(line):
		t.closeList()
		heading := headingLine.FindStringSubmatch(line)[1]
		fmt.Fprintf(&t.out, `<h2 class="section-heading">%s</h2>`, escapeText(heading))
	case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "• "):
		if !t.inList {
			t.out.WriteString(`<ul>`)
			t.inList = true
		}
		fmt.Fprintf(&t.out, `<li>%s</li>`, inline(bulletLine.ReplaceAllString(line, "")))
	default:
		t.closeList()
		fmt.Fprintf(&t.out, `<p>%s</p>`, inline(line))
	}
}

func (t *transformer) closeList() {
	if t.inList {
		t.out.WriteString(`</ul>`)
		t.inList = false
	}
}

func (t *transformer) flushTable() {
	if len(t.rows) == 0 {
		return
	}
	t.out.WriteString(`<table class="vocab-table"><thead><tr>`)
	for _, cell := range t.rows[0] {
		fmt.Fprintf(&t.out, `<th>%s</th>`, inline(cell))
	}
	t.out.WriteString(`</tr></thead><tbody>`)
	for _, row := range t.rows[1:] {
		t.out.WriteString(`<tr>`)
		for _, cell := range row {
			fmt.Fprintf(&t.out, `<td>%s</td>`, inline(cell))
		}
		t.out.WriteString(`</tr>`)
	}
	t.out.WriteString(`</tbody></table>`)
	t.rows = nil
}

func isTableRow(line string) bool {
	return len(line) > 1 && strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|")
}

// isSeparatorRow matches markdown header separators such as |---|:--:|.
func isSeparatorRow(line string) bool {
	if !strings.Contains(line, "-") {
		return false
	}
	return strings.Trim(line, "|-: \t") == ""
}

func splitCells(line string) []string {
	var cells []string
	for _, c := range strings.Split(line, "|") {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

// inline escapes text and converts **bold** spans.
func inline(s string) string {
	return inlineBold.ReplaceAllString(escapeText(s), "<strong>$1</strong>")
}

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
