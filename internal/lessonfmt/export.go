package lessonfmt

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/lessonlift/backend/internal/domain"
)

// Document is a rendered lesson ready to be served as a download.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

var (
	nonAlnum   = regexp.MustCompile(`[^a-zA-Z0-9]`)
	underscore = regexp.MustCompile(`_+`)
)

// SanitizeFilename builds a lower-case, underscore-separated file stem.
func SanitizeFilename(subject, topic string) string {
	s := nonAlnum.ReplaceAllString(subject+"_"+topic, "_")
	return strings.ToLower(underscore.ReplaceAllString(s, "_"))
}

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@media print {
  body { font-family: Arial, sans-serif; padding: 20px; color: #000; }
  .lesson-header { margin-bottom: 20px; border-bottom: 2px solid #4CAF50; padding-bottom: 10px; }
  .lesson-header h1 { color: #4CAF50; font-size: 24px; margin: 0 0 10px 0; }
  .lesson-meta { display: flex; gap: 20px; flex-wrap: wrap; font-size: 14px; }
  .meta-item { color: #666; }
  .section-heading { color: #2c5f2d; margin-top: 20px; margin-bottom: 10px; font-size: 18px; }
  li, p { line-height: 1.6; }
}
</style>
</head>
<body onload="window.print()">
{{.Body}}
</body>
</html>
`))

var wordTemplate = template.Must(template.New("word").Parse(`<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:w="urn:schemas-microsoft-com:office:word" xmlns="http://www.w3.org/TR/REC-html40">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Calibri, Arial, sans-serif; font-size: 11pt; }
h1 { color: #4CAF50; font-size: 20pt; }
h2 { color: #2c5f2d; font-size: 16pt; margin-top: 12pt; }
p { margin-bottom: 6pt; line-height: 1.5; }
li { margin-bottom: 4pt; line-height: 1.5; }
.lesson-meta { font-size: 10pt; color: #666666; margin-bottom: 12pt; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>`))

// Export renders the lesson in the requested format.
func Export(l *domain.Lesson, format domain.ExportFormat) (*Document, error) {
	name := SanitizeFilename(l.Subject, l.Topic)
	// Content was produced by HTML and escaped at render time.
	data := struct {
		Title string
		Body  template.HTML
	}{name, template.HTML(l.Content)}

	switch format {
	case domain.FormatTXT:
		return &Document{
			Filename:    name + ".txt",
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(l.Text),
		}, nil
	case domain.FormatPDF:
		var buf bytes.Buffer
		if err := printTemplate.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render print document: %w", err)
		}
		return &Document{
			Filename:    name + ".html",
			ContentType: "text/html; charset=utf-8",
			Body:        buf.Bytes(),
		}, nil
	case domain.FormatDOCX:
		var buf bytes.Buffer
		buf.WriteString("\ufeff")
		if err := wordTemplate.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render word document: %w", err)
		}
		return &Document{
			Filename:    name + ".doc",
			ContentType: "application/msword",
			Body:        buf.Bytes(),
		}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}
