package template

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"backoffice/internal/domain/dispatch"

	"github.com/k3a/html2text"
)

var _ dispatch.Renderer = (*Engine)(nil)

//go:embed templates/*.html templates/*.txt
var files embed.FS

// templateMeta holds the subject and template name mapping for each event type.
type templateMeta struct {
	Subject      string
	TemplateName string
}

// registry maps event types to their metadata. Subjects are text templates.
var registry = map[dispatch.EventType]templateMeta{
	dispatch.EventNewOrder:      {Subject: "New order #{{.OrderID}} - {{.Store}}", TemplateName: "new_order"},
	dispatch.EventLowStock:      {Subject: "{{if .Restored}}Stock restored{{else}}Low stock{{end}} - {{.Store}}", TemplateName: "low_stock"},
	dispatch.EventOutOfStock:    {Subject: "OUT OF STOCK - {{.Store}}", TemplateName: "out_of_stock"},
	dispatch.EventCheckIn:       {Subject: "Clock in: {{.EmployeeName}}", TemplateName: "attendance"},
	dispatch.EventCheckOut:      {Subject: "Clock out: {{.EmployeeName}}", TemplateName: "attendance"},
	dispatch.EventIncident:      {Subject: "Incident {{upper .Priority}} - {{.Store}}", TemplateName: "incident"},
	dispatch.EventPaymentIssue:  {Subject: "Payment issue - Order #{{.OrderID}} - {{.Store}}", TemplateName: "payment_issue"},
	dispatch.EventPasswordReset: {Subject: "Temporary password", TemplateName: "password_reset"},
}

var funcs = map[string]any{
	"upper": strings.ToUpper,
	"priorityColor": func(p string) string {
		switch p {
		case "high":
			return "red"
		case "medium":
			return "orange"
		default:
			return "blue"
		}
	},
}

// Engine renders event messages from the embedded templates: an HTML body
// for email and a plain-text body for SMS and WhatsApp.
type Engine struct {
	html     *htmltemplate.Template
	text     *texttemplate.Template
	subjects map[dispatch.EventType]*texttemplate.Template
	store    string
}

// NewEngine parses the embedded templates. store is the shop name shown
// in every message.
func NewEngine(store string) (*Engine, error) {
	html, err := htmltemplate.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing html templates: %w", err)
	}

	text, err := texttemplate.New("").Funcs(funcs).ParseFS(files, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parsing text templates: %w", err)
	}

	subjects := make(map[dispatch.EventType]*texttemplate.Template, len(registry))
	for t, meta := range registry {
		s, err := texttemplate.New(string(t)).Funcs(funcs).Parse(meta.Subject)
		if err != nil {
			return nil, fmt.Errorf("parsing subject for %s: %w", t, err)
		}
		subjects[t] = s
	}

	return &Engine{html: html, text: text, subjects: subjects, store: store}, nil
}

// Render produces a subject line, HTML body, and plain-text body for the
// given event. Events without an HTML template get an empty HTML body;
// events without a text template get the HTML converted to plain text.
func (e *Engine) Render(t dispatch.EventType, data *dispatch.TemplateData) (subject, html, text string, err error) {
	meta, ok := registry[t]
	if !ok {
		return "", "", "", fmt.Errorf("no template registered for type: %s", t)
	}

	rendered := *data
	rendered.Store = e.store

	var buf bytes.Buffer
	if err := e.subjects[t].Execute(&buf, &rendered); err != nil {
		return "", "", "", fmt.Errorf("executing subject %s: %w", t, err)
	}
	subject = buf.String()

	if tmpl := e.html.Lookup(meta.TemplateName + ".html"); tmpl != nil {
		buf.Reset()
		if err := tmpl.Execute(&buf, &rendered); err != nil {
			return "", "", "", fmt.Errorf("executing template %s: %w", meta.TemplateName, err)
		}
		html = buf.String()
	}

	if tmpl := e.text.Lookup(meta.TemplateName + ".txt"); tmpl != nil {
		buf.Reset()
		if err := tmpl.Execute(&buf, &rendered); err != nil {
			return "", "", "", fmt.Errorf("executing template %s: %w", meta.TemplateName, err)
		}
		text = strings.TrimSpace(buf.String())
	} else {
		text = htmlToText(html)
	}

	return subject, html, text, nil
}

// htmlToText renders an HTML body as plain text with Unix line breaks.
func htmlToText(s string) string {
	text := html2text.HTML2Text(s)
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}
