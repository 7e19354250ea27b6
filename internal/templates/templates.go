// Package templates renders the HTML emails produced for a form submission.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/romenn/site-worker/internal/submission"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
)

//go:embed html/*.html.tmpl
var files embed.FS

const defaultBrand = "Römenn Inmobiliaria"

type Renderer struct {
	business *template.Template
	client   *template.Template
	minifier *minify.M
	brand    string
	now      func() time.Time
}

type Option func(*Renderer)

// WithClock fixes the time printed in the emails.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithBrand overrides the agency name shown in headers and footers.
func WithBrand(brand string) Option {
	return func(r *Renderer) {
		if brand != "" {
			r.brand = brand
		}
	}
}

// WithoutMinify keeps the rendered markup as written.
func WithoutMinify() Option {
	return func(r *Renderer) { r.minifier = nil }
}

func New(opts ...Option) (*Renderer, error) {
	business, err := parse("business.html.tmpl")
	if err != nil {
		return nil, err
	}
	client, err := parse("client.html.tmpl")
	if err != nil {
		return nil, err
	}

	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})

	r := &Renderer{
		business: business,
		client:   client,
		minifier: m,
		brand:    defaultBrand,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

func parse(name string) (*template.Template, error) {
	t, err := template.New(name).
		Funcs(sprig.HtmlFuncMap()).
		ParseFS(files, "html/"+name, "html/footer.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return t, nil
}

type businessData struct {
	Brand        string
	FormLabel    string
	Rows         []submission.Row
	Now          time.Time
	Confirmation bool
}

type clientData struct {
	Brand        string
	Name         string
	Title        string
	Message      string
	Now          time.Time
	Confirmation bool
}

// Business renders the notification sent to the agency mailbox.
func (r *Renderer) Business(s *submission.Submission) (string, error) {
	d := s.Details()
	return r.execute(r.business, businessData{
		Brand:     r.brand,
		FormLabel: formLabel(d.Kind()),
		Rows:      d.Rows(),
		Now:       r.now(),
	})
}

// Client renders the confirmation sent back to the submitter.
func (r *Renderer) Client(s *submission.Submission) (string, error) {
	msg := messageFor(s.Kind)
	return r.execute(r.client, clientData{
		Brand:        r.brand,
		Name:         s.Name,
		Title:        msg.Title,
		Message:      msg.Message,
		Now:          r.now(),
		Confirmation: true,
	})
}

func (r *Renderer) execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}

	if r.minifier == nil {
		return buf.String(), nil
	}

	out, err := r.minifier.String("text/html", buf.String())
	if err != nil {
		return "", fmt.Errorf("failed to minify %s: %w", t.Name(), err)
	}
	return out, nil
}
