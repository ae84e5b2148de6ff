// Package report turns commission documents into PDFs through Gotenberg.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/Glebrito/Analisediaria/internal/commission/export"
	"github.com/Glebrito/Analisediaria/web"
)

// PDFClient exposes the subset of the Gotenberg client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string, opts PageOptions) ([]byte, error)
}

// Renderer executes the embedded report templates and converts them to PDF.
type Renderer struct {
	statistical *template.Template
	commission  *template.Template
	client      PDFClient
}

// NewRenderer parses the report templates.
func NewRenderer(client PDFClient) (*Renderer, error) {
	if client == nil {
		return nil, fmt.Errorf("report renderer: pdf client required")
	}
	funcMap := template.FuncMap{
		"formatTimestamp": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"inc": func(i int) int { return i + 1 },
	}
	statistical, err := template.New("statistical.html").Funcs(funcMap).ParseFS(web.Templates, "templates/reports/statistical.html")
	if err != nil {
		return nil, err
	}
	commission, err := template.New("commission.html").Funcs(funcMap).ParseFS(web.Templates, "templates/reports/commission.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{statistical: statistical, commission: commission, client: client}, nil
}

// StatisticalHTML renders the statistical document without converting it.
func (r *Renderer) StatisticalHTML(doc export.StatisticalDocument) (string, error) {
	buf := &bytes.Buffer{}
	if err := r.statistical.Execute(buf, doc); err != nil {
		return "", fmt.Errorf("report: execute statistical template: %w", err)
	}
	return buf.String(), nil
}

// CommissionHTML renders the commission document without converting it.
func (r *Renderer) CommissionHTML(doc export.CommissionDocument) (string, error) {
	buf := &bytes.Buffer{}
	if err := r.commission.Execute(buf, doc); err != nil {
		return "", fmt.Errorf("report: execute commission template: %w", err)
	}
	return buf.String(), nil
}

// RenderStatistical produces the portrait statistical PDF.
func (r *Renderer) RenderStatistical(ctx context.Context, doc export.StatisticalDocument) ([]byte, error) {
	html, err := r.StatisticalHTML(doc)
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html, PageOptions{})
}

// RenderCommission produces the landscape commission PDF.
func (r *Renderer) RenderCommission(ctx context.Context, doc export.CommissionDocument) ([]byte, error) {
	html, err := r.CommissionHTML(doc)
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html, PageOptions{Landscape: true})
}
