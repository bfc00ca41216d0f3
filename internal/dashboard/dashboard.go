// Package dashboard renders the HTML status page and serves its static assets.
package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hazz-dev/webcheck/internal/registry"
)

//go:embed assets
var assets embed.FS

//go:embed templates
var templates embed.FS

// Row is one resource as shown on the page.
type Row struct {
	URL          string
	Status       string
	StatusClass  string
	StatusCode   string
	ResponseTime string
	Jitter       string
	LastChecked  string
}

// Page is the data passed to the index template.
type Page struct {
	Resources []Row
	Config    registry.AppConfig
}

// NewPage projects a snapshot into display rows. The minutes-ago value is
// derived from last_checked at render time and never stored.
func NewPage(snap registry.Snapshot, now time.Time) Page {
	rows := make([]Row, 0, len(snap.Resources))
	for _, r := range snap.Resources {
		row := Row{
			URL:          r.URL,
			Status:       string(r.Status),
			StatusClass:  strings.ToLower(string(r.Status)),
			StatusCode:   "-",
			ResponseTime: "-",
			Jitter:       "-",
			LastChecked:  MinutesAgoText(MinutesAgo(r.LastChecked, now)),
		}
		if r.StatusCode != nil {
			row.StatusCode = strconv.Itoa(*r.StatusCode)
		}
		if r.ResponseTime != nil {
			row.ResponseTime = fmt.Sprintf("%d ms", *r.ResponseTime)
		}
		if r.Jitter != nil {
			row.Jitter = fmt.Sprintf("%.4f ms", *r.Jitter)
		}
		rows = append(rows, row)
	}
	return Page{Resources: rows, Config: snap.Config}
}

// MinutesAgo returns whole minutes elapsed since t, never negative.
func MinutesAgo(t, now time.Time) int64 {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// MinutesAgoText formats a minutes-ago count for display.
func MinutesAgoText(minutes int64) string {
	switch minutes {
	case 0:
		return "just now"
	case 1:
		return "1 minute ago"
	default:
		return fmt.Sprintf("%d minutes ago", minutes)
	}
}

// Renderer executes the embedded index template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templates, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the page to w. Output is buffered so a failure never
// leaves a half-written page.
func (r *Renderer) Render(w io.Writer, page Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static returns a handler serving the embedded stylesheet. Templates are
// embedded separately and never served.
func Static() http.Handler {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		// Unreachable: "assets" is embedded.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
