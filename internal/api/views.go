package api

import (
	"bytes"
	"html/template"
	"net/http"

	"lamconf/internal/domain"
	"lamconf/internal/i18n"
	"lamconf/web"
)

// LoginView renders the password prompt shown before the settings form and
// after a rejected password.
type LoginView interface {
	RenderLogin(w http.ResponseWriter, status int, tr *i18n.Printer, message string)
}

// Views renders the HTML pages of the settings editor.
type Views struct {
	tmpl *template.Template
}

var _ LoginView = (*Views)(nil)

type pageData struct {
	Lang     string
	Title    string
	T        func(key string) string
	Message  string
	Messages []string
	Summary  string
	Password string
	Settings domain.Settings
}

// NewViews parses the embedded templates.
func NewViews() (*Views, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Views{tmpl: tmpl}, nil
}

// MustViews is like NewViews but panics on error.
func MustViews() *Views {
	v, err := NewViews()
	if err != nil {
		panic(err)
	}
	return v
}

func newPage(tr *i18n.Printer, titleKey string) pageData {
	return pageData{
		Lang:  tr.Language().String(),
		Title: tr.Translate(titleKey),
		T:     tr.Translate,
	}
}

// RenderLogin renders the login prompt with an optional message above it.
func (v *Views) RenderLogin(w http.ResponseWriter, status int, tr *i18n.Printer, message string) {
	data := newPage(tr, "login.title")
	data.Message = message
	v.render(w, status, "login", data)
}

// RenderForm renders the settings form. password is carried in a hidden
// field so the save request can be authenticated.
func (v *Views) RenderForm(w http.ResponseWriter, tr *i18n.Printer, password string, s domain.Settings) {
	data := newPage(tr, "form.title")
	data.Password = password
	data.Settings = s
	v.render(w, http.StatusOK, "form", data)
}

// RenderResult renders confirmation lines followed by the settings summary.
func (v *Views) RenderResult(w http.ResponseWriter, tr *i18n.Printer, messages []string, summary string) {
	data := newPage(tr, "form.title")
	data.Messages = messages
	data.Summary = summary
	v.render(w, http.StatusOK, "result", data)
}

// RenderError renders a single error line.
func (v *Views) RenderError(w http.ResponseWriter, status int, tr *i18n.Printer, message string) {
	data := newPage(tr, "form.title")
	data.Messages = []string{message}
	v.render(w, status, "result", data)
}

func (v *Views) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
