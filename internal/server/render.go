package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/chroma-viewer/pkg/pagination"
	"github.com/Sternrassler/chroma-viewer/pkg/viewer"
)

//go:embed web/templates/*.html web/static/*
var webFS embed.FS

// pageSizes are offered by the page-size selector.
var pageSizes = []int{10, 25, 50, 100}

// pageLinkSpan is how many numbered links are shown on each side of the
// current page.
const pageLinkSpan = 2

var funcs = template.FuncMap{
	"pathEscape": url.PathEscape,
	"statusText": http.StatusText,
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(webFS, "web/templates/*.html")
}

func staticFS() http.FileSystem {
	sub, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(fmt.Sprintf("static assets: %v", err))
	}
	return http.FS(sub)
}

type connectionView struct {
	Title  string
	DBPath string
}

type collectionsView struct {
	Title       string
	DBPath      string
	Collections []viewer.Summary
}

type documentsView struct {
	Title     string
	DBPath    string
	Page      *pagination.Page
	Pages     []int
	PageSizes []int
	Previous  int
	Next      int
}

// PageURL links to page n of the collection at the current page size.
func (v documentsView) PageURL(n int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(n))
	q.Set("page_size", strconv.Itoa(v.Page.PageSize))
	return "/collection/" + url.PathEscape(v.Page.CollectionName) + "?" + q.Encode()
}

func newDocumentsView(dbPath string, p *pagination.Page) documentsView {
	return documentsView{
		Title:     p.CollectionName,
		DBPath:    dbPath,
		Page:      p,
		Pages:     pageNumbers(p.CurrentPage, p.TotalPages),
		PageSizes: pageSizes,
		Previous:  p.CurrentPage - 1,
		Next:      p.CurrentPage + 1,
	}
}

// pageNumbers returns the numbered links around current.
func pageNumbers(current, total int) []int {
	if total < 1 {
		return nil
	}
	first := max(1, current-pageLinkSpan)
	last := min(total, current+pageLinkSpan)
	pages := make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		pages = append(pages, n)
	}
	return pages
}

type errorView struct {
	Title   string
	DBPath  string
	Status  int
	Message string
}

// render buffers the template; a failed execution writes a plain 500.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError shows err on the error page with its mapped status.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	status := viewer.StatusCode(viewer.KindOf(err))
	s.render(w, status, "error.html", errorView{
		Title:   http.StatusText(status),
		DBPath:  s.conn.Path(),
		Status:  status,
		Message: err.Error(),
	})
}

// writeJSON encodes v before the header is sent, so a value that cannot
// be encoded is answered with a 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Int("status", status).Msg("Failed to encode JSON response")
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Error encoding response: %v", err))
		return
	}
	writeBody(w, status, body)
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// writeDetail writes an error body of the form {"detail": msg}.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	body, _ := json.Marshal(map[string]string{"detail": msg})
	writeBody(w, status, body)
}

// writeError maps err to its status code and writes it as JSON.
func writeError(w http.ResponseWriter, err error) {
	writeDetail(w, viewer.StatusCode(viewer.KindOf(err)), err.Error())
}
