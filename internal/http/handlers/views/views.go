// Package views serves the browser front-end: the paginated students list
// and the add/edit form. Pages are rendered server-side from data fetched
// through the query cache, and every write goes through a query.Mutation
// that invalidates the affected keys when it succeeds.
//
// Route table:
//
//	GET  /                       → redirect to /students
//	GET  /students               → list (?page=N)
//	GET  /students/add           → blank form
//	POST /students/add           → create
//	GET  /students/{id}          → edit form
//	POST /students/{id}          → update
//	POST /students/{id}/delete   → delete, then back to the list
//	GET  /students/{id}/prefetch → warm the cache for one student (204)
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/students-admin/internal/apiclient"
	"github.com/aanand-mishra/students-admin/internal/query"
	"github.com/aanand-mishra/students-admin/internal/types"
	"github.com/gorilla/mux"
)

//go:embed templates/*.html
var templatesFS embed.FS

// StudentsAPI is the subset of the REST client the views need.
type StudentsAPI interface {
	ListStudents(ctx context.Context, page, limit int) (apiclient.StudentsPage, error)
	GetStudent(ctx context.Context, id string) (types.Student, error)
	AddStudent(ctx context.Context, student types.Student) (types.Student, error)
	UpdateStudent(ctx context.Context, id string, student types.Student) (types.Student, error)
	DeleteStudent(ctx context.Context, id string) error
}

// Options configure a Handler. Zero values fall back to 10 students per
// page and "Next" disabled from page 10 on.
type Options struct {
	PageLimit  int
	MaxPage    int
	RenderWait time.Duration
	Logger     *slog.Logger
}

const (
	defaultPageLimit = 10
	defaultMaxPage   = 10
)

// Handler holds the dependencies shared by every page.
type Handler struct {
	api     StudentsAPI
	queries *query.Client
	pages   map[string]*template.Template
	log     *slog.Logger

	pageLimit  int
	maxPage    int
	renderWait time.Duration
}

// New parses the page templates and returns a ready Handler.
func New(api StudentsAPI, queries *query.Client, opts Options) (*Handler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	h := &Handler{
		api:        api,
		queries:    queries,
		pages:      pages,
		log:        opts.Logger,
		pageLimit:  opts.PageLimit,
		maxPage:    opts.MaxPage,
		renderWait: opts.RenderWait,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.pageLimit < 1 {
		h.pageLimit = defaultPageLimit
	}
	if h.maxPage < 1 {
		h.maxPage = defaultMaxPage
	}

	return h, nil
}

// Routes returns the router serving every page.
func (h *Handler) Routes() http.Handler {
	router := mux.NewRouter()

	router.Handle("/", http.RedirectHandler("/students", http.StatusFound)).Methods(http.MethodGet)

	router.HandleFunc("/students", h.List).Methods(http.MethodGet)
	router.HandleFunc("/students/", h.List).Methods(http.MethodGet)

	// /students/add must be registered before /students/{id}.
	router.HandleFunc("/students/add", h.AddForm).Methods(http.MethodGet)
	router.HandleFunc("/students/add", h.Create).Methods(http.MethodPost)

	router.HandleFunc("/students/{id}", h.EditForm).Methods(http.MethodGet)
	router.HandleFunc("/students/{id}", h.Update).Methods(http.MethodPost)
	router.HandleFunc("/students/{id}/delete", h.Delete).Methods(http.MethodPost)
	router.HandleFunc("/students/{id}/prefetch", h.Prefetch).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(h.notFound)

	return router
}

var funcs = template.FuncMap{
	"editURL":     editURL,
	"deleteURL":   func(id string) string { return editURL(id) + "/delete" },
	"prefetchURL": func(id string) string { return editURL(id) + "/prefetch" },
	"avatarURL":   avatarURL,
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)

	for _, name := range []string{"list", "form", "notfound"} {
		t, err := template.New("layout.html").
			Funcs(funcs).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}

	return pages, nil
}

// render executes page into a buffer first so a template failure turns
// into a clean 500 instead of a half-written page.
func (h *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := h.pages[page]
	if !ok {
		h.log.Error("unknown page", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.log.Error("render failed",
			slog.String("page", page),
			slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type notFoundPage struct {
	Title  string
	Notice *Notice
	What   string
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "notfound", notFoundPage{
		Title:  "Not found",
		Notice: takeFlash(w, r),
		What:   r.URL.Path,
	})
}

func studentsKey(page int) query.Key {
	return query.Key{"students", page}
}

func studentKey(id string) query.Key {
	return query.Key{"student", id}
}

// allStudentsKey prefixes every list page.
var allStudentsKey = query.Key{"students"}
