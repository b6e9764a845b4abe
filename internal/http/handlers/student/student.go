// Package student contains the HTTP handlers of the REST students resource.
//
// Every handler is built by a factory that receives its dependencies and
// returns the http.HandlerFunc the router needs:
//
//	router.HandleFunc("POST /students", student.New(storage, validate))
//
// The resource follows json-server conventions so the web front-end can
// talk to either one: `_page`/`_limit` paging, an `X-Total-Count` header,
// `{}` bodies for deletes and misses, and 422 with per-field messages when
// validation fails.
package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/aanand-mishra/students-admin/internal/storage"
	"github.com/aanand-mishra/students-admin/internal/types"
	"github.com/aanand-mishra/students-admin/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// TotalCountHeader carries the size of the whole collection on list responses.
const TotalCountHeader = "X-Total-Count"

// DefaultLimit is the page size used when `_page` is given without `_limit`.
const DefaultLimit = 10

// NewValidator returns a validator that reports fields by their JSON name,
// so 422 bodies use the same keys clients send.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Register mounts the students resource on router.
func Register(router *http.ServeMux, storage storage.Storage, validate *validator.Validate) {
	router.HandleFunc("POST /students", New(storage, validate))
	router.HandleFunc("GET /students", GetList(storage))
	router.HandleFunc("GET /students/{id}", GetByID(storage))
	router.HandleFunc("PUT /students/{id}", Update(storage, validate))
	router.HandleFunc("DELETE /students/{id}", Delete(storage))
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /students
//
// Success response (201 Created): the stored student, including its new id.
//
// Error responses:
//
//	400 Bad Request          : empty body or malformed JSON
//	422 Unprocessable Entity : { "error": { "email": "..." } }
//	500 Internal             : database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		student, ok := decodeStudent(w, r, validate)
		if !ok {
			return
		}

		created, err := storage.CreateStudent(r.Context(), student)
		if err != nil {
			slog.Error("error creating student", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("student created", slog.String("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /students/{id}
//
// Error responses:
//
//	404 Not Found : {}
//	500 Internal  : database error
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("getting a student", slog.String("id", id))

		student, err := storage.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStorageError(w, id, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /students
//
// Query parameters:
//
//	_page   1-based page number; without it every student is returned
//	_limit  page size (default 10 when _page is present)
//
// The X-Total-Count header always carries the size of the whole collection.
// Returns an empty array [] (not null) when the page is empty.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		slog.Info("getting students",
			slog.Int("page", page.Number),
			slog.Int("limit", page.Limit))

		students, total, err := storage.ListStudents(r.Context(), page)
		if err != nil {
			slog.Error("error getting students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		w.Header().Set(TotalCountHeader, strconv.Itoa(total))
		w.Header().Set("Access-Control-Expose-Headers", TotalCountHeader)
		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /students/{id}
// Replaces ALL fields of an existing student. An id in the body is ignored;
// the id in the path always wins.
//
// Error responses:
//
//	400 Bad Request          : empty body or malformed JSON
//	404 Not Found            : {}
//	422 Unprocessable Entity : per-field messages
//	500 Internal             : database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(storage storage.Storage, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("updating a student", slog.String("id", id))

		student, ok := decodeStudent(w, r, validate)
		if !ok {
			return
		}

		updated, err := storage.UpdateStudentByID(r.Context(), id, student)
		if err != nil {
			writeStorageError(w, id, err)
			return
		}

		slog.Info("student updated", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /students/{id}
//
// Success response (200 OK): {}
// ─────────────────────────────────────────────────────────────────────────────
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("deleting a student", slog.String("id", id))

		if err := storage.DeleteStudentByID(r.Context(), id); err != nil {
			writeStorageError(w, id, err)
			return
		}

		slog.Info("student deleted", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, struct{}{})
	}
}

// decodeStudent reads and validates the request body. When it returns false
// the error response has already been written.
func decodeStudent(w http.ResponseWriter, r *http.Request, validate *validator.Validate) (types.Student, bool) {
	var student types.Student

	err := json.NewDecoder(r.Body).Decode(&student)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return types.Student{}, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.Student{}, false
	}

	student.ID = ""

	if err := validate.Struct(student); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return types.Student{}, false
		}
		response.WriteJSON(w, http.StatusUnprocessableEntity, response.ValidationError(validateErrs))
		return types.Student{}, false
	}

	return student, true
}

func writeStorageError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteJSON(w, http.StatusNotFound, struct{}{})
		return
	}

	slog.Error("storage error",
		slog.String("id", id),
		slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}

func parsePage(r *http.Request) (storage.Page, error) {
	q := r.URL.Query()
	rawPage, rawLimit := q.Get("_page"), q.Get("_limit")

	if rawPage == "" && rawLimit == "" {
		return storage.Page{}, nil
	}

	page := storage.Page{Number: 1, Limit: DefaultLimit}

	if rawPage != "" {
		n, err := strconv.Atoi(rawPage)
		if err != nil || n < 1 {
			return storage.Page{}, fmt.Errorf("invalid _page %q: must be a positive integer", rawPage)
		}
		page.Number = n
	}

	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 {
			return storage.Page{}, fmt.Errorf("invalid _limit %q: must be a positive integer", rawLimit)
		}
		page.Limit = n
	}

	if page.Number-1 > math.MaxInt/page.Limit {
		return storage.Page{}, fmt.Errorf("_page %d is out of range for _limit %d", page.Number, page.Limit)
	}

	return page, nil
}
