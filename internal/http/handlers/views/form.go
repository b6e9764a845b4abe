package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aanand-mishra/students-admin/internal/apiclient"
	"github.com/aanand-mishra/students-admin/internal/query"
	"github.com/aanand-mishra/students-admin/internal/types"
	"github.com/gorilla/mux"
)

type formPage struct {
	Title   string
	Notice  *Notice
	IsAdd   bool
	Action  string
	Student types.Student
	Genders []types.Gender
	// Errors holds the API's message per field after a 422.
	Errors map[string]string
}

func newFormPage(student types.Student) formPage {
	p := formPage{
		Student: student,
		Genders: types.Genders,
	}
	if student.IsDraft() {
		p.Title, p.IsAdd, p.Action = "Add student", true, "/students/add"
	} else {
		p.Title, p.Action = "Edit student", editURL(student.ID)
	}
	return p
}

// studentFromForm reads the submitted fields. Unknown genders are kept as
// typed so the API can reject them with its own message.
func studentFromForm(r *http.Request) (types.Student, error) {
	if err := r.ParseForm(); err != nil {
		return types.Student{}, err
	}

	field := func(name string) string {
		return strings.TrimSpace(r.PostForm.Get(name))
	}

	return types.Student{
		FirstName:  field("first_name"),
		LastName:   field("last_name"),
		Email:      field("email"),
		Gender:     types.Gender(field("gender")),
		Country:    field("country"),
		Avatar:     field("avatar"),
		BTCAddress: field("btc_address"),
	}, nil
}

// AddForm handles GET /students/add.
func (h *Handler) AddForm(w http.ResponseWriter, r *http.Request) {
	page := newFormPage(types.NewDraft())
	page.Notice = takeFlash(w, r)
	h.render(w, http.StatusOK, "form", page)
}

// EditForm handles GET /students/{id}. The record is read through the
// cache, so a row hovered in the list opens without another request.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	notice := takeFlash(w, r)

	student, err := query.Fetch(r.Context(), h.queries, studentKey(id), func(ctx context.Context) (types.Student, error) {
		return h.api.GetStudent(ctx, id)
	})
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			h.render(w, http.StatusNotFound, "notfound", notFoundPage{
				Title:  "Not found",
				Notice: notice,
				What:   "student " + id,
			})
			return
		}

		h.log.Error("error getting student",
			slog.String("id", id),
			slog.String("error", err.Error()))
		page := newFormPage(types.Student{ID: id, Gender: types.GenderOther})
		page.Notice = &Notice{Kind: NoticeError, Message: "Could not load student: " + err.Error()}
		h.render(w, http.StatusBadGateway, "form", page)
		return
	}

	page := newFormPage(student)
	page.Notice = notice
	h.render(w, http.StatusOK, "form", page)
}

// Create handles POST /students/add.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	draft, err := studentFromForm(r)
	if err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.log.Info("adding a student", slog.String("email", draft.Email))

	creation := query.Mutation[types.Student, types.Student]{
		Fn: h.api.AddStudent,
		OnSuccess: func(created types.Student, _ types.Student) {
			h.queries.Invalidate(allStudentsKey)
			setFlash(w, NoticeSuccess, "Add Student successfully")
			h.log.Info("student added", slog.String("id", created.ID))
		},
	}

	if _, err := creation.Mutate(r.Context(), draft); err != nil {
		h.renderSubmitError(w, draft, err)
		return
	}

	http.Redirect(w, r, "/students/add", http.StatusSeeOther)
}

// Update handles POST /students/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	student, err := studentFromForm(r)
	if err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	student.ID = id

	h.log.Info("updating a student", slog.String("id", id))

	update := query.Mutation[types.Student, types.Student]{
		Fn: func(ctx context.Context, s types.Student) (types.Student, error) {
			return h.api.UpdateStudent(ctx, s.ID, s)
		},
		OnSuccess: func(updated types.Student, _ types.Student) {
			h.queries.Invalidate(allStudentsKey)
			h.queries.Invalidate(studentKey(id))
			setFlash(w, NoticeSuccess, fmt.Sprintf("Update student successfully %s", updated.ID))
		},
	}

	if _, err := update.Mutate(r.Context(), student); err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			h.queries.Remove(studentKey(id))
			h.render(w, http.StatusNotFound, "notfound", notFoundPage{
				Title: "Not found",
				What:  "student " + id,
			})
			return
		}
		h.renderSubmitError(w, student, err)
		return
	}

	http.Redirect(w, r, editURL(id), http.StatusSeeOther)
}

// renderSubmitError re-renders the form with what the user typed. A 422
// puts the API's messages next to their fields; anything else becomes an
// error notice.
func (h *Handler) renderSubmitError(w http.ResponseWriter, student types.Student, err error) {
	page := newFormPage(student)

	if verr, ok := apiclient.AsValidationError(err); ok {
		page.Errors = verr.Fields
		page.Notice = &Notice{Kind: NoticeError, Message: "Please fix the highlighted fields"}
		h.render(w, http.StatusUnprocessableEntity, "form", page)
		return
	}

	h.log.Error("error saving student",
		slog.String("id", student.ID),
		slog.String("error", err.Error()))
	page.Notice = &Notice{Kind: NoticeError, Message: "Could not save student: " + err.Error()}
	h.render(w, http.StatusBadGateway, "form", page)
}
