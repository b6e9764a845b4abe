package views

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aanand-mishra/students-admin/internal/apiclient"
	"github.com/aanand-mishra/students-admin/internal/query"
	"github.com/aanand-mishra/students-admin/internal/types"
	"github.com/gorilla/mux"
)

const skeletonRows = 12

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type pagination struct {
	Links   []pageLink
	HasPrev bool
	PrevURL string
	HasNext bool
	NextURL string
}

type listPage struct {
	Title    string
	Notice   *Notice
	Loading  bool
	Skeleton []int
	Students []types.Student
	Page     int
	Pager    pagination
}

// paginate builds links for pages 1..ceil(total/limit). "Previous" is off
// on the first page and "Next" is off from maxPage on.
func paginate(page, total, limit, maxPage int) pagination {
	pages := 0
	if limit > 0 && total > 0 {
		pages = (total + limit - 1) / limit
	}

	p := pagination{
		Links:   make([]pageLink, 0, pages),
		HasPrev: page > 1,
		HasNext: page < maxPage,
	}
	for n := 1; n <= pages; n++ {
		p.Links = append(p.Links, pageLink{Number: n, URL: listURL(n), Current: n == page})
	}
	if p.HasPrev {
		p.PrevURL = listURL(page - 1)
	}
	if p.HasNext {
		p.NextURL = listURL(page + 1)
	}

	return p
}

func listURL(page int) string {
	return "/students?page=" + strconv.Itoa(page)
}

// pageParam reads ?page=, falling back to 1 for anything that is not a
// positive integer.
func pageParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (h *Handler) fetchPage(ctx context.Context, page int) (apiclient.StudentsPage, error) {
	return query.Fetch(ctx, h.queries, studentsKey(page), func(ctx context.Context) (apiclient.StudentsPage, error) {
		return h.api.ListStudents(ctx, page, h.pageLimit)
	})
}

// List handles GET /students.
//
// The page waits up to renderWait for its data. When the fetch takes
// longer, a skeleton that refreshes itself is sent instead and the fetch
// keeps running to fill the cache for the next request. A refresh that
// finds the previous round failed reports that error instead of another
// skeleton.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r.URL.Query().Get("page"))
	data := listPage{
		Title:  "Students",
		Notice: takeFlash(w, r),
		Page:   page,
	}

	// Read before fetchPage starts a new call and moves the entry to loading.
	last := h.queries.State(studentsKey(page))

	type result struct {
		page apiclient.StudentsPage
		err  error
	}
	done := make(chan result, 1)
	go func() {
		p, err := h.fetchPage(r.Context(), page)
		done <- result{page: p, err: err}
	}()

	var wait <-chan time.Time
	if h.renderWait > 0 {
		timer := time.NewTimer(h.renderWait)
		defer timer.Stop()
		wait = timer.C
	}

	select {
	case res := <-done:
		if res.err != nil {
			h.renderListError(w, data, res.err)
			return
		}

		data.Students = res.page.Students
		data.Pager = paginate(page, res.page.TotalCount, h.pageLimit, h.maxPage)
		h.render(w, http.StatusOK, "list", data)

	case <-wait:
		if last.Status == query.StatusError {
			h.renderListError(w, data, last.Err)
			return
		}

		h.log.Debug("list still loading, rendering skeleton", slog.Int("page", page))
		data.Loading = true
		data.Skeleton = make([]int, skeletonRows)
		h.render(w, http.StatusOK, "list", data)

	case <-r.Context().Done():
	}
}

// renderListError shows err above the last page that loaded, if the cache
// still holds one.
func (h *Handler) renderListError(w http.ResponseWriter, data listPage, err error) {
	h.log.Error("error listing students",
		slog.Int("page", data.Page),
		slog.String("error", err.Error()))

	data.Notice = &Notice{Kind: NoticeError, Message: "Could not load students: " + err.Error()}
	if prev, ok := query.Peek[apiclient.StudentsPage](h.queries, studentsKey(data.Page)); ok {
		data.Students = prev.Students
		data.Pager = paginate(data.Page, prev.TotalCount, h.pageLimit, h.maxPage)
	}
	h.render(w, http.StatusBadGateway, "list", data)
}

// Delete handles POST /students/{id}/delete and redirects back to the page
// the request came from.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	page := pageParam(r.FormValue("page"))

	h.log.Info("deleting a student", slog.String("id", id))

	deletion := query.Mutation[string, struct{}]{
		Fn: func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, h.api.DeleteStudent(ctx, id)
		},
		OnSuccess: func(_ struct{}, id string) {
			// Later pages shift by one record, so every list page is stale.
			h.queries.Invalidate(allStudentsKey)
			h.queries.Remove(studentKey(id))
			setFlash(w, NoticeSuccess, fmt.Sprintf("Deleted student with id: %s", id))
		},
		OnError: func(err error, id string) {
			h.log.Error("error deleting student",
				slog.String("id", id),
				slog.String("error", err.Error()))
			if errors.Is(err, apiclient.ErrNotFound) {
				h.queries.Invalidate(allStudentsKey)
			}
			setFlash(w, NoticeError, fmt.Sprintf("Could not delete student %s: %s", id, err))
		},
	}
	_, _ = deletion.Mutate(r.Context(), id)

	http.Redirect(w, r, listURL(page), http.StatusSeeOther)
}

// Prefetch handles GET /students/{id}/prefetch, sent when the pointer
// enters a table row, so the edit form usually opens from the cache.
func (h *Handler) Prefetch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	query.Prefetch(r.Context(), h.queries, studentKey(id), func(ctx context.Context) (types.Student, error) {
		return h.api.GetStudent(ctx, id)
	})

	w.WriteHeader(http.StatusNoContent)
}

// editURL is used by the list template.
func editURL(id string) string {
	return "/students/" + url.PathEscape(id)
}

// avatarURL turns the stored avatar into something an <img> can show:
// http(s) and data:image URLs pass through and bare base64 is wrapped in a
// data URL. Anything else yields "" and no image.
func avatarURL(avatar string) template.URL {
	switch {
	case avatar == "":
		return ""
	case strings.HasPrefix(avatar, "http://"),
		strings.HasPrefix(avatar, "https://"),
		strings.HasPrefix(avatar, "data:image/"):
		return template.URL(avatar)
	}

	if _, err := base64.StdEncoding.DecodeString(avatar); err == nil {
		return template.URL("data:image/png;base64," + avatar)
	}
	return ""
}
