package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/aanand-mishra/students-admin/internal/http/handlers/student"
	"github.com/aanand-mishra/students-admin/internal/storage/sqlite"
	"github.com/aanand-mishra/students-admin/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBackend runs the real students resource on a throwaway database.
func newBackend(t *testing.T) *Client {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "students.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	router := http.NewServeMux()
	student.Register(router, store, student.NewValidator())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func draft(n int) types.Student {
	return types.Student{
		FirstName:  "First" + strconv.Itoa(n),
		LastName:   "Last" + strconv.Itoa(n),
		Email:      "s" + strconv.Itoa(n) + "@example.com",
		Gender:     types.GenderMale,
		Country:    "Vietnam",
		Avatar:     "",
		BTCAddress: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
	}
}

func TestListStudents_AtMostLimit(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	for i := 0; i < 23; i++ {
		_, err := c.AddStudent(ctx, draft(i))
		require.NoError(t, err)
	}

	for page, want := range map[int]int{1: 10, 2: 10, 3: 3, 4: 0} {
		got, err := c.ListStudents(ctx, page, 10)
		require.NoError(t, err)
		assert.Len(t, got.Students, want, "page %d", page)
		assert.Equal(t, 23, got.TotalCount, "page %d", page)
	}
}

func TestAddThenGet(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	in := draft(1)
	in.ID = "should-be-dropped"

	created, err := c.AddStudent(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.NotEqual(t, "should-be-dropped", created.ID)

	got, err := c.GetStudent(ctx, created.ID)
	require.NoError(t, err)

	in.ID = created.ID
	assert.Equal(t, in, got)
}

func TestUpdateStudent_IDImmutable(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	created, err := c.AddStudent(ctx, draft(1))
	require.NoError(t, err)

	change := created
	change.ID = "hijack"
	change.Email = "new@example.com"

	updated, err := c.UpdateStudent(ctx, created.ID, change)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, created.FirstName, updated.FirstName)
	assert.Equal(t, created.Country, updated.Country)

	_, err = c.GetStudent(ctx, "hijack")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteStudent_RemovedFromList(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	keep, err := c.AddStudent(ctx, draft(1))
	require.NoError(t, err)
	gone, err := c.AddStudent(ctx, draft(2))
	require.NoError(t, err)

	require.NoError(t, c.DeleteStudent(ctx, gone.ID))

	page, err := c.ListStudents(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
	require.Len(t, page.Students, 1)
	assert.Equal(t, keep.ID, page.Students[0].ID)

	assert.ErrorIs(t, c.DeleteStudent(ctx, gone.ID), ErrNotFound)
}

func TestAddStudent_ValidationError(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	in := draft(1)
	in.Email = "broken"

	_, err := c.AddStudent(ctx, in)
	require.Error(t, err)

	verr, ok := AsValidationError(err)
	require.True(t, ok, "got %T: %v", err, err)
	assert.Equal(t, "field email must be a valid email address", verr.Fields["email"])
	assert.NotContains(t, verr.Fields, "first_name")

	page, err := c.ListStudents(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
}

func TestUpdateStudent_ValidationLeavesRecord(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	created, err := c.AddStudent(ctx, draft(1))
	require.NoError(t, err)

	change := created
	change.Country = ""
	change.Email = "changed@example.com"

	_, err = c.UpdateStudent(ctx, created.ID, change)
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "field country is required", verr.Fields["country"])

	got, err := c.GetStudent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestClient_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","error":"database is locked"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.GetStudent(context.Background(), "1")
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusInternalServerError, herr.StatusCode)
	assert.Equal(t, "database is locked", herr.Message)
}

func TestClient_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/students", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("_page"))
		assert.Equal(t, "5", r.URL.Query().Get("_limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"a","first_name":"A"}]`))
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/api")
	require.NoError(t, err)

	page, err := c.ListStudents(context.Background(), 3, 5)
	require.NoError(t, err)
	require.Len(t, page.Students, 1)
	// No X-Total-Count header: fall back to what came back.
	assert.Equal(t, 1, page.TotalCount)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.GetStudent(context.Background(), "1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_RejectsDotIDs(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"", ".", ".."} {
		_, err := c.GetStudent(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidID, "get %q", id)

		_, err = c.UpdateStudent(ctx, id, draft(1))
		assert.ErrorIs(t, err, ErrInvalidID, "update %q", id)

		assert.ErrorIs(t, c.DeleteStudent(ctx, id), ErrInvalidID, "delete %q", id)
	}
	assert.Zero(t, hits)
}

func TestStudentPath_EscapesID(t *testing.T) {
	p, err := studentPath("a/b")
	require.NoError(t, err)
	assert.Equal(t, "students/a%2Fb", p)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/students")
	assert.Error(t, err)
}
