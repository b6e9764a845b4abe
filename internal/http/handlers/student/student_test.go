package student

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/aanand-mishra/students-admin/internal/storage/sqlite"
	"github.com/aanand-mishra/students-admin/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "students.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	router := http.NewServeMux()
	Register(router, store, NewValidator())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func validStudent() types.Student {
	return types.Student{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Gender:     types.GenderFemale,
		Country:    "UK",
		BTCAddress: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
	}
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreate(t *testing.T) {
	srv := newTestServer(t)

	in := validStudent()
	in.ID = "mine"

	resp := doJSON(t, http.MethodPost, srv.URL+"/students", in)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[types.Student](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "mine", created.ID)
	assert.Equal(t, in.Email, created.Email)
}

func TestCreate_EmptyBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/students", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "request body is empty", body["error"])
}

func TestCreate_ValidationFailure(t *testing.T) {
	srv := newTestServer(t)

	in := validStudent()
	in.Email = "not-an-email"
	in.LastName = ""
	in.Gender = "robot"

	resp := doJSON(t, http.MethodPost, srv.URL+"/students", in)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode[struct {
		Error map[string]string `json:"error"`
	}](t, resp)
	assert.Equal(t, "field email must be a valid email address", body.Error["email"])
	assert.Equal(t, "field last_name is required", body.Error["last_name"])
	assert.Equal(t, "field gender must be one of: male female other", body.Error["gender"])
	assert.NotContains(t, body.Error, "first_name")

	list := doJSON(t, http.MethodGet, srv.URL+"/students", nil)
	assert.Equal(t, "0", list.Header.Get(TotalCountHeader))
}

func TestGetList_Paging(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 5; i++ {
		in := validStudent()
		in.FirstName = "S" + strconv.Itoa(i)
		resp := doJSON(t, http.MethodPost, srv.URL+"/students", in)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/students?_page=2&_limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "5", resp.Header.Get(TotalCountHeader))
	assert.Equal(t, TotalCountHeader, resp.Header.Get("Access-Control-Expose-Headers"))

	page := decode[[]types.Student](t, resp)
	require.Len(t, page, 2)
	assert.Equal(t, "S2", page[0].FirstName)
	assert.Equal(t, "S3", page[1].FirstName)

	all := decode[[]types.Student](t, doJSON(t, http.MethodGet, srv.URL+"/students", nil))
	assert.Len(t, all, 5)

	bad := doJSON(t, http.MethodGet, srv.URL+"/students?_page=0", nil)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestGetList_PageOutOfRange(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/students", validStudent())
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/students?_page=1844674407370955162&_limit=10", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "out of range")

	// A far page that fits is accepted and empty.
	far := doJSON(t, http.MethodGet, srv.URL+"/students?_page=1000&_limit=10", nil)
	require.Equal(t, http.StatusOK, far.StatusCode)
	assert.Equal(t, "3", far.Header.Get(TotalCountHeader))
	assert.Empty(t, decode[[]types.Student](t, far))
}

func TestParsePage_Bounds(t *testing.T) {
	edge := httptest.NewRequest(http.MethodGet, "/students?_page="+strconv.Itoa(math.MaxInt/10+1)+"&_limit=10", nil)
	page, err := parsePage(edge)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt/10*10, page.Offset())

	over := httptest.NewRequest(http.MethodGet, "/students?_page="+strconv.Itoa(math.MaxInt/10+2)+"&_limit=10", nil)
	_, err = parsePage(over)
	assert.Error(t, err)
}

func TestGetByID_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/students/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, decode[map[string]any](t, resp))
}

func TestUpdate_KeepsID(t *testing.T) {
	srv := newTestServer(t)

	created := decode[types.Student](t, doJSON(t, http.MethodPost, srv.URL+"/students", validStudent()))

	change := created
	change.ID = "other"
	change.Country = "France"

	resp := doJSON(t, http.MethodPut, srv.URL+"/students/"+created.ID, change)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decode[types.Student](t, resp)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "France", updated.Country)
	assert.Equal(t, created.FirstName, updated.FirstName)

	missing := doJSON(t, http.MethodPut, srv.URL+"/students/missing", change)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestDelete(t *testing.T) {
	srv := newTestServer(t)

	created := decode[types.Student](t, doJSON(t, http.MethodPost, srv.URL+"/students", validStudent()))

	resp := doJSON(t, http.MethodDelete, srv.URL+"/students/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[map[string]any](t, resp))

	list := decode[[]types.Student](t, doJSON(t, http.MethodGet, srv.URL+"/students", nil))
	assert.Empty(t, list)

	again := doJSON(t, http.MethodDelete, srv.URL+"/students/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, again.StatusCode)
}
