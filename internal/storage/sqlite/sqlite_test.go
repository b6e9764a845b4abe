package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aanand-mishra/students-admin/internal/storage"
	"github.com/aanand-mishra/students-admin/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLite {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "students.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func sampleStudent(n int) types.Student {
	return types.Student{
		FirstName:  fmt.Sprintf("First%d", n),
		LastName:   fmt.Sprintf("Last%d", n),
		Email:      fmt.Sprintf("student%d@example.com", n),
		Gender:     types.GenderFemale,
		Country:    "Vietnam",
		Avatar:     "https://example.com/a.png",
		BTCAddress: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	in := sampleStudent(1)
	in.ID = "client-chosen"

	created, err := s.CreateStudent(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "client-chosen", created.ID)

	got, err := s.GetStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGetMissing(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetStudentByID(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListStudents_Pages(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 7; i++ {
		created, err := s.CreateStudent(ctx, sampleStudent(i))
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	page, total, err := s.ListStudents(ctx, storage.Page{Number: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, page, 3)
	assert.Equal(t, ids[3:6], []string{page[0].ID, page[1].ID, page[2].ID})

	last, total, err := s.ListStudents(ctx, storage.Page{Number: 3, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, last, 1)
	assert.Equal(t, ids[6], last[0].ID)

	beyond, _, err := s.ListStudents(ctx, storage.Page{Number: 9, Limit: 3})
	require.NoError(t, err)
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)

	all, total, err := s.ListStudents(ctx, storage.Page{})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, all, 7)
}

func TestUpdateStudent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, sampleStudent(1))
	require.NoError(t, err)

	change := created
	change.ID = "ignored"
	change.Country = "Japan"
	change.Gender = types.GenderOther

	updated, err := s.UpdateStudentByID(ctx, created.ID, change)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Japan", updated.Country)
	assert.Equal(t, types.GenderOther, updated.Gender)
	assert.Equal(t, created.Email, updated.Email)

	_, err = s.UpdateStudentByID(ctx, "missing", change)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteStudent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, sampleStudent(1))
	require.NoError(t, err)

	require.NoError(t, s.DeleteStudentByID(ctx, created.ID))

	_, err = s.GetStudentByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.DeleteStudentByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
