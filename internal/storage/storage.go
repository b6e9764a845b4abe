// Package storage defines the Storage interface, a contract that any
// database backend must satisfy to serve the students resource.
//
// Handlers depend only on this interface, so the SQLite and PostgreSQL
// backends are interchangeable and tests can run against either one.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/students-admin/internal/types"
)

// ErrNotFound is returned when no student matches the requested id.
var ErrNotFound = errors.New("student not found")

// Page selects a window of the students collection. A zero Page selects
// every record.
type Page struct {
	Number int // 1-based page number
	Limit  int // records per page
}

// Offset returns the number of records that precede the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// All reports whether the page selects the whole collection.
func (p Page) All() bool {
	return p.Limit < 1
}

// Storage is the database contract.
type Storage interface {
	// CreateStudent inserts a new student and returns it with the id the
	// backend assigned. Any id already present on student is ignored.
	CreateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// GetStudentByID fetches a single student. Returns ErrNotFound when
	// the id is unknown.
	GetStudentByID(ctx context.Context, id string) (types.Student, error)

	// ListStudents returns the requested page in insertion order together
	// with the total number of students. The slice is never nil.
	ListStudents(ctx context.Context, page Page) ([]types.Student, int, error)

	// UpdateStudentByID replaces every field of an existing student except
	// its id. Returns the stored record or ErrNotFound.
	UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error)

	// DeleteStudentByID removes a student permanently. Returns ErrNotFound
	// when the id is unknown.
	DeleteStudentByID(ctx context.Context, id string) error

	Close() error
}
