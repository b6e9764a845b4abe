package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aanand-mishra/students-admin/internal/types"
)

const (
	studentsPath     = "students"
	totalCountHeader = "X-Total-Count"
)

// StudentsPage is one page of the students collection.
type StudentsPage struct {
	Students []types.Student
	// TotalCount is the size of the whole collection, taken from the
	// X-Total-Count header.
	TotalCount int
}

// ListStudents fetches page (1-based) holding at most limit students.
func (c *Client) ListStudents(ctx context.Context, page, limit int) (StudentsPage, error) {
	query := url.Values{}
	query.Set("_page", strconv.Itoa(page))
	query.Set("_limit", strconv.Itoa(limit))

	resp, err := c.doRequest(ctx, http.MethodGet, studentsPath, query, nil)
	if err != nil {
		return StudentsPage{}, err
	}

	var students []types.Student
	if err := resp.decodeJSON(&students); err != nil {
		return StudentsPage{}, err
	}
	if students == nil {
		students = []types.Student{}
	}

	total, err := strconv.Atoi(resp.header.Get(totalCountHeader))
	if err != nil || total < len(students) {
		total = len(students)
	}

	return StudentsPage{Students: students, TotalCount: total}, nil
}

// GetStudent fetches one student. Returns ErrNotFound for unknown ids.
func (c *Client) GetStudent(ctx context.Context, id string) (types.Student, error) {
	path, err := studentPath(id)
	if err != nil {
		return types.Student{}, err
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return types.Student{}, err
	}

	var student types.Student
	if err := resp.decodeJSON(&student); err != nil {
		return types.Student{}, err
	}

	return student, nil
}

// AddStudent creates student and returns it with the id the API assigned.
// Any id on student is dropped before sending.
func (c *Client) AddStudent(ctx context.Context, student types.Student) (types.Student, error) {
	student.ID = ""

	resp, err := c.doRequest(ctx, http.MethodPost, studentsPath, nil, student)
	if err != nil {
		return types.Student{}, err
	}

	var created types.Student
	if err := resp.decodeJSON(&created); err != nil {
		return types.Student{}, err
	}

	return created, nil
}

// UpdateStudent replaces the student stored under id.
func (c *Client) UpdateStudent(ctx context.Context, id string, student types.Student) (types.Student, error) {
	path, err := studentPath(id)
	if err != nil {
		return types.Student{}, err
	}
	student.ID = id

	resp, err := c.doRequest(ctx, http.MethodPut, path, nil, student)
	if err != nil {
		return types.Student{}, err
	}

	var updated types.Student
	if err := resp.decodeJSON(&updated); err != nil {
		return types.Student{}, err
	}

	return updated, nil
}

// DeleteStudent removes the student stored under id.
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	path, err := studentPath(id)
	if err != nil {
		return err
	}

	_, err = c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// studentPath returns the path of one student. Ids that would resolve to a
// different resource once the path is cleaned are rejected.
func studentPath(id string) (string, error) {
	switch id {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return studentsPath + "/" + url.PathEscape(id), nil
}
