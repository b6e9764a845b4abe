// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aanand-mishra/students-admin/internal/storage"
	"github.com/aanand-mishra/students-admin/internal/types"
	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at path, creates the students table if it
// does not already exist, and returns a ready-to-use *SQLite.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// seq keeps insertion order stable; ids are random UUIDs.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT    NOT NULL UNIQUE,
			first_name  TEXT    NOT NULL,
			last_name   TEXT    NOT NULL,
			email       TEXT    NOT NULL,
			gender      TEXT    NOT NULL,
			country     TEXT    NOT NULL,
			avatar      TEXT    NOT NULL DEFAULT '',
			btc_address TEXT    NOT NULL
		)
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close releases the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// CreateStudent inserts a new row with a freshly generated id.
func (s *SQLite) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		INSERT INTO students (id, first_name, last_name, email, gender, country, avatar, btc_address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	student.ID = uuid.NewString()

	_, err = stmt.ExecContext(ctx,
		student.ID,
		student.FirstName,
		student.LastName,
		student.Email,
		string(student.Gender),
		student.Country,
		student.Avatar,
		student.BTCAddress,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	return student, nil
}

// GetStudentByID fetches exactly one student row matched by id.
func (s *SQLite) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		SELECT id, first_name, last_name, email, gender, country, avatar, btc_address
		FROM students WHERE id = ? LIMIT 1`,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	student, err := scanStudent(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, fmt.Errorf("no student found with id %s: %w", id, storage.ErrNotFound)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

// ListStudents returns one page of students in insertion order plus the
// total row count.
func (s *SQLite) ListStudents(ctx context.Context, page storage.Page) ([]types.Student, int, error) {
	var total int
	if err := s.Db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListStudents: count: %w", err)
	}

	query := `
		SELECT id, first_name, last_name, email, gender, country, avatar, btc_address
		FROM students ORDER BY seq`
	args := []any{}
	if !page.All() {
		query += " LIMIT ? OFFSET ?"
		args = append(args, page.Limit, page.Offset())
	}

	rows, err := s.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)

	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListStudents: scan row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListStudents: rows iteration: %w", err)
	}

	return students, total, nil
}

// UpdateStudentByID replaces a student's data with the provided values.
// The id column is never written.
func (s *SQLite) UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		UPDATE students
		SET first_name = ?, last_name = ?, email = ?, gender = ?, country = ?, avatar = ?, btc_address = ?
		WHERE id = ?`,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		student.FirstName,
		student.LastName,
		student.Email,
		string(student.Gender),
		student.Country,
		student.Avatar,
		student.BTCAddress,
		id,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}

	if err := expectOneRow(result, id); err != nil {
		return types.Student{}, err
	}

	return s.GetStudentByID(ctx, id)
}

// DeleteStudentByID removes a student row by id.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id string) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM students WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}

	return expectOneRow(result, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (types.Student, error) {
	var (
		student types.Student
		gender  string
	)

	err := row.Scan(
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.Email,
		&gender,
		&student.Country,
		&student.Avatar,
		&student.BTCAddress,
	)
	student.Gender = types.Gender(gender)

	return student, err
}

func expectOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no student found with id %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
