// Package postgres implements storage.Storage on PostgreSQL through a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aanand-mishra/students-admin/internal/storage"
	"github.com/aanand-mishra/students-admin/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const studentColumns = "id, first_name, last_name, email, gender, country, avatar, btc_address"

type Storage struct {
	pool *pgxpool.Pool
}

var _ storage.Storage = (*Storage)(nil)

// New connects to dsn and makes sure the students table exists.
func New(ctx context.Context, dsn string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS students (
			seq         BIGSERIAL PRIMARY KEY,
			id          UUID NOT NULL UNIQUE,
			first_name  TEXT NOT NULL,
			last_name   TEXT NOT NULL,
			email       TEXT NOT NULL,
			gender      TEXT NOT NULL,
			country     TEXT NOT NULL,
			avatar      TEXT NOT NULL DEFAULT '',
			btc_address TEXT NOT NULL
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: create table: %w", err)
	}

	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	student.ID = uuid.NewString()

	query := `
	INSERT INTO students (` + studentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
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
		return types.Student{}, fmt.Errorf("CreateStudent: %w", err)
	}

	return student, nil
}

func (s *Storage) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Student{}, fmt.Errorf("no student found with id %s: %w", id, storage.ErrNotFound)
	}

	query := `SELECT id::text, first_name, last_name, email, gender, country, avatar, btc_address
	FROM students WHERE id = $1`

	student, err := scanStudent(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Student{}, fmt.Errorf("no student found with id %s: %w", id, storage.ErrNotFound)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: %w", err)
	}

	return student, nil
}

func (s *Storage) ListStudents(ctx context.Context, page storage.Page) ([]types.Student, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListStudents: count: %w", err)
	}

	query := `SELECT id::text, first_name, last_name, email, gender, country, avatar, btc_address
	FROM students ORDER BY seq`
	args := []any{}
	if !page.All() {
		query += " LIMIT $1 OFFSET $2"
		args = append(args, page.Limit, page.Offset())
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *Storage) UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Student{}, fmt.Errorf("no student found with id %s: %w", id, storage.ErrNotFound)
	}

	query := `
	UPDATE students
	SET first_name = $1, last_name = $2, email = $3, gender = $4, country = $5, avatar = $6, btc_address = $7
	WHERE id = $8
	`

	tag, err := s.pool.Exec(ctx, query,
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
		return types.Student{}, fmt.Errorf("UpdateStudentByID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.Student{}, fmt.Errorf("no student found with id %s: %w", id, storage.ErrNotFound)
	}

	return s.GetStudentByID(ctx, id)
}

func (s *Storage) DeleteStudentByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("no student found with id %s: %w", id, storage.ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no student found with id %s: %w", id, storage.ErrNotFound)
	}

	return nil
}

func scanStudent(row pgx.Row) (types.Student, error) {
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
