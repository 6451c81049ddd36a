package school

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/prestasi/internal/db"
)

const studentCols = `id, name, nis, class, guardian_name, address, created_at`

func scanStudent(r rowScanner) (Student, error) {
	var st Student
	err := r.Scan(&st.ID, &st.Name, &st.NIS, &st.Class, &st.GuardianName, &st.Address, &st.CreatedAt)
	return st, err
}

func studentDup(err error) error {
	if db.IsUniqueViolation(err) {
		return &DuplicateKeyError{Entity: "student", Field: "NIS"}
	}
	return err
}

func (s *SQLStore) CreateStudent(ctx context.Context, st Student) (Student, error) {
	st.CreatedAt = time.Now().Unix()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertStudent(ctx, tx, &st); err != nil {
			return studentDup(err)
		}
		return s.record(ctx, tx, "StudentCreated", st.ID, st)
	})
	if err != nil {
		return Student{}, err
	}
	return st, nil
}

func insertStudent(ctx context.Context, tx *sql.Tx, st *Student) error {
	return tx.QueryRowContext(ctx,
		`INSERT INTO students (name, nis, class, guardian_name, address, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		st.Name, st.NIS, st.Class, st.GuardianName, st.Address, st.CreatedAt).Scan(&st.ID)
}

func (s *SQLStore) GetStudent(ctx context.Context, id int64) (Student, error) {
	st, err := scanStudent(s.db.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return st, err
}

func (s *SQLStore) ListStudents(ctx context.Context, opts ListOpts) ([]Student, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	where := []string{}
	args := []any{}
	if opts.Q != "" {
		args = append(args, likePattern(opts.Q))
		n := strconv.Itoa(len(args))
		where = append(where, `(LOWER(name) LIKE $`+n+` ESCAPE '\' OR LOWER(nis) LIKE $`+n+` ESCAPE '\')`)
	}
	if opts.Class != "" {
		args = append(args, opts.Class)
		where = append(where, `class=$`+strconv.Itoa(len(args)))
	}
	q := `SELECT ` + studentCols + ` FROM students`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	q += ` ORDER BY name, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	return s.queryStudents(ctx, q, args...)
}

func (s *SQLStore) queryStudents(ctx context.Context, q string, args ...any) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Student{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListClasses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT class FROM students WHERE class <> '' ORDER BY class`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE students SET name=$1, nis=$2, class=$3, guardian_name=$4, address=$5 WHERE id=$6`,
			st.Name, st.NIS, st.Class, st.GuardianName, st.Address, st.ID)
		if err != nil {
			return studentDup(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.record(ctx, tx, "StudentUpdated", st.ID, st)
	})
	if err != nil {
		return Student{}, err
	}
	return s.GetStudent(ctx, st.ID)
}

// DeleteStudent removes the student; its assessments go with it via ON DELETE CASCADE.
func (s *SQLStore) DeleteStudent(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.record(ctx, tx, "StudentDeleted", id, nil)
	})
}

// ImportStudents upserts rows by NIS in a single transaction; any failure rolls the whole batch back.
func (s *SQLStore) ImportStudents(ctx context.Context, rows []Student) (res ImportResult, err error) {
	now := time.Now().Unix()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			var id int64
			err := tx.QueryRowContext(ctx, `SELECT id FROM students WHERE nis=$1`, r.NIS).Scan(&id)
			switch {
			case err == nil:
				if _, err := tx.ExecContext(ctx,
					`UPDATE students SET name=$1, class=$2, guardian_name=$3, address=$4 WHERE id=$5`,
					r.Name, r.Class, r.GuardianName, r.Address, id); err != nil {
					return err
				}
				res.Updated++
			case errors.Is(err, sql.ErrNoRows):
				r.CreatedAt = now
				if err := insertStudent(ctx, tx, &r); err != nil {
					return studentDup(err)
				}
				res.Inserted++
			default:
				return err
			}
		}
		return s.events.Append(ctx, tx, eventFor("StudentsImported", "bulk", res))
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

// AllStudents is the ranking snapshot: every student in insertion order.
func (s *SQLStore) AllStudents(ctx context.Context) ([]Student, error) {
	return s.queryStudents(ctx, `SELECT `+studentCols+` FROM students ORDER BY id`)
}
