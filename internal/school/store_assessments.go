package school

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mind-engage/prestasi/internal/db"
)

const (
	MinValue = 0.0
	MaxValue = 100.0
)

// ValidValue reports whether v is within the assessment scale.
func ValidValue(v float64) bool { return v >= MinValue && v <= MaxValue }

const assessmentJoin = `SELECT a.id, a.student_id, a.criterion_id, a.value,
	s.id, s.name, s.nis, s.class, s.guardian_name, s.address, s.created_at,
	c.id, c.name, c.weight, c.type
	FROM assessments a
	JOIN students s ON s.id = a.student_id
	JOIN criteria c ON c.id = a.criterion_id`

func scanAssessmentJoined(r rowScanner) (Assessment, error) {
	var a Assessment
	var st Student
	var c Criterion
	var typ string
	err := r.Scan(&a.ID, &a.StudentID, &a.CriterionID, &a.Value,
		&st.ID, &st.Name, &st.NIS, &st.Class, &st.GuardianName, &st.Address, &st.CreatedAt,
		&c.ID, &c.Name, &c.Weight, &typ)
	if err != nil {
		return Assessment{}, err
	}
	c.Type = Polarity(typ)
	a.Student, a.Criterion = &st, &c
	return a, nil
}

func assessmentErr(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return &DuplicateKeyError{Entity: "assessment", Field: "student and criterion"}
	case db.IsForeignKeyViolation(err):
		return ErrInvalidReference
	}
	return err
}

func checkRefs(ctx context.Context, tx *sql.Tx, studentID, criterionID int64) error {
	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM students WHERE id=$1`, studentID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidReference
		}
		return err
	}
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM criteria WHERE id=$1`, criterionID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidReference
		}
		return err
	}
	return nil
}

func (s *SQLStore) CreateAssessment(ctx context.Context, a Assessment) (Assessment, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkRefs(ctx, tx, a.StudentID, a.CriterionID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO assessments (student_id, criterion_id, value) VALUES ($1,$2,$3) RETURNING id`,
			a.StudentID, a.CriterionID, a.Value).Scan(&a.ID)
		if err != nil {
			return assessmentErr(err)
		}
		return s.record(ctx, tx, "AssessmentCreated", a.ID, a)
	})
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAssessment(ctx context.Context, id int64) (Assessment, error) {
	a, err := scanAssessmentJoined(s.db.QueryRowContext(ctx, assessmentJoin+` WHERE a.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Assessment{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) ListAssessments(ctx context.Context) ([]Assessment, error) {
	return s.queryJoined(ctx, assessmentJoin+` ORDER BY a.id`)
}

func (s *SQLStore) ListStudentAssessments(ctx context.Context, studentID int64) ([]Assessment, error) {
	if _, err := s.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.queryJoined(ctx, assessmentJoin+` WHERE a.student_id=$1 ORDER BY c.name, a.id`, studentID)
}

func (s *SQLStore) queryJoined(ctx context.Context, q string, args ...any) ([]Assessment, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assessment{}
	for rows.Next() {
		a, err := scanAssessmentJoined(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateAssessment(ctx context.Context, a Assessment) (Assessment, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkRefs(ctx, tx, a.StudentID, a.CriterionID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE assessments SET student_id=$1, criterion_id=$2, value=$3 WHERE id=$4`,
			a.StudentID, a.CriterionID, a.Value, a.ID)
		if err != nil {
			return assessmentErr(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.record(ctx, tx, "AssessmentUpdated", a.ID, a)
	})
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

func (s *SQLStore) DeleteAssessment(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.record(ctx, tx, "AssessmentDeleted", id, nil)
	})
}

// UpsertStudentAssessments writes every usable item for one student. Items without a criterion,
// without a value, with a value off the scale or naming an unknown criterion are skipped.
func (s *SQLStore) UpsertStudentAssessments(ctx context.Context, studentID int64, items []AssessmentInput) (BatchResult, error) {
	out := BatchResult{Results: []Assessment{}, Total: len(items)}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM students WHERE id=$1`, studentID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		for _, it := range items {
			if it.CriterionID == 0 || it.Value == nil || !ValidValue(*it.Value) {
				continue
			}
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM criteria WHERE id=$1`, it.CriterionID).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return err
			}
			a := Assessment{StudentID: studentID, CriterionID: it.CriterionID, Value: *it.Value}
			err = tx.QueryRowContext(ctx,
				`INSERT INTO assessments (student_id, criterion_id, value) VALUES ($1,$2,$3)
				 ON CONFLICT (student_id, criterion_id) DO UPDATE SET value=EXCLUDED.value
				 RETURNING id`,
				a.StudentID, a.CriterionID, a.Value).Scan(&a.ID)
			if err != nil {
				return assessmentErr(err)
			}
			out.Results = append(out.Results, a)
		}
		out.Processed = len(out.Results)
		return s.record(ctx, tx, "AssessmentsBatchSaved", studentID, map[string]int{
			"processed": out.Processed,
			"total":     out.Total,
		})
	})
	if err != nil {
		return BatchResult{}, err
	}
	return out, nil
}

// AllAssessments is the ranking snapshot without joined entities.
func (s *SQLStore) AllAssessments(ctx context.Context) ([]Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, student_id, criterion_id, value FROM assessments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assessment{}
	for rows.Next() {
		var a Assessment
		if err := rows.Scan(&a.ID, &a.StudentID, &a.CriterionID, &a.Value); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
