package school

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mind-engage/prestasi/internal/db"
)

const criterionCols = `id, name, weight, type`

func scanCriterion(r rowScanner) (Criterion, error) {
	var c Criterion
	var typ string
	if err := r.Scan(&c.ID, &c.Name, &c.Weight, &typ); err != nil {
		return Criterion{}, err
	}
	c.Type = Polarity(typ)
	return c, nil
}

func criterionDup(err error) error {
	if db.IsUniqueViolation(err) {
		return &DuplicateKeyError{Entity: "criterion", Field: "name"}
	}
	return err
}

func (s *SQLStore) CreateCriterion(ctx context.Context, c Criterion) (Criterion, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO criteria (name, weight, type) VALUES ($1,$2,$3) RETURNING id`,
			c.Name, c.Weight, string(c.Type)).Scan(&c.ID)
		if err != nil {
			return criterionDup(err)
		}
		return s.record(ctx, tx, "CriterionCreated", c.ID, c)
	})
	if err != nil {
		return Criterion{}, err
	}
	return c, nil
}

func (s *SQLStore) GetCriterion(ctx context.Context, id int64) (Criterion, error) {
	c, err := scanCriterion(s.db.QueryRowContext(ctx, `SELECT `+criterionCols+` FROM criteria WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Criterion{}, ErrNotFound
	}
	return c, err
}

func (s *SQLStore) ListCriteria(ctx context.Context) ([]Criterion, error) {
	return s.queryCriteria(ctx, `SELECT `+criterionCols+` FROM criteria ORDER BY id`)
}

func (s *SQLStore) AllCriteria(ctx context.Context) ([]Criterion, error) {
	return s.ListCriteria(ctx)
}

func (s *SQLStore) queryCriteria(ctx context.Context, q string, args ...any) ([]Criterion, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Criterion{}
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateCriterion(ctx context.Context, c Criterion) (Criterion, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE criteria SET name=$1, weight=$2, type=$3 WHERE id=$4`,
			c.Name, c.Weight, string(c.Type), c.ID)
		if err != nil {
			return criterionDup(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.record(ctx, tx, "CriterionUpdated", c.ID, c)
	})
	if err != nil {
		return Criterion{}, err
	}
	return c, nil
}

func (s *SQLStore) DeleteCriterion(ctx context.Context, id int64) (deleted Criterion, cascaded int, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := scanCriterion(tx.QueryRowContext(ctx, `SELECT `+criterionCols+` FROM criteria WHERE id=$1`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE criterion_id=$1`, id)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		if _, err := tx.ExecContext(ctx, `DELETE FROM criteria WHERE id=$1`, id); err != nil {
			return err
		}
		deleted, cascaded = c, int(n)
		return s.record(ctx, tx, "CriterionDeleted", id, map[string]any{
			"name":                c.Name,
			"deleted_assessments": cascaded,
		})
	})
	if err != nil {
		return Criterion{}, 0, err
	}
	return deleted, cascaded, nil
}
