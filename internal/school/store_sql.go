package school

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/prestasi/internal/db"
	syncx "github.com/mind-engage/prestasi/internal/sync"
)

type SQLStore struct {
	db     *sql.DB
	events *syncx.EventRepo
}

func NewSQLStore(sqlDB *sql.DB, events *syncx.EventRepo) *SQLStore {
	if events == nil {
		events = syncx.NewEventRepo(sqlDB)
	}
	return &SQLStore{db: sqlDB, events: events}
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

func (s *SQLStore) record(ctx context.Context, tx *sql.Tx, typ string, id int64, payload any) error {
	return s.events.Append(ctx, tx, eventFor(typ, strconv.FormatInt(id, 10), payload))
}

func eventFor(typ, key string, payload any) syncx.Event {
	return syncx.Event{Type: typ, Key: key, Data: syncx.Payload(payload)}
}

// DataVersion is the newest event sequence. Every mutation appends an event, so the value moves on any write.
func (s *SQLStore) DataVersion(ctx context.Context) (int64, error) {
	return s.events.Latest(ctx)
}

func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

/* ---------- users ---------- */

const userCols = `id, name, username, role, password_hash, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (User, error) {
	var u User
	var role string
	if err := r.Scan(&u.ID, &u.Name, &u.Username, &role, &u.PasswordHash, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	u.CreatedAt = time.Now().Unix()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (name, username, password_hash, role, created_at)
			 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			u.Name, u.Username, u.PasswordHash, string(u.Role), u.CreatedAt).Scan(&u.ID)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return &DuplicateKeyError{Entity: "user", Field: "username"}
			}
			return err
		}
		return s.record(ctx, tx, "UserCreated", u.ID, map[string]any{"username": u.Username, "role": u.Role})
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username=$1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *SQLStore) ListUsers(ctx context.Context, opts ListOpts) ([]User, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	where := []string{}
	args := []any{}
	if opts.Q != "" {
		args = append(args, likePattern(opts.Q))
		n := strconv.Itoa(len(args))
		where = append(where, `(LOWER(name) LIKE $`+n+` ESCAPE '\' OR LOWER(username) LIKE $`+n+` ESCAPE '\')`)
	}
	if opts.Role != "" {
		args = append(args, string(opts.Role))
		where = append(where, `role=$`+strconv.Itoa(len(args)))
	}
	q := `SELECT ` + userCols + ` FROM users`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	q += ` ORDER BY name, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateUser(ctx context.Context, u User) (User, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var res sql.Result
		var err error
		if u.PasswordHash != "" {
			res, err = tx.ExecContext(ctx,
				`UPDATE users SET name=$1, username=$2, role=$3, password_hash=$4 WHERE id=$5`,
				u.Name, u.Username, string(u.Role), u.PasswordHash, u.ID)
		} else {
			res, err = tx.ExecContext(ctx,
				`UPDATE users SET name=$1, username=$2, role=$3 WHERE id=$4`,
				u.Name, u.Username, string(u.Role), u.ID)
		}
		if err != nil {
			if db.IsUniqueViolation(err) {
				return &DuplicateKeyError{Entity: "user", Field: "username"}
			}
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.record(ctx, tx, "UserUpdated", u.ID, map[string]any{
			"username":         u.Username,
			"role":             u.Role,
			"password_changed": u.PasswordHash != "",
		})
	})
	if err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, u.ID)
}

func (s *SQLStore) SetPassword(ctx context.Context, id int64, hash string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.record(ctx, tx, "UserPasswordChanged", id, nil)
	})
}

func (s *SQLStore) DeleteUser(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.record(ctx, tx, "UserDeleted", id, nil)
	})
}

func (s *SQLStore) CountUsersByRole(ctx context.Context, role Role) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, string(role)).Scan(&n)
	return n, err
}

func (s *SQLStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
