package auth

import (
	"context"
	"strconv"

	"github.com/mind-engage/prestasi/internal/school"
)

// Principal is the authenticated caller. It is stored by value so handlers cannot alter it.
type Principal struct {
	UserID   int64       `json:"id"`
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Role     school.Role `json:"role"`
}

func (p Principal) Subject() string { return strconv.FormatInt(p.UserID, 10) }

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}
