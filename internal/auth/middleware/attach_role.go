package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/logging"
	"github.com/mind-engage/prestasi/internal/school"
	"go.uber.org/zap"
)

type UserGetter interface {
	GetUser(ctx context.Context, id int64) (school.User, error)
}

// AttachRoleFromStore makes the stored user authoritative over the token: a demoted user loses
// permissions on the next request and a deleted user is rejected. Runs after JWTMiddleware.
func AttachRoleFromStore(users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			u, err := users.GetUser(r.Context(), p.UserID)
			switch {
			case errors.Is(err, school.ErrNotFound):
				httpx.Error(w, http.StatusUnauthorized, "Account no longer exists")
				return
			case err != nil:
				logging.FromContext(r.Context()).Error("load principal", zap.Error(err))
				httpx.Error(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			fresh := Principal{UserID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
			next.ServeHTTP(w, Authenticate(r, fresh))
		})
	}
}
