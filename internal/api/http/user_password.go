package http

import (
	"net/http"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	authmw "github.com/mind-engage/prestasi/internal/auth/middleware"
	"github.com/mind-engage/prestasi/internal/school"
)

type resetPasswordReq struct {
	Password string `json:"password" validate:"required,min=6"`
}

// PUT /users/{id}/password
// Administrative reset; users change their own password through /auth/profile.
func ResetPasswordHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid User ID")
		if !ok {
			return
		}
		var req resetPasswordReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		hash, err := authmw.HashPassword(req.Password)
		if err != nil {
			internalError(w, r, "hash password", err)
			return
		}
		if err := store.SetPassword(r.Context(), id, hash); err != nil {
			storeError(w, r, err, "User not found")
			return
		}
		httpx.Message(w, http.StatusOK, "Password updated successfully")
	}
}
