package http

import (
	"net/http"
	"strings"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	authmw "github.com/mind-engage/prestasi/internal/auth/middleware"
	"github.com/mind-engage/prestasi/internal/school"
)

type createUserReq struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Username string `json:"username" validate:"required,notblank,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin guru kepala_sekolah"`
}

type updateUserReq struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Username string `json:"username" validate:"required,notblank,max=50"`
	Password string `json:"password" validate:"omitempty,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin guru kepala_sekolah"`
}

// GET /users?q=&role=&limit=&offset=
func ListUsersHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := listOpts(r)
		opts.Class = ""
		if v := r.URL.Query().Get("role"); v != "" {
			role, ok := school.ParseRole(v)
			if !ok {
				httpx.Error(w, http.StatusBadRequest, "Invalid role")
				return
			}
			opts.Role = role
		}
		users, err := store.ListUsers(r.Context(), opts)
		if err != nil {
			internalError(w, r, "list users", err)
			return
		}
		httpx.JSON(w, http.StatusOK, users)
	}
}

// GET /users/{id}
func GetUserHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid User ID")
		if !ok {
			return
		}
		u, err := store.GetUser(r.Context(), id)
		if err != nil {
			storeError(w, r, err, "User not found")
			return
		}
		httpx.JSON(w, http.StatusOK, u)
	}
}

// POST /users
func CreateUserHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		hash, err := authmw.HashPassword(req.Password)
		if err != nil {
			internalError(w, r, "hash password", err)
			return
		}
		u, err := store.CreateUser(r.Context(), school.User{
			Name:         strings.TrimSpace(req.Name),
			Username:     strings.TrimSpace(req.Username),
			Role:         school.Role(req.Role),
			PasswordHash: hash,
		})
		if err != nil {
			storeError(w, r, err, "User not found")
			return
		}
		httpx.JSON(w, http.StatusCreated, u)
	}
}

// PUT /users/{id}
// An admin cannot be demoted while they are the only one left.
func UpdateUserHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid User ID")
		if !ok {
			return
		}
		var req updateUserReq
		if !httpx.Decode(w, r, &req) {
			return
		}
		cur, err := store.GetUser(r.Context(), id)
		if err != nil {
			storeError(w, r, err, "User not found")
			return
		}
		role := school.Role(req.Role)
		if cur.Role == school.RoleAdmin && role != school.RoleAdmin {
			if last, err := lastAdmin(r, store); err != nil {
				internalError(w, r, "count admins", err)
				return
			} else if last {
				httpx.Error(w, http.StatusBadRequest, "Cannot demote the last admin")
				return
			}
		}

		upd := school.User{
			ID:       id,
			Name:     strings.TrimSpace(req.Name),
			Username: strings.TrimSpace(req.Username),
			Role:     role,
		}
		if req.Password != "" {
			if upd.PasswordHash, err = authmw.HashPassword(req.Password); err != nil {
				internalError(w, r, "hash password", err)
				return
			}
		}
		u, err := store.UpdateUser(r.Context(), upd)
		if err != nil {
			storeError(w, r, err, "User not found")
			return
		}
		u.PasswordHash = ""
		httpx.JSON(w, http.StatusOK, u)
	}
}

// DELETE /users/{id}
func DeleteUserHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "Invalid User ID")
		if !ok {
			return
		}
		if p, ok := authmw.PrincipalFromContext(r.Context()); ok && p.UserID == id {
			httpx.Error(w, http.StatusBadRequest, "You cannot delete your own account")
			return
		}
		cur, err := store.GetUser(r.Context(), id)
		if err != nil {
			storeError(w, r, err, "User not found")
			return
		}
		if cur.Role == school.RoleAdmin {
			if last, err := lastAdmin(r, store); err != nil {
				internalError(w, r, "count admins", err)
				return
			} else if last {
				httpx.Error(w, http.StatusBadRequest, "Cannot delete the last admin")
				return
			}
		}
		if err := store.DeleteUser(r.Context(), id); err != nil {
			storeError(w, r, err, "User not found")
			return
		}
		httpx.Message(w, http.StatusOK, "User deleted successfully")
	}
}

func lastAdmin(r *http.Request, store school.Store) (bool, error) {
	n, err := store.CountUsersByRole(r.Context(), school.RoleAdmin)
	return n <= 1, err
}
