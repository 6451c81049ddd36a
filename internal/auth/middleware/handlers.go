package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/logging"
	"github.com/mind-engage/prestasi/internal/school"
)

// BcryptCost is the work factor for new password hashes.
var BcryptCost = 12

const MinPasswordLen = 6

type UserStore interface {
	UserGetter
	GetUserByUsername(ctx context.Context, username string) (school.User, error)
	CreateUser(ctx context.Context, u school.User) (school.User, error)
	UpdateUser(ctx context.Context, u school.User) (school.User, error)
	CountUsers(ctx context.Context) (int, error)
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), BcryptCost)
	return string(b), err
}

// dummyHash keeps the unknown-user path about as slow as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("prestasi-timing"), bcrypt.MinCost)

type CookieOptions struct {
	Secure bool
	Path   string
}

func setSessionCookie(w http.ResponseWriter, opts CookieOptions, token string, exp time.Time) {
	path := opts.Path
	if path == "" {
		path = "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     path,
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type sessionResponse struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expires_at"`
	User      school.User `json:"user"`
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, users UserStore, lim *LoginLimiter, cookie CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !lim.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			httpx.Error(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
			return
		}
		var req struct {
			Username string `json:"username" validate:"required"`
			Password string `json:"password" validate:"required"`
		}
		if !httpx.Decode(w, r, &req) {
			return
		}
		log := logging.FromContext(r.Context())

		u, err := users.GetUserByUsername(r.Context(), req.Username)
		if err != nil && !errors.Is(err, school.ErrNotFound) {
			log.Error("login lookup", zap.Error(err))
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err != nil {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			httpx.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			log.Info("login failed", zap.String("username", req.Username))
			httpx.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		tok, exp, err := a.IssueJWT(u)
		if err != nil {
			log.Error("issue token", zap.Error(err))
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		setSessionCookie(w, cookie, tok, exp)
		u.PasswordHash = ""
		httpx.JSON(w, http.StatusOK, sessionResponse{Message: "Login successful", Token: tok, ExpiresAt: exp.Unix(), User: u})
	}
}

// POST /auth/logout
func LogoutHandler(cookie CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := cookie.Path
		if path == "" {
			path = "/"
		}
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cookie.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		httpx.Message(w, http.StatusOK, "Logout successful")
	}
}

// GET /auth/me
func MeHandler(users UserGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		u, err := users.GetUser(r.Context(), p.UserID)
		if errors.Is(err, school.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			logging.FromContext(r.Context()).Error("me", zap.Error(err))
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		u.PasswordHash = ""
		httpx.JSON(w, http.StatusOK, map[string]any{
			"user":         u,
			"role_display": u.Role.DisplayName(),
		})
	}
}

// PUT /auth/profile  { "name", "username", "current_password"?, "new_password"? }
func ProfileHandler(a *AuthService, users UserStore, cookie CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		var req struct {
			Name            string `json:"name" validate:"required,notblank"`
			Username        string `json:"username" validate:"required,notblank"`
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		if !httpx.Decode(w, r, &req) {
			return
		}
		log := logging.FromContext(r.Context())

		u, err := users.GetUser(r.Context(), p.UserID)
		if errors.Is(err, school.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			log.Error("profile load", zap.Error(err))
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		upd := school.User{ID: u.ID, Name: req.Name, Username: req.Username, Role: u.Role}
		if req.NewPassword != "" {
			if req.CurrentPassword == "" {
				httpx.Error(w, http.StatusBadRequest, "Current password is required to change password")
				return
			}
			if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
				httpx.Error(w, http.StatusBadRequest, "Current password is incorrect")
				return
			}
			if len(req.NewPassword) < MinPasswordLen {
				httpx.Error(w, http.StatusBadRequest, "New password must be at least 6 characters long")
				return
			}
			if upd.PasswordHash, err = HashPassword(req.NewPassword); err != nil {
				log.Error("hash password", zap.Error(err))
				httpx.Error(w, http.StatusInternalServerError, "Internal server error")
				return
			}
		}

		saved, err := users.UpdateUser(r.Context(), upd)
		if school.IsDuplicate(err) {
			httpx.Error(w, http.StatusConflict, "Username already exists")
			return
		}
		if err != nil {
			log.Error("profile update", zap.Error(err))
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		tok, exp, err := a.IssueJWT(saved)
		if err != nil {
			log.Error("issue token", zap.Error(err))
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		setSessionCookie(w, cookie, tok, exp)
		saved.PasswordHash = ""
		httpx.JSON(w, http.StatusOK, sessionResponse{Message: "Profile updated successfully", Token: tok, ExpiresAt: exp.Unix(), User: saved})
	}
}

// POST /auth/register  { "name", "username", "password", "role" }
func RegisterHandler(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name" validate:"required,notblank"`
			Username string `json:"username" validate:"required,notblank"`
			Password string `json:"password" validate:"required,min=6"`
			Role     string `json:"role" validate:"required,oneof=admin guru kepala_sekolah"`
		}
		if !httpx.Decode(w, r, &req) {
			return
		}
		log := logging.FromContext(r.Context())
		hash, err := HashPassword(req.Password)
		if err != nil {
			log.Error("hash password", zap.Error(err))
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		u, err := users.CreateUser(r.Context(), school.User{
			Name:         req.Name,
			Username:     req.Username,
			Role:         school.Role(req.Role),
			PasswordHash: hash,
		})
		if school.IsDuplicate(err) {
			httpx.Error(w, http.StatusConflict, "Username already exists")
			return
		}
		if err != nil {
			log.Error("register", zap.Error(err))
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		u.PasswordHash = ""
		httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Registration successful", "user": u})
	}
}

// SeedAdmin creates the first administrator when no users exist. It reports whether a user was created.
func SeedAdmin(ctx context.Context, users UserStore, username, password, name string) (bool, error) {
	n, err := users.CountUsers(ctx)
	if err != nil || n > 0 {
		return false, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	if name == "" {
		name = school.RoleAdmin.DisplayName()
	}
	_, err = users.CreateUser(ctx, school.User{Name: name, Username: username, Role: school.RoleAdmin, PasswordHash: hash})
	return err == nil, err
}
