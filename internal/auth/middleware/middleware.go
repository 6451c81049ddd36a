package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/rbac"
	"github.com/mind-engage/prestasi/internal/school"
	syncx "github.com/mind-engage/prestasi/internal/sync"
)

const (
	CookieName = "session"
	issuer     = "prestasi"
)

type AuthService struct {
	hmac []byte
	ttl  time.Duration
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{hmac: []byte(secret), ttl: ttl}
}

func (a *AuthService) TTL() time.Duration { return a.ttl }

type Claims struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueJWT signs a session token for u; sub is the user id.
func (a *AuthService) IssueJWT(u school.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(a.ttl)
	claims := &Claims{
		Role:     string(u.Role),
		Name:     u.Name,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(a.hmac)
	return s, exp, err
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// Principal converts verified claims into the request principal.
func (c *Claims) Principal() (Principal, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, errors.New("invalid subject")
	}
	role, ok := school.ParseRole(c.Role)
	if !ok {
		return Principal{}, errors.New("invalid role")
	}
	return Principal{UserID: id, Username: c.Username, Name: c.Name, Role: role}, nil
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate puts p into ctx together with its role and audit actor.
func Authenticate(r *http.Request, p Principal) *http.Request {
	ctx := WithPrincipal(r.Context(), p)
	ctx = rbac.WithRole(ctx, string(p.Role))
	ctx = syncx.WithActor(ctx, p.Username)
	return r.WithContext(ctx)
}

// JWTMiddleware accepts a bearer token or the session cookie.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := tokenFromRequest(r)
			if tok == "" {
				httpx.Error(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			claims, err := a.Parse(tok)
			if err != nil {
				httpx.Error(w, http.StatusUnauthorized, "Invalid session")
				return
			}
			p, err := claims.Principal()
			if err != nil {
				httpx.Error(w, http.StatusUnauthorized, "Invalid session data")
				return
			}
			next.ServeHTTP(w, Authenticate(r, p))
		})
	}
}
