package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"FleetStock/internal/model"
)

// CookieName — имя cookie с JWT сессии.
const CookieName = "auth_token"

// sessionTTL ограничивает срок жизни сессии после логина по PIN.
const sessionTTL = 24 * time.Hour

type sessionClaims struct {
	jwt.RegisteredClaims
	PIN        string `json:"pin"`
	Name       string `json:"name"`
	TruckID    string `json:"truck"`
	IsOwner    bool   `json:"isOwner"`
	CanEditPIN bool   `json:"canEditPin"`
}

type contextKey string

const userContextKey contextKey = "session_user"

// SetLoginCookie выпускает JWT для пользователя и ставит cookie.
func SetLoginCookie(w http.ResponseWriter, user model.User, secret string) error {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		PIN:        user.PIN,
		Name:       user.Name,
		TruckID:    user.TruckID,
		IsOwner:    user.IsOwner,
		CanEditPIN: user.CanEditPIN,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearLoginCookie снимает сессионную cookie (logout).
func ClearLoginCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// WithAuth проверяет cookie и кладёт пользователя в контекст. Анонимные
// запросы проходят дальше: обязательность аутентификации решает хендлер.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			claims := &sessionClaims{}
			token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				next.ServeHTTP(w, r)
				return
			}

			user := model.User{
				PIN:        claims.PIN,
				Name:       claims.Name,
				TruckID:    claims.TruckID,
				IsOwner:    claims.IsOwner,
				CanEditPIN: claims.CanEditPIN,
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext возвращает пользователя сессии, если он установлен.
func GetUserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userContextKey).(model.User)
	return user, ok
}
