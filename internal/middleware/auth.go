// Package middleware содержит HTTP middleware сервиса статистики.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const terminalIDKey contextKey = "terminalID"

const (
	authCookieName = "terminal_token"
	authCookieTTL  = 30 * 24 * time.Hour
)

// TerminalAuth проверяет, что запрос пришёл от авторизованного кассового терминала.
// Терминал получает подписанный cookie, предъявив общий секрет площадки.
type TerminalAuth struct {
	secret    []byte
	secretKey []byte
}

// NewTerminalAuth создаёт middleware аутентификации терминалов.
// При пустом секрете вход терминалов невозможен.
func NewTerminalAuth(secret string) *TerminalAuth {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		key = []byte("campstats-terminal-key")
	}
	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte("terminal-cookie"))
		key = mac.Sum(nil)
	}

	return &TerminalAuth{
		secret:    []byte(secret),
		secretKey: key,
	}
}

// CheckSecret сравнивает предъявленный секрет с секретом площадки.
func (a *TerminalAuth) CheckSecret(secret string) bool {
	if len(a.secret) == 0 {
		return false
	}
	return hmac.Equal([]byte(secret), a.secret)
}

// Middleware проверяет cookie терминала и добавляет его идентификатор в контекст запроса.
func (a *TerminalAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		terminalID, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), terminalIDKey, terminalID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie устанавливает cookie авторизации для указанного терминала.
func (a *TerminalAuth) SetAuthCookie(w http.ResponseWriter, terminalID string) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    terminalID + "." + a.sign(terminalID),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *TerminalAuth) sign(terminalID string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(terminalID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *TerminalAuth) parseCookie(value string) (string, bool) {
	i := strings.LastIndex(value, ".")
	if i <= 0 {
		return "", false
	}

	terminalID, signature := value[:i], value[i+1:]
	if !hmac.Equal([]byte(signature), []byte(a.sign(terminalID))) {
		return "", false
	}

	return terminalID, true
}

// TerminalIDFromContext извлекает идентификатор терминала из контекста запроса.
func TerminalIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(terminalIDKey).(string)
	return id, ok
}
