package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/dom/chatbot-web/internal/config"
)

const signedPrefix = "s:"

// SignCookieValue appends an HMAC-SHA256 signature in the "s:<value>.<sig>"
// signed-cookie format.
func SignCookieValue(value, secret string) string {
	return signedPrefix + value + "." + signature(value, secret)
}

// UnsignCookieValue returns the original value if the signature matches.
func UnsignCookieValue(signed, secret string) (string, bool) {
	if !strings.HasPrefix(signed, signedPrefix) {
		return "", false
	}
	body := strings.TrimPrefix(signed, signedPrefix)

	dot := strings.LastIndex(body, ".")
	if dot < 0 {
		return "", false
	}
	value, sig := body[:dot], body[dot+1:]

	if !hmac.Equal([]byte(sig), []byte(signature(value, secret))) {
		return "", false
	}
	return value, true
}

func signature(value, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}

// SetSessionCookie writes the signed session cookie expiring with the token.
func SetSessionCookie(w http.ResponseWriter, cfg *config.Config, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    SignCookieValue(token, cfg.CookieSecret),
		Path:     "/",
		Domain:   cfg.CookieDomain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter, cfg *config.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.CookieDomain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
