package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

// CSRFMiddleware implements the double-submit cookie pattern: a random
// csrf_token cookie is set on first contact, and every state-changing
// request must echo it back in the X-CSRF-Token header. Every POST, PUT,
// PATCH or DELETE on a wrapped route is rejected with 403 unless the header
// matches the cookie, bearer-token clients included.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("csrf_token")
		var token string

		if err != nil || cookie.Value == "" {
			token, err = randomToken(32)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     "csrf_token",
				Value:    token,
				Path:     "/",
				HttpOnly: false, // must be readable by JS to echo into the header
				Secure:   true,
				SameSite: http.SameSiteStrictMode,
			})
		} else {
			token = cookie.Value
		}

		if isUnsafeMethod(r.Method) {
			header := r.Header.Get("X-CSRF-Token")
			if header == "" || !constantTimeEqual(header, token) {
				http.Error(w, "CSRF Token Mismatch", http.StatusForbidden)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// constantTimeEqual compares two CSRF tokens in time independent of their
// contents; tokens of different length are rejected immediately.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
