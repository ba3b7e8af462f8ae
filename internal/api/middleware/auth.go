package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Verifier checks a username/password pair
type Verifier interface {
	Verify(username, password string) bool
}

// BasicAuth rejects every request whose Basic credentials do not pass v.
// It runs ahead of routing, so unknown paths are rejected the same way.
func BasicAuth(realm string, v Verifier) func(http.Handler) http.Handler {
	challenge := `Basic realm="` + realm + `", charset="UTF-8"`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || !v.Verify(username, password) {
				logrus.WithFields(logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"remoteAddr": r.RemoteAddr,
				}).Warn("Authentication failed")

				w.Header().Set("WWW-Authenticate", challenge)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Unauthorized Access"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
