package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	"github.com/golang-jwt/jwt/v5"
)

var errForeignDriver = errors.New("token subject is not the session driver")

// Auth only lets through bearer tokens issued to the driver of this session.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.secret) == 0 || isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()

		token, err := extractBearerToken(r)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}

		if err := m.verify(token); err != nil {
			m.log.Warn(wrap.ErrorCtx(ctx, err), "rejected control api token", "error", err)
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) verify(raw string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}

	if claims.Subject != m.driverID.String() {
		return errForeignDriver
	}
	return nil
}

func isPublic(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/swagger/")
}

// extractBearerToken reads the Authorization header. Browsers cannot set
// headers on websocket upgrades, so the token query parameter is accepted too.
func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if q := r.URL.Query().Get("token"); q != "" {
			return q, nil
		}
		return "", errors.New("authorization required")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid Authorization header format")
	}
	return parts[1], nil
}
