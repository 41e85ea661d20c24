package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	applog "companionforge/internal/platform/log"
)

// JWTConfig JWT 鉴权配置
type JWTConfig struct {
	Secret string // HMAC 签名密钥
	Issuer string // 非空时校验 iss
}

var errMissingSubject = errors.New("missing sub in token")

// authMiddleware 校验 Authorization: Bearer <token>，把 sub 作为伴侣归属注入 context
func authMiddleware(cfg *JWTConfig) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	secret := []byte(cfg.Secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "Missing or malformed Authorization header")
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
				return secret, nil
			}); err != nil {
				applog.Warn("[Auth] Invalid JWT token", "error", err)
				writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			caller, err := callerFromClaims(claims)
			if err != nil {
				writeErrorCode(w, http.StatusForbidden, "forbidden_scope", "Missing sub in token")
				return
			}
			applog.Debug("[Auth] Caller resolved", "subject", caller.Subject)
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func callerFromClaims(claims jwt.MapClaims) (*Caller, error) {
	sub, _ := claims.GetSubject()
	if strings.TrimSpace(sub) == "" {
		return nil, errMissingSubject
	}
	c := &Caller{Subject: sub}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, role := range roles {
			if s, ok := role.(string); ok {
				c.Roles = append(c.Roles, s)
			}
		}
	}
	return c, nil
}
