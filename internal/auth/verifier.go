// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/machinemate/machinemate/internal/config"
)

// ErrInvalidToken covers every verification failure; the detail stays in logs,
// never in the HTTP response.
var ErrInvalidToken = errors.New("invalid or expired token")

// User is the authenticated principal extracted from a verified token.
type User struct {
	ID    string
	Email string
	Role  string
}

// IsServiceRole reports whether the principal is the backend service itself.
func (u *User) IsServiceRole() bool {
	return u.Role == "service_role"
}

// Verifier validates Supabase JWTs. RS256 tokens are checked against the
// cached JWKS; HS256 tokens against the shared secret.
type Verifier struct {
	cfg  config.AuthConfig
	jwks *JWKSCache
}

// NewVerifier builds a verifier from the auth configuration.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	v := &Verifier{cfg: cfg}
	if cfg.JWKSURL != "" {
		v.jwks = NewJWKSCache(cfg.JWKSURL, nil, cfg.JWKSCacheTTL)
	}
	return v
}

// Verify parses and validates a bearer token and returns its principal.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "HS256"}),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.Alg() {
		case "HS256":
			if v.cfg.JWTSecret == "" {
				return nil, errors.New("HS256 token but no shared secret configured")
			}
			return []byte(v.cfg.JWTSecret), nil
		case "RS256":
			if v.jwks == nil {
				return nil, errors.New("RS256 token but no JWKS URL configured")
			}
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("RS256 token missing kid header")
			}
			return v.jwks.GetKey(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return &User{ID: sub, Email: email, Role: role}, nil
}
