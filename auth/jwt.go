package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthNotConfigured is returned when a validator is needed but no auth base URL is set.
var ErrAuthNotConfigured = errors.New("auth not configured")

const bearerPrefix = "Bearer "

// Validator checks JWTs against a key source and an expected issuer.
type Validator struct {
	keyfunc jwt.Keyfunc
	issuer  string
	methods []string
}

// NewValidator builds a Validator from any key lookup function.
func NewValidator(kf jwt.Keyfunc, issuer string, methods ...string) *Validator {
	return &Validator{keyfunc: kf, issuer: issuer, methods: methods}
}

// NewNeonValidator builds a Validator for Neon Auth: keys come from the
// provider's JWKS (refreshed in the background by keyfunc), tokens must be
// EdDSA and issued by the base URL's origin.
func NewNeonValidator(baseURL string) (*Validator, error) {
	if baseURL == "" {
		return nil, ErrAuthNotConfigured
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	jwks, err := keyfunc.NewDefault([]string{strings.TrimSuffix(baseURL, "/") + "/.well-known/jwks.json"})
	if err != nil {
		return nil, fmt.Errorf("load JWKS: %w", err)
	}
	return NewValidator(jwks.Keyfunc, u.Scheme+"://"+u.Host, "EdDSA"), nil
}

// Validate parses tokenString and returns its claims.
func (v *Validator) Validate(tokenString string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{jwt.WithIssuer(v.issuer)}
	if len(v.methods) > 0 {
		opts = append(opts, jwt.WithValidMethods(v.methods))
	}
	token, err := jwt.Parse(tokenString, v.keyfunc, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// UserID validates tokenString and returns its user ID.
func (v *Validator) UserID(tokenString string) (string, error) {
	claims, err := v.Validate(tokenString)
	if err != nil {
		return "", err
	}
	id := UserIDFromClaims(claims)
	if id == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return id, nil
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}

// TokenFromRequest returns the bearer token from the Authorization header,
// falling back to the "token" query parameter (browsers cannot set headers
// on a WebSocket handshake).
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(h[len(bearerPrefix):])
	}
	return r.URL.Query().Get("token")
}
