package jwtclaims

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hms-project/hmsctl/internal/domain"
)

// sessionClaims mirrors the payload the backend signs at login: sub is the phone number.
type sessionClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode reads the claims of a bearer token without checking its signature or expiry.
// ok is false when the token is not a well-formed JWT.
func Decode(rawToken string) (domain.TokenClaims, bool) {
	rawToken = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rawToken), "Bearer "))
	if rawToken == "" {
		return domain.TokenClaims{}, false
	}

	var claims sessionClaims
	if _, _, err := parser.ParseUnverified(rawToken, &claims); err != nil {
		return domain.TokenClaims{}, false
	}

	decoded := domain.TokenClaims{
		Subject: strings.TrimSpace(claims.Subject),
		Role:    domain.Role(strings.TrimSpace(claims.Role)),
	}
	if claims.ExpiresAt != nil {
		decoded.ExpiresAt = claims.ExpiresAt.Time
	}

	return decoded, true
}
