package jwtclaims

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms-project/hmsctl/internal/domain"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeReadsSubjectRoleAndExpiry(t *testing.T) {
	t.Parallel()

	expiresAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{
		"sub":  "13800000001",
		"role": "患者",
		"exp":  expiresAt.Unix(),
	})

	claims, ok := Decode(token)
	require.True(t, ok)
	assert.Equal(t, "13800000001", claims.Subject)
	assert.Equal(t, domain.RolePatient, claims.Role)
	assert.True(t, expiresAt.Equal(claims.ExpiresAt))
}

func TestDecodeIgnoresExpiryAndSignature(t *testing.T) {
	t.Parallel()

	token := signedToken(t, jwt.MapClaims{
		"sub":  "13800000001",
		"role": "护士",
		"exp":  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	})

	claims, ok := Decode("Bearer " + token)
	require.True(t, ok)
	assert.Equal(t, domain.RoleNurse, claims.Role)
}

func TestDecodeMissingClaimsAreEmpty(t *testing.T) {
	t.Parallel()

	claims, ok := Decode(signedToken(t, jwt.MapClaims{}))
	require.True(t, ok)
	assert.Equal(t, domain.TokenClaims{}, claims)
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	t.Parallel()

	payload := base64.RawURLEncoding.EncodeToString([]byte("not json"))
	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "opaque", token: "abc123"},
		{name: "two segments", token: "a.b"},
		{name: "bad payload", token: "eyJhbGciOiJIUzI1NiJ9." + payload + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, ok := Decode(tt.token)
			assert.False(t, ok)
			assert.Equal(t, domain.TokenClaims{}, claims)
		})
	}
}
