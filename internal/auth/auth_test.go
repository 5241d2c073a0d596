package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, cfg Config, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	require.NoError(t, err)
	return signed
}

func TestParseValidToken(t *testing.T) {
	cfg := Config{Secret: "test-secret", Issuer: "training.identity"}
	signed := signToken(t, cfg, jwt.MapClaims{
		"sub":               "user-1",
		"iss":               cfg.Issuer,
		"group_external_id": "club-7",
		"scopes":            []string{ScopeTrainingRead, ScopeTrainingWrite},
		"exp":               time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(signed, cfg)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "club-7", claims.GroupExternalID)
	require.True(t, claims.HasScope(ScopeTrainingRead))
	require.True(t, claims.HasScope(ScopeTrainingWrite))
}

func TestParseSpaceSeparatedScopes(t *testing.T) {
	cfg := Config{Secret: "test-secret", Issuer: "training.identity"}
	signed := signToken(t, cfg, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    cfg.Issuer,
		"scopes": "training:read training:write",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(signed, cfg)
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeTrainingRead))
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := Config{Secret: "test-secret", Issuer: "training.identity"}
	signed := signToken(t, cfg, jwt.MapClaims{
		"sub": "user-1",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(signed, cfg)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsMissingSubject(t *testing.T) {
	cfg := Config{Secret: "test-secret", Issuer: "training.identity"}
	signed := signToken(t, cfg, jwt.MapClaims{
		"iss": cfg.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(signed, cfg)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseEmptyToken(t *testing.T) {
	_, err := Parse("  ", Config{Secret: "s", Issuer: "i"})
	require.ErrorIs(t, err, ErrMissingToken)
}
