package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookclub/internal/config"
)

type memoryBlacklist struct {
	revoked map[string]bool
	err     error
}

func (m *memoryBlacklist) Add(_ context.Context, jti string, _ time.Time) error {
	if m.revoked == nil {
		m.revoked = map[string]bool{}
	}
	m.revoked[jti] = true
	return nil
}

func (m *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.revoked[jti], nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecretKey: "test-secret",
		JWTExpiry:    time.Minute,
		Issuer:       "bookclub-test",
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := testAuthConfig()

	token, err := GenerateToken(7, "alice", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(context.Background(), token, cfg.JWTSecretKey, &memoryBlacklist{})
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "bookclub-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(1, "alice", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, "other-secret", nil)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTExpiry = -time.Minute
	token, err := GenerateToken(1, "alice", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestValidateTokenRejectsRevoked(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(1, "alice", cfg)
	require.NoError(t, err)

	bl := &memoryBlacklist{}
	claims, err := ValidateToken(context.Background(), token, cfg.JWTSecretKey, bl)
	require.NoError(t, err)
	require.NoError(t, bl.Add(context.Background(), claims.ID, claims.ExpiresAt.Time))

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, bl)
	assert.Error(t, err)
}

func TestValidateTokenFailsClosedWhenBlacklistDown(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(1, "alice", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, &memoryBlacklist{err: errors.New("redis down")})
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
