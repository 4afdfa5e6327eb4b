package service

import (
	"testing"
	"time"

	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name           string
		accessSecret   string
		refreshSecret  string
		accessMinutes  int
		refreshMinutes int
		expectError    bool
	}{
		{
			name:           "valid parameters",
			accessSecret:   "access-secret-key",
			refreshSecret:  "refresh-secret-key",
			accessMinutes:  15,
			refreshMinutes: 10080,
		},
		{
			name:           "empty secrets",
			accessSecret:   "",
			refreshSecret:  "",
			accessMinutes:  15,
			refreshMinutes: 10080,
			expectError:    true,
		},
		{
			name:           "missing refresh secret",
			accessSecret:   "access-secret-key",
			refreshSecret:  "",
			accessMinutes:  15,
			refreshMinutes: 10080,
			expectError:    true,
		},
		{
			name:           "shared secret",
			accessSecret:   "same",
			refreshSecret:  "same",
			accessMinutes:  15,
			refreshMinutes: 10080,
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTokenService(tt.accessSecret, tt.refreshSecret, tt.accessMinutes, tt.refreshMinutes)

			if tt.expectError {
				assert.ErrorIs(t, err, autherror.ErrSigning)
				assert.Nil(t, ts)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.accessSecret, ts.AccessTokenSecret)
			assert.Equal(t, tt.refreshSecret, ts.RefreshTokenSecret)
			assert.Equal(t, time.Duration(tt.accessMinutes)*time.Minute, ts.AccessTokenExpiry)
			assert.Equal(t, time.Duration(tt.refreshMinutes)*time.Minute, ts.RefreshTokenExpiry)
		})
	}
}

func TestTokenService_Generate(t *testing.T) {
	tests := []struct {
		name      string
		accountID string
		role      string
	}{
		{name: "student", accountID: "acc-123", role: "student"},
		{name: "admin", accountID: "admin-456", role: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTokenService("test-access-secret-key-123", "test-refresh-secret-key-456", 15, 10080)
			require.NoError(t, err)

			beforeGenerate := time.Now()
			pair, err := ts.Generate(tt.accountID, tt.role)
			afterGenerate := time.Now()

			require.NoError(t, err)
			assert.NotEmpty(t, pair.AccessToken)
			assert.NotEmpty(t, pair.RefreshToken)

			// Verify expiry time is within expected range
			expectedExpiry := beforeGenerate.Add(ts.AccessTokenExpiry)
			assert.True(t, pair.AccessExpiresAt.After(expectedExpiry.Add(-time.Second)))
			assert.True(t, pair.AccessExpiresAt.Before(afterGenerate.Add(ts.AccessTokenExpiry).Add(time.Second)))

			// Verify access token claims
			accessClaims := &JWTCustomClaims{}
			accessTokenParsed, err := jwt.ParseWithClaims(pair.AccessToken, accessClaims, func(token *jwt.Token) (interface{}, error) {
				return []byte(ts.AccessTokenSecret), nil
			})
			require.NoError(t, err)
			assert.True(t, accessTokenParsed.Valid)
			assert.Equal(t, tt.accountID, accessClaims.UserID)
			assert.Equal(t, tt.role, accessClaims.Role)

			// Verify refresh token claims
			refreshClaims := &JWTCustomClaims{}
			refreshTokenParsed, err := jwt.ParseWithClaims(pair.RefreshToken, refreshClaims, func(token *jwt.Token) (interface{}, error) {
				return []byte(ts.RefreshTokenSecret), nil
			})
			require.NoError(t, err)
			assert.True(t, refreshTokenParsed.Valid)
			assert.Equal(t, tt.accountID, refreshClaims.UserID)
			// The refresh token carries only the account identity.
			assert.Empty(t, refreshClaims.Role)

			assert.WithinDuration(t, beforeGenerate.Add(15*time.Minute), accessClaims.ExpiresAt.Time, 2*time.Second)
			assert.WithinDuration(t, beforeGenerate.Add(7*24*time.Hour), refreshClaims.ExpiresAt.Time, 2*time.Second)
		})
	}
}

func TestTokenService_Generate_DistinctPerCall(t *testing.T) {
	ts, err := NewTokenService("test-access-secret", "test-refresh-secret", 15, 10080)
	require.NoError(t, err)
	fixed := time.Now()
	ts.now = func() time.Time { return fixed }

	first, err := ts.Generate("acc-1", "student")
	require.NoError(t, err)
	second, err := ts.Generate("acc-1", "student")
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestTokenService_Generate_MissingSecret(t *testing.T) {
	ts := &TokenService{AccessTokenSecret: "only-access"}

	pair, err := ts.Generate("acc-1", "student")

	assert.ErrorIs(t, err, autherror.ErrSigning)
	assert.Nil(t, pair)
}

func TestTokenService_Generate_TokenValidation(t *testing.T) {
	ts, err := NewTokenService("test-access-secret", "test-refresh-secret", 15, 10080)
	require.NoError(t, err)

	pair, err := ts.Generate("test-user-123", "admin")
	require.NoError(t, err)

	// Test access token with wrong secret should fail
	wrongClaims := &JWTCustomClaims{}
	_, err = jwt.ParseWithClaims(pair.AccessToken, wrongClaims, func(token *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	assert.Error(t, err)

	// The two token kinds are not interchangeable.
	_, err = ts.VerifyRefreshToken(pair.AccessToken)
	assert.Error(t, err)
	_, err = ts.VerifyAccessToken(pair.RefreshToken)
	assert.Error(t, err)

	claims, err := ts.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	claims, err = ts.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "test-user-123", claims.UserID)
}

func TestTokenService_VerifyExpired(t *testing.T) {
	ts, err := NewTokenService("test-access-secret", "test-refresh-secret", 15, 10080)
	require.NoError(t, err)

	issuedAt := time.Now().Add(-time.Hour)
	ts.now = func() time.Time { return issuedAt }
	pair, err := ts.Generate("acc-1", "student")
	require.NoError(t, err)

	ts.now = time.Now
	_, err = ts.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	// Refresh token lives for a week.
	_, err = ts.VerifyRefreshToken(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestTokenService_VerifyRejectsOtherAlgorithms(t *testing.T) {
	ts, err := NewTokenService("test-access-secret", "test-refresh-secret", 15, 10080)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, JWTCustomClaims{
		UserID: "acc-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ts.VerifyAccessToken(unsigned)
	assert.Error(t, err)
}
