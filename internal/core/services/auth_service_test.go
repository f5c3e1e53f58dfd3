package services

import (
	"context"
	"testing"
	"time"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/adapters/persistence/repositories"
	"schoolhub/internal/config"
	"schoolhub/internal/pkg/jwt"
	"schoolhub/internal/pkg/password"
	"schoolhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "access-secret-for-tests",
			RefreshSecret:    "refresh-secret-for-tests",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		Library: config.LibraryConfig{DefaultLoanDays: 7, MaxLoanDays: 30},
		Cron: config.CronConfig{
			OverdueSpec:      "0 7 * * *",
			AuditSpec:        "0 2 * * *",
			TokenCleanupSpec: "@hourly",
		},
	}
}

func newAuthService(t *testing.T) (*AuthService, *gorm.DB, *testutil.Fixtures) {
	t.Helper()

	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	svc := NewAuthService(
		repositories.NewUserRepository(db),
		repositories.NewRefreshTokenRepository(db),
		testConfig(),
	)
	return svc, db, f
}

func TestAuthService_Login(t *testing.T) {
	svc, _, f := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, &LoginInput{Username: "librarian", Password: testutil.Password})
	require.NoError(t, err)
	assert.Equal(t, f.Librarian.ID, resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.Librarian.ID, claims.UserID)
	assert.Equal(t, "LIBRARIAN", claims.Role)
	require.NotNil(t, claims.CampusID)
	assert.Equal(t, f.Campus.ID, *claims.CampusID)
}

func TestAuthService_LoginRejects(t *testing.T) {
	svc, db, f := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, &LoginInput{Username: "librarian", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginInput{Username: "nobody", Password: testutil.Password})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", f.Member.ID).Update("is_active", false).Error)
	_, err = svc.Login(ctx, &LoginInput{Username: "member", Password: testutil.Password})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestAuthService_RefreshRotatesToken(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, &LoginInput{Username: "staff", Password: testutil.Password})
	require.NoError(t, err)

	second, err := svc.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// the rotated-out token is dead
	_, err = svc.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.RefreshToken(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_RefreshInvalidToken(t *testing.T) {
	svc, _, f := newAuthService(t)
	ctx := context.Background()

	_, err := svc.RefreshToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// well formed but never stored
	token, err := jwt.GenerateRefreshToken(f.Staff.ID, "unknown", testConfig().JWT.RefreshSecret, 7)
	require.NoError(t, err)
	_, err = svc.RefreshToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_LogoutAll(t *testing.T) {
	svc, _, f := newAuthService(t)
	ctx := context.Background()

	a, err := svc.Login(ctx, &LoginInput{Username: "admin", Password: testutil.Password})
	require.NoError(t, err)
	b, err := svc.Login(ctx, &LoginInput{Username: "admin", Password: testutil.Password})
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, f.Admin.ID))

	for _, token := range []string{a.RefreshToken, b.RefreshToken} {
		_, err := svc.RefreshToken(ctx, token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	}
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, &LoginInput{Username: "admin", Password: testutil.Password})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.RefreshToken))
	_, err = svc.RefreshToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_CleanupExpiredTokens(t *testing.T) {
	svc, db, f := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, &LoginInput{Username: "admin", Password: testutil.Password})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.RefreshToken{
		UserID:    f.Admin.ID,
		TokenHash: password.HashToken("stale"),
		ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)

	n, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&left).Error)
	assert.EqualValues(t, 1, left)
}
