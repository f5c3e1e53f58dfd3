package services

import (
	"context"
	"testing"
	"time"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/adapters/persistence/repositories"
	"schoolhub/internal/config"
	"schoolhub/internal/pkg/metrics"
	"schoolhub/internal/pkg/password"
	"schoolhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type cronEnv struct {
	db     *gorm.DB
	f      *testutil.Fixtures
	assets *AssetService
	loans  *LoanService
	cron   *CronService
}

func newCronEnv(t *testing.T, schedule config.CronConfig) *cronEnv {
	t.Helper()

	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	m := metrics.New()
	cfg := testConfig()

	users := repositories.NewUserRepository(db)
	assets := NewAssetService(db,
		repositories.NewAssetRepository(db),
		repositories.NewAssetTransactionRepository(db),
		repositories.NewMasterRepository(db),
		users,
		config.AssetConfig{},
		m,
	)
	loans := NewLoanService(db,
		repositories.NewBookRepository(db),
		repositories.NewBookLoanRepository(db),
		users,
		cfg.Library,
		m,
	)
	auth := NewAuthService(users, repositories.NewRefreshTokenRepository(db), cfg)

	return &cronEnv{
		db:     db,
		f:      f,
		assets: assets,
		loans:  loans,
		cron:   NewCronService(assets, loans, auth, schedule, m),
	}
}

func TestCronService_StartStop(t *testing.T) {
	e := newCronEnv(t, testConfig().Cron)

	require.NoError(t, e.cron.Start())
	assert.Equal(t, 3, e.cron.Entries())
	e.cron.Stop()
}

func TestCronService_StartRejectsBadSpec(t *testing.T) {
	schedule := testConfig().Cron
	schedule.AuditSpec = "every night"
	e := newCronEnv(t, schedule)

	err := e.cron.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobConsistencyAudit)
}

func TestCronService_RunOverdueScan(t *testing.T) {
	e := newCronEnv(t, testConfig().Cron)
	ctx := context.Background()

	loan, err := e.loans.Issue(ctx, &IssueLoanInput{BookID: e.f.PhysicalBook.ID, BorrowerID: e.f.Member.ID}, e.f.Librarian.ID)
	require.NoError(t, err)

	n, err := e.cron.RunOverdueScan(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, e.db.Model(&models.BookLoan{}).Where("id = ?", loan.ID).
		Update("return_date", time.Now().AddDate(0, 0, -3)).Error)

	n, err = e.cron.RunOverdueScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCronService_RunConsistencyAudit(t *testing.T) {
	e := newCronEnv(t, testConfig().Cron)
	ctx := context.Background()

	asset, err := e.assets.Register(ctx, &RegisterAssetInput{Tag: "PJ-01", Name: "Projector", Condition: "new"}, e.f.Staff.ID)
	require.NoError(t, err)
	_, err = e.assets.Receive(ctx, asset.ID, &LocationInput{DepartmentID: e.f.Science.ID}, e.f.Staff.ID, "")
	require.NoError(t, err)

	result, err := e.cron.RunConsistencyAudit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Empty(t, result.Mismatches)

	require.NoError(t, e.db.Model(&models.Asset{}).Where("id = ?", asset.ID).Update("status", "lost").Error)

	result, err = e.cron.RunConsistencyAudit(ctx)
	require.NoError(t, err)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, "PJ-01", result.Mismatches[0].Tag)
}

func TestCronService_RunTokenCleanup(t *testing.T) {
	e := newCronEnv(t, testConfig().Cron)

	require.NoError(t, e.db.Create(&models.RefreshToken{
		UserID:    e.f.Staff.ID,
		TokenHash: password.HashToken("old"),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}).Error)

	n, err := e.cron.RunTokenCleanup(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = e.cron.RunTokenCleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
