package services

import (
	"context"
	"testing"
	"time"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Admin(t *testing.T) {
	e := newCronEnv(t, testConfig().Cron)
	ctx := context.Background()

	for _, tag := range []string{"NB-1", "NB-2"} {
		_, err := e.assets.Register(ctx, &RegisterAssetInput{Tag: tag, Name: tag, Condition: "new"}, e.f.Staff.ID)
		require.NoError(t, err)
	}
	var first models.Asset
	require.NoError(t, e.db.Where("tag = ?", "NB-1").First(&first).Error)
	_, err := e.assets.Receive(ctx, first.ID, &LocationInput{DepartmentID: e.f.Store.ID}, e.f.Staff.ID, "")
	require.NoError(t, err)

	_, err = e.loans.Issue(ctx, &IssueLoanInput{BookID: e.f.PhysicalBook.ID, BorrowerID: e.f.Member.ID}, e.f.Librarian.ID)
	require.NoError(t, err)

	data, err := NewDashboardService(e.db).GetAdminDashboard(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, data.UsersByRole["ADMIN"])
	assert.EqualValues(t, 2, data.UsersByRole["MEMBER"])

	assert.EqualValues(t, 2, data.TotalAssets)
	assert.EqualValues(t, 1, data.AssetsByStatus["not_received"])
	assert.EqualValues(t, 1, data.AssetsByStatus[string(domain.AssetAvailable)])

	assert.EqualValues(t, 3, data.TotalBooks)
	assert.EqualValues(t, 1, data.AvailableBooks)
	assert.EqualValues(t, 1, data.OpenLoans)
	assert.Zero(t, data.OverdueLoans)
	assert.EqualValues(t, 1, data.LoansThisMonth)

	require.Len(t, data.RecentTransactions, 1)
	assert.Equal(t, string(domain.TxReceived), data.RecentTransactions[0].Type)
}

func TestDashboardService_User(t *testing.T) {
	e := newCronEnv(t, testConfig().Cron)
	ctx := context.Background()

	asset, err := e.assets.Register(ctx, &RegisterAssetInput{Tag: "NB-1", Name: "Notebook", Condition: "new"}, e.f.Staff.ID)
	require.NoError(t, err)
	_, err = e.assets.Receive(ctx, asset.ID, &LocationInput{DepartmentID: e.f.Store.ID}, e.f.Staff.ID, "")
	require.NoError(t, err)
	_, err = e.assets.Allocate(ctx, asset.ID, &AllocateInput{DepartmentID: e.f.Science.ID, CustodianID: e.f.Teacher.ID}, e.f.Staff.ID, "")
	require.NoError(t, err)

	_, err = e.loans.Issue(ctx, &IssueLoanInput{BookID: e.f.PhysicalBook.ID, BorrowerID: e.f.Teacher.ID}, e.f.Librarian.ID)
	require.NoError(t, err)

	svc := NewDashboardService(e.db)

	data, err := svc.GetUserDashboard(ctx, e.f.Teacher.ID)
	require.NoError(t, err)
	require.Len(t, data.CustodiedAssets, 1)
	assert.Equal(t, "NB-1", data.CustodiedAssets[0].Tag)
	require.Len(t, data.OpenLoans, 1)
	assert.Zero(t, data.OverdueLoans)

	// three weeks later the seven day loan is overdue
	svc.now = func() time.Time { return time.Now().AddDate(0, 0, 21) }
	data, err = svc.GetUserDashboard(ctx, e.f.Teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, data.OverdueLoans)

	empty, err := svc.GetUserDashboard(ctx, e.f.Member.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.CustodiedAssets)
	assert.Empty(t, empty.OpenLoans)
}
