package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vberezin/storehub/internal/models"
)

func day(t *testing.T, s string) time.Time {
	ts, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return ts
}

func fixtureOrders(t *testing.T) []models.Order {
	return []models.Order{
		{ID: 1, UserID: 7, TotalPrice: 100, Status: models.OrderPending, PaymentMethod: models.PaymentCOD, CreatedAt: day(t, "2026-03-01")},
		{ID: 2, UserID: 7, TotalPrice: 300, Status: models.OrderDelivered, PaymentMethod: models.PaymentSlip, CreatedAt: day(t, "2026-03-02")},
		{ID: 3, UserID: 8, TotalPrice: 50, Status: models.OrderPending, PaymentMethod: models.PaymentCOD, CreatedAt: day(t, "2026-03-02")},
		{ID: 4, UserID: 9, TotalPrice: 150, Status: models.OrderCancelled, PaymentMethod: models.PaymentCOD, CreatedAt: day(t, "2026-03-03")},
	}
}

func TestComputeTotals(t *testing.T) {
	r := Compute("all", fixtureOrders(t), nil)

	require.Equal(t, 4, r.TotalOrders)
	require.Equal(t, float64(600), r.TotalRevenue)
	require.Equal(t, float64(150), r.AverageOrderValue)
	require.Equal(t, 3, r.UniqueCustomers)
	require.Equal(t, 2, r.StatusCounts[models.OrderPending])
	require.Equal(t, 1, r.StatusCounts[models.OrderDelivered])
	require.Equal(t, 3, r.PaymentMethodCounts[models.PaymentCOD])
}

func TestComputeTopProductsAndCustomers(t *testing.T) {
	items := []models.OrderItem{
		{OrderID: 1, ProductID: 10, Quantity: 2},
		{OrderID: 2, ProductID: 11, Quantity: 5},
		{OrderID: 3, ProductID: 10, Quantity: 1},
		{OrderID: 4, ProductID: 12, Quantity: 4},
	}
	r := Compute("all", fixtureOrders(t), items)

	require.Equal(t, []ProductStat{
		{ProductID: 11, Quantity: 5},
		{ProductID: 12, Quantity: 4},
		{ProductID: 10, Quantity: 3},
	}, r.TopProducts)

	require.Equal(t, uint(7), r.TopCustomers[0].UserID)
	require.Equal(t, float64(400), r.TopCustomers[0].Spend)
}

func TestComputeDailySeriesSorted(t *testing.T) {
	r := Compute("all", fixtureOrders(t), nil)

	require.Equal(t, []DailyStat{
		{Date: "2026-03-01", Orders: 1, Revenue: 100},
		{Date: "2026-03-02", Orders: 2, Revenue: 350},
		{Date: "2026-03-03", Orders: 1, Revenue: 150},
	}, r.DailySales)
}

func TestComputeRecentOrders(t *testing.T) {
	r := Compute("all", fixtureOrders(t), nil)

	require.Len(t, r.RecentOrders, 4)
	require.Equal(t, uint(4), r.RecentOrders[0].ID)
}

func TestComputeEmpty(t *testing.T) {
	r := Compute("today", nil, nil)

	require.Zero(t, r.TotalOrders)
	require.Zero(t, r.AverageOrderValue)
	require.Empty(t, r.DailySales)
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 13, 45, 0, 0, time.UTC)

	since, err := ResolveWindow("today", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), since)

	since, err = ResolveWindow("week", now)
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, -7), since)

	since, err = ResolveWindow("all", now)
	require.NoError(t, err)
	require.True(t, since.IsZero())

	_, err = ResolveWindow("decade", now)
	require.Error(t, err)
}
