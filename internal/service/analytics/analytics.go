// Package analytics computes the admin sales report. Pure functions over
// an already-fetched order set: same input, same report.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/vberezin/storehub/internal/models"
)

const topN = 5

type ProductStat struct {
	ProductID uint `json:"product_id"`
	Quantity  uint `json:"quantity"`
}

type CustomerStat struct {
	UserID uint    `json:"user_id"`
	Spend  float64 `json:"spend"`
}

type DailyStat struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type Report struct {
	TimeRange           string         `json:"time_range"`
	TotalOrders         int            `json:"total_orders"`
	TotalRevenue        float64        `json:"total_revenue"`
	AverageOrderValue   float64        `json:"average_order_value"`
	UniqueCustomers     int            `json:"unique_customers"`
	StatusCounts        map[string]int `json:"status_counts"`
	PaymentMethodCounts map[string]int `json:"payment_method_counts"`
	TopProducts         []ProductStat  `json:"top_products"`
	TopCustomers        []CustomerStat `json:"top_customers"`
	RecentOrders        []models.Order `json:"recent_orders"`
	DailySales          []DailyStat    `json:"daily_sales"`
}

// ResolveWindow maps a named range onto its start time. The zero time
// means no lower bound.
func ResolveWindow(timeRange string, now time.Time) (time.Time, error) {
	switch timeRange {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "month":
		return now.AddDate(0, -1, 0), nil
	case "year":
		return now.AddDate(-1, 0, 0), nil
	case "all", "":
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unknown time range %q", timeRange)
}

func Compute(timeRange string, orders []models.Order, items []models.OrderItem) Report {
	r := Report{
		TimeRange:           timeRange,
		TotalOrders:         len(orders),
		StatusCounts:        map[string]int{},
		PaymentMethodCounts: map[string]int{},
		TopProducts:         []ProductStat{},
		TopCustomers:        []CustomerStat{},
		RecentOrders:        []models.Order{},
		DailySales:          []DailyStat{},
	}

	customers := map[uint]float64{}
	daily := map[string]*DailyStat{}
	for _, o := range orders {
		r.TotalRevenue += o.TotalPrice
		r.StatusCounts[o.Status]++
		r.PaymentMethodCounts[o.PaymentMethod]++
		customers[o.UserID] += o.TotalPrice

		day := o.CreatedAt.Format("2006-01-02")
		if daily[day] == nil {
			daily[day] = &DailyStat{Date: day}
		}
		daily[day].Orders++
		daily[day].Revenue += o.TotalPrice
	}
	r.UniqueCustomers = len(customers)
	if len(orders) > 0 {
		r.AverageOrderValue = r.TotalRevenue / float64(len(orders))
	}

	quantities := map[uint]uint{}
	for _, it := range items {
		quantities[it.ProductID] += it.Quantity
	}
	for id, q := range quantities {
		r.TopProducts = append(r.TopProducts, ProductStat{ProductID: id, Quantity: q})
	}
	sort.Slice(r.TopProducts, func(i, j int) bool {
		if r.TopProducts[i].Quantity != r.TopProducts[j].Quantity {
			return r.TopProducts[i].Quantity > r.TopProducts[j].Quantity
		}
		return r.TopProducts[i].ProductID < r.TopProducts[j].ProductID
	})
	if len(r.TopProducts) > topN {
		r.TopProducts = r.TopProducts[:topN]
	}

	for id, spend := range customers {
		r.TopCustomers = append(r.TopCustomers, CustomerStat{UserID: id, Spend: spend})
	}
	sort.Slice(r.TopCustomers, func(i, j int) bool {
		if r.TopCustomers[i].Spend != r.TopCustomers[j].Spend {
			return r.TopCustomers[i].Spend > r.TopCustomers[j].Spend
		}
		return r.TopCustomers[i].UserID < r.TopCustomers[j].UserID
	})
	if len(r.TopCustomers) > topN {
		r.TopCustomers = r.TopCustomers[:topN]
	}

	recent := make([]models.Order, len(orders))
	copy(recent, orders)
	sort.Slice(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > topN {
		recent = recent[:topN]
	}
	r.RecentOrders = recent

	for _, d := range daily {
		r.DailySales = append(r.DailySales, *d)
	}
	sort.Slice(r.DailySales, func(i, j int) bool { return r.DailySales[i].Date < r.DailySales[j].Date })

	return r
}
