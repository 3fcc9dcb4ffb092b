// Package report computes dashboard stats and dated sales analytics from
// the transaction ledger and the product catalog.
package report

import (
	"sort"
	"time"

	"github.com/bentamate/bentamate-backend/internal/product"
	"github.com/bentamate/bentamate-backend/internal/transaction"
)

// Summary is the day-so-far metric block.
type Summary struct {
	TotalSales         float64 `json:"totalSales"`
	TransactionCount   int     `json:"transactionCount"`
	AverageTransaction float64 `json:"averageTransaction"`
}

// Point is one bucket of the sales series.
type Point struct {
	Label string  `json:"name"`
	Sales float64 `json:"sales"`
	Count int     `json:"transactions"`
}

// TopProduct aggregates sales per product name across the ledger.
type TopProduct struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// Dashboard is the overview block for the home screen.
type Dashboard struct {
	TodaySales         float64                   `json:"todaySales"`
	TransactionsToday  int                       `json:"transactionsToday"`
	ProductsInStock    int                       `json:"productsInStock"`
	LowStockCount      int                       `json:"lowStockCount"`
	OutOfStockCount    int                       `json:"outOfStockCount"`
	RecentTransactions []transaction.Transaction `json:"recentTransactions"`
}

// Service reads both repositories; it never writes.
type Service struct {
	transactions transaction.Repository
	products     product.Repository
	now          func() time.Time
}

func NewService(transactions transaction.Repository, products product.Repository) *Service {
	return &Service{
		transactions: transactions,
		products:     products,
		now:          time.Now,
	}
}

func (s *Service) today() (time.Time, time.Time) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func (s *Service) Today() (Summary, error) {
	start, end := s.today()
	txns, err := s.transactions.ListBetween(start, end)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{TransactionCount: len(txns)}
	for _, t := range txns {
		sum.TotalSales += t.Total
	}
	if sum.TransactionCount > 0 {
		sum.AverageTransaction = sum.TotalSales / float64(sum.TransactionCount)
	}
	return sum, nil
}

// Series buckets sales by day (last 7), week (last 4) or month (last 6).
func (s *Service) Series(timeframe string) ([]Point, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	type bucket struct {
		label      string
		start, end time.Time
	}
	var buckets []bucket
	switch timeframe {
	case "weekly":
		for i := 3; i >= 0; i-- {
			start := dayStart.AddDate(0, 0, -7*(i+1)+1)
			end := start.AddDate(0, 0, 7)
			buckets = append(buckets, bucket{start.Format("Jan 2"), start, end})
		}
	case "monthly":
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		for i := 5; i >= 0; i-- {
			start := monthStart.AddDate(0, -i, 0)
			end := start.AddDate(0, 1, 0)
			buckets = append(buckets, bucket{start.Format("Jan"), start, end})
		}
	default: // daily
		for i := 6; i >= 0; i-- {
			start := dayStart.AddDate(0, 0, -i)
			end := start.AddDate(0, 0, 1)
			buckets = append(buckets, bucket{start.Format("Mon Jan 2"), start, end})
		}
	}

	txns, err := s.transactions.ListBetween(buckets[0].start, buckets[len(buckets)-1].end)
	if err != nil {
		return nil, err
	}

	out := make([]Point, len(buckets))
	for i, b := range buckets {
		out[i] = Point{Label: b.label}
		for _, t := range txns {
			ts, err := time.Parse(time.RFC3339, t.CreatedAt)
			if err != nil {
				continue
			}
			if !ts.Before(b.start) && ts.Before(b.end) {
				out[i].Sales += t.Total
				out[i].Count++
			}
		}
	}
	return out, nil
}

func (s *Service) TopProducts(limit int) ([]TopProduct, error) {
	txns, err := s.transactions.List()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*TopProduct)
	for _, t := range txns {
		for _, it := range t.Items {
			tp, ok := byName[it.Name]
			if !ok {
				tp = &TopProduct{Name: it.Name}
				byName[it.Name] = tp
			}
			tp.Quantity += it.Quantity
			tp.Revenue += it.UnitPrice * float64(it.Quantity)
		}
	}

	out := make([]TopProduct, 0, len(byName))
	for _, tp := range byName {
		out = append(out, *tp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) Dashboard() (Dashboard, error) {
	today, err := s.Today()
	if err != nil {
		return Dashboard{}, err
	}

	products, err := s.products.List()
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{
		TodaySales:        today.TotalSales,
		TransactionsToday: today.TransactionCount,
	}
	for _, p := range products {
		switch p.Status() {
		case product.StatusOutOfStock:
			d.OutOfStockCount++
		case product.StatusLowStock:
			d.LowStockCount++
		default:
			d.ProductsInStock++
		}
	}

	txns, err := s.transactions.List()
	if err != nil {
		return Dashboard{}, err
	}
	if len(txns) > 5 {
		txns = txns[:5]
	}
	d.RecentTransactions = txns
	return d, nil
}
