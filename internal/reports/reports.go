package reports

import (
	"sort"
	"time"

	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
	"github.com/ariefcatur/koperasi-orders.git/internal/orders"
)

const lowStockThreshold = 10

type Period struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type Summary struct {
	TotalOrders       int   `json:"total_orders"`
	TotalRevenueRp    int64 `json:"total_revenue_rp"`
	AverageOrderValue int64 `json:"average_order_value"`
	UniqueCustomers   int   `json:"unique_customers"`
}

type ProductStat struct {
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	Category       string `json:"category"`
	Unit           string `json:"unit"`
	TotalQty       int    `json:"total_qty"`
	TotalRevenueRp int64  `json:"total_revenue_rp"`
	OrderCount     int    `json:"order_count"`
}

type DailySales struct {
	Day        int   `json:"day"`
	OrderCount int   `json:"order_count"`
	RevenueRp  int64 `json:"revenue_rp"`
}

type StockLevels struct {
	Total    int               `json:"total"`
	LowStock int               `json:"low_stock"`
	Items    []catalog.Product `json:"items"`
}

type Monthly struct {
	Period      Period        `json:"period"`
	Summary     Summary       `json:"summary"`
	TopProducts []ProductStat `json:"top_products"`
	StockLevels StockLevels   `json:"stock_levels"`
	DailySales  []DailySales  `json:"daily_sales"`
}

// MonthRange: [awal bulan, akhir bulan] dalam waktu lokal.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// BuildMonthly mengagregasi order COMPLETED sebulan (dengan lines) plus
// stok produk aktif saat ini menjadi laporan bulanan. Pure function
// supaya gampang dites tanpa DB.
func BuildMonthly(year, month int, completed []orders.Order, products map[int64]catalog.Product, active []catalog.Product) Monthly {
	start, end := MonthRange(year, month)

	var revenue int64
	customers := map[int64]struct{}{}
	stats := map[int64]*ProductStat{}
	daily := map[int]*DailySales{}

	for _, o := range completed {
		revenue += o.SubtotalRp
		customers[o.UserID] = struct{}{}

		day := o.CreatedAt.Day()
		d, ok := daily[day]
		if !ok {
			d = &DailySales{Day: day}
			daily[day] = d
		}
		d.OrderCount++
		d.RevenueRp += o.SubtotalRp

		for _, l := range o.Items {
			s, ok := stats[l.ProductID]
			if !ok {
				s = &ProductStat{ProductID: l.ProductID}
				if p, ok := products[l.ProductID]; ok {
					s.ProductName = p.Name
					s.Category = p.Category
					s.Unit = p.Unit
				}
				stats[l.ProductID] = s
			}
			s.TotalQty += l.Qty
			s.TotalRevenueRp += l.TotalRp()
			s.OrderCount++
		}
	}

	top := make([]ProductStat, 0, len(stats))
	for _, s := range stats {
		top = append(top, *s)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalQty != top[j].TotalQty {
			return top[i].TotalQty > top[j].TotalQty
		}
		return top[i].ProductID < top[j].ProductID
	})
	if len(top) > 10 {
		top = top[:10]
	}

	days := make([]DailySales, 0, len(daily))
	for _, d := range daily {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	var low []catalog.Product
	for _, p := range active {
		if p.Stock < lowStockThreshold {
			low = append(low, p)
		}
	}

	avg := int64(0)
	if len(completed) > 0 {
		avg = revenue / int64(len(completed))
	}

	return Monthly{
		Period:      Period{Year: year, Month: month, StartDate: start, EndDate: end},
		Summary:     Summary{TotalOrders: len(completed), TotalRevenueRp: revenue, AverageOrderValue: avg, UniqueCustomers: len(customers)},
		TopProducts: top,
		StockLevels: StockLevels{Total: len(active), LowStock: len(low), Items: low},
		DailySales:  days,
	}
}

type StatusCount struct {
	Status orders.Status `json:"status"`
	Count  int           `json:"count"`
}

type CategoryStat struct {
	Category   string `json:"category"`
	TotalQty   int    `json:"total_qty"`
	OrderCount int    `json:"order_count"`
}

type Analytics struct {
	Days               int            `json:"days"`
	StatusDistribution []StatusCount  `json:"status_distribution"`
	CategoryStats      []CategoryStat `json:"category_stats"`
}

// BuildAnalytics: distribusi status N hari terakhir + performa kategori
// dari order COMPLETED.
func BuildAnalytics(days int, recent []orders.Order, products map[int64]catalog.Product) Analytics {
	byStatus := map[orders.Status]int{}
	byCategory := map[string]*CategoryStat{}

	for _, o := range recent {
		byStatus[o.Status]++
		if o.Status != orders.StatusCompleted {
			continue
		}
		for _, l := range o.Items {
			cat := ""
			if p, ok := products[l.ProductID]; ok {
				cat = p.Category
			}
			c, ok := byCategory[cat]
			if !ok {
				c = &CategoryStat{Category: cat}
				byCategory[cat] = c
			}
			c.TotalQty += l.Qty
			c.OrderCount++
		}
	}

	sc := make([]StatusCount, 0, len(byStatus))
	for s, n := range byStatus {
		sc = append(sc, StatusCount{Status: s, Count: n})
	}
	sort.Slice(sc, func(i, j int) bool { return sc[i].Status < sc[j].Status })

	cs := make([]CategoryStat, 0, len(byCategory))
	for _, c := range byCategory {
		cs = append(cs, *c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].TotalQty > cs[j].TotalQty })

	return Analytics{Days: days, StatusDistribution: sc, CategoryStats: cs}
}
