package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
	"github.com/ariefcatur/koperasi-orders.git/internal/orders"
)

// Repo: read-side saja. Agregasi dikerjakan di Go (BuildMonthly /
// BuildAnalytics), repo hanya menarik baris mentah.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) OrdersInRange(ctx context.Context, status orders.Status, from, to time.Time) ([]orders.Order, error) {
	q := `SELECT id, order_code, user_id, status, subtotal_rp, created_at
	      FROM orders WHERE created_at BETWEEN $1 AND $2`
	args := []any{from, to}
	if status != "" {
		args = append(args, string(status))
		q += ` AND status=$3`
	}
	rows, err := r.DB.Query(ctx, q+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var o orders.Order
		var st string
		if err := rows.Scan(&o.ID, &o.OrderCode, &o.UserID, &st, &o.SubtotalRp, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = orders.Status(st)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := r.attachLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) attachLines(ctx context.Context, o *orders.Order) error {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, qty, price_rp
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l orders.Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Qty, &l.PriceRp); err != nil {
			return err
		}
		o.Items = append(o.Items, l)
	}
	return rows.Err()
}

func (r *Repo) ProductsByID(ctx context.Context, ids []int64) (map[int64]catalog.Product, error) {
	out := map[int64]catalog.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	params := ""
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, category, unit FROM products WHERE id IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Unit); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) ActiveProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, category, unit, stock FROM products
		WHERE is_active ORDER BY stock`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.Stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LineProductIDs mengumpulkan product id unik dari sekumpulan order.
func LineProductIDs(os []orders.Order) []int64 {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, o := range os {
		for _, l := range o.Items {
			if _, ok := seen[l.ProductID]; !ok {
				seen[l.ProductID] = struct{}{}
				ids = append(ids, l.ProductID)
			}
		}
	}
	return ids
}
