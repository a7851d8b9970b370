package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/koperasi-orders.git/internal/audit"
	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
)

type Repo struct {
	DB         *pgxpool.Pool
	CodePrefix string // e.g. "KOP"
}

const orderCols = `id, order_code, user_id, status, delivery_method, delivery_target, notes, subtotal_rp, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status, method string
	err := row.Scan(&o.ID, &o.OrderCode, &o.UserID, &status, &method,
		&o.DeliveryTarget, &o.Notes, &o.SubtotalRp, &o.CreatedAt, &o.UpdatedAt)
	o.Status = Status(status)
	o.DeliveryMethod = DeliveryMethod(method)
	return o, err
}

// Create menjalankan seluruh pembuatan order dalam satu transaksi:
// validasi produk, snapshot harga, insert order+lines+audit. Stok TIDAK
// dikurangi di sini; reservasi terjadi di edge PENDING->PROCESSING.
// Collision order code di-retry dengan code baru.
func (r *Repo) Create(ctx context.Context, in CreateInput) (Order, error) {
	if err := ValidateCreate(in); err != nil {
		return Order{}, err
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		code := GenerateCode(r.CodePrefix, time.Now())
		o, err := r.createWithCode(ctx, in, code)
		if isUniqueViolation(err, "order_code") {
			lastErr = err
			continue
		}
		return o, err
	}
	return Order{}, fmt.Errorf("order code collision after retries: %w", lastErr)
}

func (r *Repo) createWithCode(ctx context.Context, in CreateInput, code string) (Order, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback(ctx)

	products, err := loadProducts(ctx, tx, in.Items)
	if err != nil {
		return Order{}, err
	}
	lines, subtotal, err := PriceLines(in.Items, products)
	if err != nil {
		return Order{}, err
	}

	o, err := scanOrder(tx.QueryRow(ctx, `
		INSERT INTO orders(order_code, user_id, status, delivery_method, delivery_target, notes, subtotal_rp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+orderCols,
		code, in.UserID, string(StatusPending), string(in.DeliveryMethod),
		in.DeliveryTarget, in.Notes, subtotal))
	if err != nil {
		return Order{}, err
	}

	for i := range lines {
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, price_rp)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			o.ID, lines[i].ProductID, lines[i].Qty, lines[i].PriceRp,
		).Scan(&lines[i].ID)
		if err != nil {
			return Order{}, err
		}
		lines[i].OrderID = o.ID
	}
	o.Items = lines

	err = audit.InsertTx(ctx, tx, audit.Entry{
		ActorUserID: in.UserID,
		Action:      audit.ActionCreate,
		Entity:      "Order",
		EntityID:    o.ID,
		Meta: map[string]any{
			"orderCode": o.OrderCode,
			"subtotal":  subtotal,
			"lineCount": len(lines),
		},
	})
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// TransitionStatus menjalankan satu edge dari tabel transisi. Di edge
// PENDING->PROCESSING setiap product row di-lock FOR UPDATE, stok dicek
// ulang, lalu dikurangi; kekurangan di satu line = abort semua (order
// tetap PENDING, stok utuh).
func (r *Repo) TransitionStatus(ctx context.Context, orderID int64, to Status, notes string, adminID int64) (Order, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback(ctx)

	cur, err := scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, NotFoundf("order %d not found", orderID)
	} else if err != nil {
		return Order{}, err
	}

	eff, err := ValidateTransition(cur.Status, to, notes)
	if err != nil {
		return Order{}, err
	}

	if eff == EffectReserve {
		items, err := loadLines(ctx, tx, orderID)
		if err != nil {
			return Order{}, err
		}
		for _, it := range items {
			var stock int
			if err := tx.QueryRow(ctx,
				`SELECT stock FROM products WHERE id=$1 FOR UPDATE`, it.ProductID,
			).Scan(&stock); err != nil {
				return Order{}, err
			}
			if stock < it.Qty {
				return Order{}, Conflictf("insufficient stock for product %d (available %d, requested %d)",
					it.ProductID, stock, it.Qty)
			}
			if _, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
				it.ProductID, it.Qty); err != nil {
				return Order{}, err
			}
		}
	}

	newNotes := cur.Notes
	if strings.TrimSpace(notes) != "" {
		newNotes = notes
	}
	updated, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, notes=$3, updated_at=now()
		WHERE id=$1
		RETURNING `+orderCols,
		orderID, string(to), newNotes))
	if err != nil {
		return Order{}, err
	}

	err = audit.InsertTx(ctx, tx, audit.Entry{
		ActorUserID: adminID,
		Action:      audit.ActionUpdateStatus,
		Entity:      "Order",
		EntityID:    orderID,
		Meta: map[string]any{
			"oldStatus": cur.Status,
			"newStatus": to,
			"notes":     notes,
			"orderCode": cur.OrderCode,
		},
	})
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return updated, nil
}

// GetByID; kalau admin=false, hanya order milik userID yang kelihatan.
func (r *Repo) GetByID(ctx context.Context, id, userID int64, admin bool) (Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	args := []any{id}
	if !admin {
		q += ` AND user_id=$2`
		args = append(args, userID)
	}
	o, err := scanOrder(r.DB.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, NotFoundf("order %d not found", id)
	} else if err != nil {
		return Order{}, err
	}
	o.Items, err = loadLines(ctx, r.DB, id)
	return o, err
}

func (r *Repo) GetStatus(ctx context.Context, id int64) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", NotFoundf("order %d not found", id)
	}
	return Status(s), err
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	out, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = loadLines(ctx, r.DB, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 || f.Size > 100 {
		f.Size = 20
	}
	where := `WHERE TRUE`
	args := []any{}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Size, (f.Page-1)*f.Size)
	q := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderCols, where, len(args)-1, len(args))
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		if out[i].Items, err = loadLines(ctx, r.DB, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// ---- helpers ----

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadProducts(ctx context.Context, q querier, items []ItemInput) (map[int64]catalog.Product, error) {
	ids := make([]any, 0, len(items))
	params := ""
	for i, it := range items {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		ids = append(ids, it.ProductID)
	}
	rows, err := q.Query(ctx,
		`SELECT id, name, price_rp, stock, is_active FROM products WHERE id IN (`+params+`)`, ids...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]catalog.Product{}
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceRp, &p.Stock, &p.IsActive); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func loadLines(ctx context.Context, q querier, orderID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, qty, price_rp
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Qty, &l.PriceRp); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		var status, method string
		if err := rows.Scan(&o.ID, &o.OrderCode, &o.UserID, &status, &method,
			&o.DeliveryTarget, &o.Notes, &o.SubtotalRp, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = Status(status)
		o.DeliveryMethod = DeliveryMethod(method)
		out = append(out, o)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error, constraintPart string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, constraintPart)
}
