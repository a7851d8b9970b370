package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/koperasi-orders.git/internal/audit"
)

var ErrNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, sku, name, category, unit, price_rp, stock, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit,
		&p.PriceRp, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) GetByID(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// List hanya produk aktif; pencarian nama case-insensitive.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Product, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 || f.Size > 100 {
		f.Size = 20
	}
	order := "name"
	switch f.Sort {
	case "price_rp", "stock", "sku":
		order = f.Sort
	}

	where := `WHERE is_active`
	args := []any{}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Size, (f.Page-1)*f.Size)
	q := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productCols, where, order, len(args)-1, len(args))
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit,
			&p.PriceRp, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *Repo) Create(ctx context.Context, actorID int64, in ProductInput) (Product, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return Product{}, err
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `
		INSERT INTO products(sku, name, category, unit, price_rp, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productCols,
		in.SKU, in.Name, in.Category, in.Unit, in.PriceRp, in.Stock))
	if err != nil {
		return Product{}, err
	}

	err = audit.InsertTx(ctx, tx, audit.Entry{
		ActorUserID: actorID,
		Action:      audit.ActionCreate,
		Entity:      "Product",
		EntityID:    p.ID,
		Meta:        map[string]any{"productName": p.Name},
	})
	if err != nil {
		return Product{}, err
	}
	return p, tx.Commit(ctx)
}

func (r *Repo) Update(ctx context.Context, actorID, id int64, patch ProductPatch) (Product, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return Product{}, err
	}
	defer tx.Rollback(ctx)

	cur, err := scanProduct(tx.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	} else if err != nil {
		return Product{}, err
	}

	if patch.Name != nil {
		cur.Name = *patch.Name
	}
	if patch.Category != nil {
		cur.Category = *patch.Category
	}
	if patch.Unit != nil {
		cur.Unit = *patch.Unit
	}
	if patch.PriceRp != nil {
		cur.PriceRp = *patch.PriceRp
	}
	if patch.Stock != nil {
		cur.Stock = *patch.Stock
	}
	if patch.IsActive != nil {
		cur.IsActive = *patch.IsActive
	}

	p, err := scanProduct(tx.QueryRow(ctx, `
		UPDATE products
		SET name=$2, category=$3, unit=$4, price_rp=$5, stock=$6, is_active=$7, updated_at=now()
		WHERE id=$1
		RETURNING `+productCols,
		id, cur.Name, cur.Category, cur.Unit, cur.PriceRp, cur.Stock, cur.IsActive))
	if err != nil {
		return Product{}, err
	}

	err = audit.InsertTx(ctx, tx, audit.Entry{
		ActorUserID: actorID,
		Action:      audit.ActionUpdate,
		Entity:      "Product",
		EntityID:    id,
		Meta:        map[string]any{"productName": p.Name},
	})
	if err != nil {
		return Product{}, err
	}
	return p, tx.Commit(ctx)
}

// Delete = soft delete: matikan is_active, row tetap ada karena
// order_items lama masih mereferensikan produk.
func (r *Repo) Delete(ctx context.Context, actorID, id int64) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE products SET is_active=FALSE, updated_at=now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	err = audit.InsertTx(ctx, tx, audit.Entry{
		ActorUserID: actorID,
		Action:      audit.ActionDelete,
		Entity:      "Product",
		EntityID:    id,
	})
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
