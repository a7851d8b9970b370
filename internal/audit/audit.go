package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionCreate         = "CREATE"
	ActionUpdate         = "UPDATE"
	ActionDelete         = "DELETE"
	ActionUpdateStatus   = "UPDATE_STATUS"
	ActionGenerateReport = "GENERATE_REPORT"
)

type Entry struct {
	ID          int64          `json:"id"`
	ActorUserID int64          `json:"actor_user_id"`
	Action      string         `json:"action"`
	Entity      string         `json:"entity"`
	EntityID    int64          `json:"entity_id"`
	Meta        map[string]any `json:"meta"`
	CreatedAt   time.Time      `json:"created_at"`
}

// InsertTx menulis audit entry DI DALAM transaksi yang sama dengan mutasi
// yang dicatatnya; gagal insert audit = seluruh operasi abort.
func InsertTx(ctx context.Context, tx pgx.Tx, e Entry) error {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("marshal audit meta: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO audit_log(actor_user_id, action, entity, entity_id, meta)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ActorUserID, e.Action, e.Entity, e.EntityID, meta,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Append(ctx context.Context, e Entry) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := InsertTx(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) List(ctx context.Context, page, size int) ([]Entry, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, actor_user_id, action, entity, COALESCE(entity_id, 0), meta, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorUserID, &e.Action, &e.Entity, &e.EntityID, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &e.Meta); err != nil {
			return nil, fmt.Errorf("decode audit meta: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
