package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/inventory-service/internal/inventory/domain"
)

// Repository is the stock ledger. Every quantity mutation goes through a
// single SQL statement so concurrent handlers racing on the same product
// are serialized by the row, not by application locks.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS inventory (
		id UUID PRIMARY KEY,
		product_id TEXT NOT NULL UNIQUE,
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0)
	)`)
	return err
}

// DecrementIfSufficient subtracts amount only when the current quantity
// covers it. Returns rows affected: 0 means unknown product or not enough
// stock; callers treat both as rejection.
func (r *Repository) DecrementIfSufficient(ctx context.Context, productID string, amount int) (int64, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE inventory SET quantity = quantity - $2 WHERE product_id = $1 AND quantity >= $2`,
		productID, amount)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// Increment adds amount, creating the row when absent. A cancellation that
// arrives after the product row is gone still lands somewhere visible.
func (r *Repository) Increment(ctx context.Context, productID string, amount int) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO inventory (id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity`,
		uuid.NewString(), productID, amount)
	return err
}

// UpsertZero creates the record with quantity 0. Duplicate product-created
// signals are swallowed: the row already existing is the desired state.
func (r *Repository) UpsertZero(ctx context.Context, productID string) error {
	ct, err := r.pool.Exec(ctx, `INSERT INTO inventory (id, product_id, quantity)
		VALUES ($1, $2, 0)
		ON CONFLICT (product_id) DO NOTHING`,
		uuid.NewString(), productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		r.log.Info("stock record already exists, create skipped", "product_id", productID)
	}
	return nil
}

func (r *Repository) DeleteByProductID(ctx context.Context, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM inventory WHERE product_id = $1`, productID)
	return err
}

func (r *Repository) FindByProductID(ctx context.Context, productID string) (domain.StockRecord, error) {
	var rec domain.StockRecord
	err := r.pool.QueryRow(ctx,
		`SELECT id, product_id, quantity FROM inventory WHERE product_id = $1`, productID).
		Scan(&rec.ID, &rec.ProductID, &rec.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StockRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StockRecord{}, err
	}
	return rec, nil
}

func (r *Repository) IsInStock(ctx context.Context, productID string, quantity int) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM inventory WHERE product_id = $1 AND quantity >= $2)`,
		productID, quantity).Scan(&ok)
	return ok, err
}

func (r *Repository) UpdateQuantity(ctx context.Context, productID string, quantity int) (domain.StockRecord, error) {
	var rec domain.StockRecord
	err := r.pool.QueryRow(ctx,
		`UPDATE inventory SET quantity = $2 WHERE product_id = $1 RETURNING id, product_id, quantity`,
		productID, quantity).Scan(&rec.ID, &rec.ProductID, &rec.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StockRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StockRecord{}, err
	}
	return rec, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.StockRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, quantity FROM inventory ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.StockRecord
	for rows.Next() {
		var rec domain.StockRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Quantity); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
