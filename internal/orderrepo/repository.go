// Package orderrepo stores placed orders in PostgreSQL.
package orderrepo

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrOrderNotFound = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrStatusChanged = fmt.Errorf("order status changed concurrently: %w", domain.ErrIllegalTransition)
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}
	return nil
}

// SubmitOrder inserts req as a Pending order. Re-submitting the same
// idempotency key returns the id of the order already stored. Payment details
// are not persisted.
func (r *Repository) SubmitOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order items: %w", err)
	}
	billingJSON, err := json.Marshal(req.Billing)
	if err != nil {
		return "", fmt.Errorf("failed to marshal billing details: %w", err)
	}
	shippingJSON, err := json.Marshal(req.Shipping)
	if err != nil {
		return "", fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	id := uuid.New()
	query := `INSERT INTO orders (id, idempotency_key, user_id, items, total_amount, billing_details,
	                              shipping_address, payment_method, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		id,
		req.IdempotencyKey,
		req.UserID,
		itemsJSON,
		req.TotalAmount,
		billingJSON,
		shippingJSON,
		string(req.PaymentMethod),
		string(orders.Pending))

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return r.idByIdempotencyKey(ctx, req.IdempotencyKey)
		}
		return "", fmt.Errorf("insert order: %w", insertErr)
	}
	return id.String(), nil
}

func (r *Repository) idByIdempotencyKey(ctx context.Context, key string) (string, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE idempotency_key = $1`, key).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("query order by idempotency key: %w", err)
	}
	return id.String(), nil
}

const selectOrder = `SELECT id, user_id, items, total_amount, billing_details, shipping_address,
	                        payment_method, status, created_at, updated_at
	                 FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (orders.Record, error) {
	var (
		rec                              orders.Record
		id                               uuid.UUID
		itemsJSON, billingJSON, shipJSON []byte
		paymentMethod, status            string
		updatedAt                        sql.NullTime
	)
	if err := row.Scan(
		&id,
		&rec.UserID,
		&itemsJSON,
		&rec.TotalAmount,
		&billingJSON,
		&shipJSON,
		&paymentMethod,
		&status,
		&rec.CreatedAt,
		&updatedAt,
	); err != nil {
		return orders.Record{}, err
	}

	rec.ID = id.String()
	rec.PaymentMethod = domain.PaymentMethod(paymentMethod)
	rec.Status = orders.Status(status)
	if updatedAt.Valid {
		t := updatedAt.Time
		rec.UpdatedAt = &t
	}
	if err := json.Unmarshal(itemsJSON, &rec.Items); err != nil {
		return orders.Record{}, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(billingJSON, &rec.Billing); err != nil {
		return orders.Record{}, fmt.Errorf("unmarshal billing details: %w", err)
	}
	if err := json.Unmarshal(shipJSON, &rec.Shipping); err != nil {
		return orders.Record{}, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	return rec, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID string) (orders.Record, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return orders.Record{}, ErrOrderNotFound
	}

	rec, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return orders.Record{}, ErrOrderNotFound
	}
	if err != nil {
		return orders.Record{}, fmt.Errorf("query order by id: %w", err)
	}
	return rec, nil
}

func (r *Repository) ListUserOrders(ctx context.Context, userID string) ([]orders.Record, error) {
	return r.list(ctx, selectOrder+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *Repository) ListAllOrders(ctx context.Context) ([]orders.Record, error) {
	return r.list(ctx, selectOrder+` ORDER BY created_at DESC`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]orders.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	out := []orders.Record{}
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// UpdateStatus moves the order from one status to another in a single
// conditional statement. Zero matched rows means the order is gone or another
// writer moved it first.
func (r *Repository) UpdateStatus(ctx context.Context, orderID string, from, to orders.Status) error {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return ErrOrderNotFound
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, string(to), string(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return ErrOrderNotFound
	}
	return ErrStatusChanged
}

func (r *Repository) DeleteOrder(ctx context.Context, orderID string) error {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return ErrOrderNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
