// Package repository содержит хранилища ленты продаж, каталога товаров, кэмпов и точек продаж.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/campstats/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrDuplicate возвращается при попытке повторно сохранить продажу с тем же идентификатором.
	ErrDuplicate = errors.New("record already exists")
	// ErrNotFound возвращается, если запись не найдена.
	ErrNotFound = errors.New("record not found")
)

// ProductFilter ограничивает выборку товаров каталога.
type ProductFilter struct {
	LocationID    string
	OnlyAvailable bool
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if isRetryable(err) && i < len(delays) {
			timer := time.NewTimer(delays[i])
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			continue
		}

		break
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// AddSale сохраняет продажу вместе с позициями чека.
func (r *PostgresRepository) AddSale(ctx context.Context, sale model.SaleRecord) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO sales (id, ts, amount) VALUES ($1, $2, $3::numeric)`,
			sale.ID, sale.Timestamp, sale.Amount.String(),
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%w: sale %s", ErrDuplicate, sale.ID)
			}
			return fmt.Errorf("insert sale: %w", err)
		}

		batch := &pgx.Batch{}
		for i, item := range sale.LineItems {
			batch.Queue(
				`INSERT INTO sale_items (sale_id, position, product_id) VALUES ($1, $2, $3)`,
				sale.ID, i, item.ID,
			)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert sale items: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// ListSales возвращает продажи с from <= timestamp < to. Нулевая граница означает отсутствие ограничения.
func (r *PostgresRepository) ListSales(ctx context.Context, from, to time.Time) ([]model.SaleRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.ts, s.amount::text,
		        COALESCE(array_agg(i.product_id ORDER BY i.position) FILTER (WHERE i.product_id IS NOT NULL), '{}')
		 FROM sales s
		 LEFT JOIN sale_items i ON i.sale_id = s.id
		 WHERE ($1::timestamptz IS NULL OR s.ts >= $1)
		   AND ($2::timestamptz IS NULL OR s.ts < $2)
		 GROUP BY s.id
		 ORDER BY s.ts, s.received_seq`,
		nullableTime(from), nullableTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}
	defer rows.Close()

	var res []model.SaleRecord
	for rows.Next() {
		var (
			s          model.SaleRecord
			amount     string
			productIDs []string
		)
		if err := rows.Scan(&s.ID, &s.Timestamp, &amount, &productIDs); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}

		s.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse sale amount %q: %w", amount, err)
		}
		for _, id := range productIDs {
			s.LineItems = append(s.LineItems, model.ProductRef{ID: id})
		}

		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SalesVersion возвращает монотонно растущий номер последней принятой продажи.
func (r *PostgresRepository) SalesVersion(ctx context.Context) (int64, error) {
	var v int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(received_seq), 0) FROM sales`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("sales version: %w", err)
	}
	return v, nil
}

// CatalogVersion возвращает номер последнего изменения товаров, кэмпов или точек продаж.
// Номер увеличивают триггеры на этих таблицах.
func (r *PostgresRepository) CatalogVersion(ctx context.Context) (int64, error) {
	var v int64
	err := r.pool.QueryRow(ctx,
		`SELECT CASE WHEN is_called THEN last_value ELSE 0 END FROM catalog_version_seq`,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("catalog version: %w", err)
	}
	return v, nil
}

// LatestSaleTime возвращает время самой поздней продажи или нулевое время, если продаж нет.
func (r *PostgresRepository) LatestSaleTime(ctx context.Context) (time.Time, error) {
	var ts *time.Time
	if err := r.pool.QueryRow(ctx, `SELECT MAX(ts) FROM sales`).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("latest sale: %w", err)
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}

// UpsertProduct создаёт или обновляет позицию каталога.
func (r *PostgresRepository) UpsertProduct(ctx context.Context, p model.Product) error {
	var abv *string
	if p.ABV != nil {
		raw, err := json.Marshal(p.ABV)
		if err != nil {
			return fmt.Errorf("encode abv: %w", err)
		}
		s := string(raw)
		abv = &s
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	locationIDs := p.LocationIDs
	if locationIDs == nil {
		locationIDs = []string{}
	}

	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO products (id, brand_name, name, description, tags, tap, sale_price, abv, unit_size, size_unit, location_ids, removed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12)
			 ON CONFLICT (id) DO UPDATE SET
			   brand_name = EXCLUDED.brand_name,
			   name = EXCLUDED.name,
			   description = EXCLUDED.description,
			   tags = EXCLUDED.tags,
			   tap = EXCLUDED.tap,
			   sale_price = EXCLUDED.sale_price,
			   abv = EXCLUDED.abv,
			   unit_size = EXCLUDED.unit_size,
			   size_unit = EXCLUDED.size_unit,
			   location_ids = EXCLUDED.location_ids,
			   removed_at = EXCLUDED.removed_at`,
			p.ID, p.BrandName, p.Name, p.Description, tags, p.Tap, p.SalePrice.String(),
			abv, p.UnitSize, p.SizeUnit, locationIDs, p.RemovedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert product: %w", err)
		}
		return nil
	})
}

const productColumns = `id, brand_name, name, description, tags, tap, sale_price::text, abv, unit_size, size_unit, location_ids, removed_at`

// GetProduct возвращает товар по идентификатору, включая снятые с продажи.
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts возвращает товары каталога, отсортированные по бренду и названию.
func (r *PostgresRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE ($1 = '' OR $1 = ANY(location_ids))
		   AND (NOT $2 OR removed_at IS NULL)
		 ORDER BY brand_name, name`,
		filter.LocationID, filter.OnlyAvailable,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p     model.Product
		price string
		abv   *string
	)
	err := row.Scan(&p.ID, &p.BrandName, &p.Name, &p.Description, &p.Tags, &p.Tap, &price,
		&abv, &p.UnitSize, &p.SizeUnit, &p.LocationIDs, &p.RemovedAt)
	if err != nil {
		return nil, err
	}

	p.SalePrice, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse sale price %q: %w", price, err)
	}

	if abv != nil {
		var v model.ABV
		if err := json.Unmarshal([]byte(*abv), &v); err != nil {
			return nil, fmt.Errorf("decode abv %q: %w", *abv, err)
		}
		p.ABV = &v
	}

	return &p, nil
}

// UpsertCamp создаёт или обновляет кэмп.
func (r *PostgresRepository) UpsertCamp(ctx context.Context, c model.Camp) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO camps (id, name, color, buildup, start_at, end_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   color = EXCLUDED.color,
			   buildup = EXCLUDED.buildup,
			   start_at = EXCLUDED.start_at,
			   end_at = EXCLUDED.end_at`,
			c.ID, c.Name, c.Color, c.Buildup, c.Start, c.End,
		)
		if err != nil {
			return fmt.Errorf("upsert camp: %w", err)
		}
		return nil
	})
}

// ListCamps возвращает кэмпы, начиная с последнего завершившегося.
func (r *PostgresRepository) ListCamps(ctx context.Context) ([]model.Camp, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, color, buildup, start_at, end_at FROM camps ORDER BY end_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select camps: %w", err)
	}
	defer rows.Close()

	var res []model.Camp
	for rows.Next() {
		var c model.Camp
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Buildup, &c.Start, &c.End); err != nil {
			return nil, fmt.Errorf("scan camp: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpsertLocation создаёт или обновляет точку продаж.
func (r *PostgresRepository) UpsertLocation(ctx context.Context, l model.Location) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO locations (id, name, curfew, closed)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   curfew = EXCLUDED.curfew,
			   closed = EXCLUDED.closed`,
			l.ID, l.Name, l.Curfew, l.Closed,
		)
		if err != nil {
			return fmt.Errorf("upsert location: %w", err)
		}
		return nil
	})
}

// GetLocation возвращает точку продаж по идентификатору.
func (r *PostgresRepository) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	var l model.Location
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, curfew, closed FROM locations WHERE id = $1`, id,
	).Scan(&l.ID, &l.Name, &l.Curfew, &l.Closed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &l, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
