package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shopradar/models"
)

// PostgresSink mirrors batch results into a shared Postgres warehouse.
// The local sqlite store stays authoritative; this sink is for dashboards
// and ad-hoc queries across machines.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(ctx context.Context, connString string) (*PostgresSink, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	sink := &PostgresSink{pool: pool}
	if err := sink.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return sink, nil
}

func (s *PostgresSink) Close() {
	s.pool.Close()
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		title TEXT NOT NULL,
		price NUMERIC(18,4),
		currency TEXT,
		original_price NUMERIC(18,4),
		url TEXT,
		availability TEXT,
		category TEXT,
		rating DOUBLE PRECISION,
		reviews_count INTEGER,
		scraped_at TIMESTAMPTZ,
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS price_events (
		id BIGSERIAL PRIMARY KEY,
		product_id TEXT NOT NULL,
		previous_price NUMERIC(18,4),
		current_price NUMERIC(18,4),
		change_amount NUMERIC(18,4),
		change_percentage NUMERIC(10,2),
		trend_direction TEXT,
		detected_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		product_id TEXT NOT NULL,
		title TEXT,
		platform TEXT,
		keyword TEXT,
		alert_type TEXT,
		target_price NUMERIC(18,4),
		price NUMERIC(18,4),
		triggered_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS trend_reports (
		id BIGSERIAL PRIMARY KEY,
		generated_at TIMESTAMPTZ,
		report JSONB
	);

	CREATE INDEX IF NOT EXISTS idx_products_platform ON products(platform);
	CREATE INDEX IF NOT EXISTS idx_price_events_product ON price_events(product_id, detected_at);
	CREATE INDEX IF NOT EXISTS idx_alerts_triggered ON alerts(triggered_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresSink) WriteProducts(ctx context.Context, products []models.Product) error {
	query := `
		INSERT INTO products (
			id, platform, title, price, currency, original_price, url,
			availability, category, rating, reviews_count, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			original_price = EXCLUDED.original_price,
			url = COALESCE(EXCLUDED.url, products.url),
			availability = EXCLUDED.availability,
			category = COALESCE(EXCLUDED.category, products.category),
			rating = COALESCE(EXCLUDED.rating, products.rating),
			reviews_count = COALESCE(EXCLUDED.reviews_count, products.reviews_count),
			scraped_at = EXCLUDED.scraped_at,
			updated_at = NOW()`

	for _, p := range products {
		_, err := s.pool.Exec(ctx, query,
			p.ID, p.Platform, p.Title, p.Price, p.Currency, p.OriginalPrice,
			p.URL, string(p.Availability), p.Category, p.Rating, p.ReviewsCount, p.ScrapedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *PostgresSink) WritePriceChanges(ctx context.Context, events []models.PriceChangeEvent) error {
	query := `
		INSERT INTO price_events (
			product_id, previous_price, current_price, change_amount,
			change_percentage, trend_direction, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, e := range events {
		_, err := s.pool.Exec(ctx, query,
			e.ProductID, e.PreviousPrice, e.CurrentPrice, e.ChangeAmount,
			e.ChangePercentage, string(e.TrendDirection), e.DetectedAt,
		)
		if err != nil {
			return fmt.Errorf("insert price event for %s: %w", e.ProductID, err)
		}
	}
	return nil
}

func (s *PostgresSink) WriteAlerts(ctx context.Context, alerts []models.Alert) error {
	query := `
		INSERT INTO alerts (product_id, title, platform, keyword, alert_type, target_price, price, triggered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, a := range alerts {
		_, err := s.pool.Exec(ctx, query,
			a.ProductID, a.Title, a.Platform, a.Keyword, string(a.Type),
			a.TargetPrice, a.Price, a.TriggeredAt,
		)
		if err != nil {
			return fmt.Errorf("insert alert for %s: %w", a.ProductID, err)
		}
	}
	return nil
}

func (s *PostgresSink) WriteTrendReport(ctx context.Context, report *models.TrendReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO trend_reports (generated_at, report) VALUES ($1, $2)`,
		report.GeneratedAt, data)
	return err
}
