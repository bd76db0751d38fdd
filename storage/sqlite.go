package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"shopradar/models"
)

// SQLiteStore is the local durable store: product catalog, price history,
// price events, the alert delivery queue, run bookkeeping and reports.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		title TEXT NOT NULL,
		price TEXT,
		currency TEXT,
		original_price TEXT,
		url TEXT,
		availability TEXT,
		category TEXT,
		rating REAL,
		reviews_count INTEGER,
		scraped_at DATETIME,
		first_seen_at DATETIME,
		last_seen_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS price_snapshots (
		id INTEGER PRIMARY KEY,
		product_id TEXT NOT NULL,
		price TEXT NOT NULL,
		currency TEXT,
		observed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS price_events (
		id INTEGER PRIMARY KEY,
		product_id TEXT NOT NULL,
		previous_price TEXT,
		current_price TEXT,
		change_amount TEXT,
		change_percentage TEXT,
		trend_direction TEXT,
		detected_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY,
		product_id TEXT NOT NULL,
		title TEXT,
		platform TEXT,
		keyword TEXT,
		alert_type TEXT,
		target_price TEXT,
		price TEXT,
		triggered_at DATETIME,
		notified_at DATETIME,
		notify_attempts INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		batch_id TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		stats JSON
	);

	CREATE TABLE IF NOT EXISTS trend_reports (
		id INTEGER PRIMARY KEY,
		generated_at DATETIME,
		report JSON
	);

	CREATE INDEX IF NOT EXISTS idx_products_platform ON products(platform);
	CREATE INDEX IF NOT EXISTS idx_snapshots_product ON price_snapshots(product_id, observed_at);
	CREATE INDEX IF NOT EXISTS idx_events_product ON price_events(product_id, detected_at);
	CREATE INDEX IF NOT EXISTS idx_alerts_pending ON alerts(notified_at) WHERE notified_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func decToText(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func textToDec(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Snapshots returns a product's history oldest first.
func (s *SQLiteStore) Snapshots(productID string) ([]models.PriceSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, product_id, price, currency, observed_at
		FROM price_snapshots WHERE product_id = ? ORDER BY observed_at, id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.PriceSnapshot
	for rows.Next() {
		var snap models.PriceSnapshot
		var price string
		var currency sql.NullString
		if err := rows.Scan(&snap.ID, &snap.ProductID, &price, &currency, &snap.ObservedAt); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		snap.Price = d
		snap.Currency = currency.String
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

func (s *SQLiteStore) AppendSnapshot(snap *models.PriceSnapshot) error {
	result, err := s.db.Exec(`
		INSERT INTO price_snapshots (product_id, price, currency, observed_at)
		VALUES (?, ?, ?, ?)`,
		snap.ProductID, snap.Price.String(), snap.Currency, snap.ObservedAt)
	if err != nil {
		return err
	}
	snap.ID, _ = result.LastInsertId()
	return nil
}

// PruneSnapshots trims every product's history to the newest keep
// snapshots and reports how many rows went away.
func (s *SQLiteStore) PruneSnapshots(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	result, err := s.db.Exec(`
		DELETE FROM price_snapshots WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY product_id ORDER BY observed_at DESC, id DESC
				) AS rank
				FROM price_snapshots
			) WHERE rank > ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) WriteProducts(ctx context.Context, products []models.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range products {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, platform, title, price, currency, original_price, url,
				availability, category, rating, reviews_count, scraped_at, first_seen_at, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				price = excluded.price,
				currency = excluded.currency,
				original_price = excluded.original_price,
				url = excluded.url,
				availability = excluded.availability,
				category = COALESCE(excluded.category, category),
				rating = COALESCE(excluded.rating, rating),
				reviews_count = COALESCE(excluded.reviews_count, reviews_count),
				scraped_at = excluded.scraped_at,
				last_seen_at = excluded.last_seen_at`,
			p.ID, p.Platform, p.Title, decToText(p.Price), p.Currency, decToText(p.OriginalPrice),
			p.URL, string(p.Availability), p.Category, p.Rating, p.ReviewsCount,
			p.ScrapedAt, p.ScrapedAt, p.ScrapedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetProduct reads one product row back, nil when absent.
func (s *SQLiteStore) GetProduct(id string) (*models.Product, error) {
	row := s.db.QueryRow(`
		SELECT id, platform, title, price, currency, original_price, url,
			availability, category, rating, reviews_count, scraped_at
		FROM products WHERE id = ?`, id)

	var p models.Product
	var price, originalPrice, currency, url, availability, category sql.NullString
	var rating sql.NullFloat64
	var reviews sql.NullInt64
	err := row.Scan(&p.ID, &p.Platform, &p.Title, &price, &currency, &originalPrice,
		&url, &availability, &category, &rating, &reviews, &p.ScrapedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if p.Price, err = textToDec(price); err != nil {
		return nil, err
	}
	if p.OriginalPrice, err = textToDec(originalPrice); err != nil {
		return nil, err
	}
	p.Currency = currency.String
	p.URL = url.String
	p.Availability = models.Availability(availability.String)
	if category.Valid {
		p.Category = &category.String
	}
	if rating.Valid {
		p.Rating = &rating.Float64
	}
	if reviews.Valid {
		n := int(reviews.Int64)
		p.ReviewsCount = &n
	}
	return &p, nil
}

func (s *SQLiteStore) WritePriceChanges(ctx context.Context, events []models.PriceChangeEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO price_events (product_id, previous_price, current_price, change_amount,
				change_percentage, trend_direction, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ProductID, e.PreviousPrice.String(), e.CurrentPrice.String(), e.ChangeAmount.String(),
			decToText(e.ChangePercentage), string(e.TrendDirection), e.DetectedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// WriteAlerts queues fired alerts for the notifier worker.
func (s *SQLiteStore) WriteAlerts(ctx context.Context, alerts []models.Alert) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range alerts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO alerts (product_id, title, platform, keyword, alert_type, target_price, price, triggered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ProductID, a.Title, a.Platform, a.Keyword, string(a.Type),
			a.TargetPrice.String(), a.Price.String(), a.TriggeredAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) WriteTrendReport(ctx context.Context, report *models.TrendReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trend_reports (generated_at, report) VALUES (?, ?)`,
		report.GeneratedAt, string(data))
	return err
}

// PendingAlerts returns undelivered alerts, oldest first. Alerts that
// failed delivery three times are abandoned.
func (s *SQLiteStore) PendingAlerts(limit int) ([]models.Alert, error) {
	rows, err := s.db.Query(`
		SELECT id, product_id, title, platform, keyword, alert_type, target_price, price, triggered_at
		FROM alerts
		WHERE notified_at IS NULL AND notify_attempts < 3
		ORDER BY triggered_at, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var alertType, targetPrice, price string
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Title, &a.Platform, &a.Keyword,
			&alertType, &targetPrice, &price, &a.TriggeredAt); err != nil {
			return nil, err
		}
		a.Type = models.AlertType(alertType)
		if a.TargetPrice, err = decimal.NewFromString(targetPrice); err != nil {
			return nil, err
		}
		if a.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteStore) MarkAlertNotified(id int64) error {
	_, err := s.db.Exec(`UPDATE alerts SET notified_at = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}

func (s *SQLiteStore) BumpAlertAttempt(id int64) error {
	_, err := s.db.Exec(`UPDATE alerts SET notify_attempts = notify_attempts + 1 WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) error {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (batch_id, started_at, status)
		VALUES (?, ?, ?)`,
		run.BatchID, run.StartedAt, string(run.Status))
	if err != nil {
		return err
	}
	run.ID, _ = result.LastInsertId()
	return nil
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, stats = ?
		WHERE id = ?`,
		run.FinishedAt, string(run.Status), string(run.Stats), run.ID)
	return err
}
