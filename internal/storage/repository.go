package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"subtrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists subscriptions, payment methods, settings, the
// cached fx rate and the reminder log in a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite repository ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers; used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const subscriptionColumns = `id, name, category, amount, currency, billing_cycle, billing_day,
	billing_month, is_active, created_at, updated_at, ended_at, free_until, started_at,
	promo_amount, promo_until, payment_method_id, service_url, notes, is_paid`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (core.Subscription, error) {
	var (
		s                                         core.Subscription
		category, currency, cycle                 string
		createdAt, updatedAt                      string
		endedAt, freeUntil, startedAt, promoUntil sql.NullString
		promoAmount                               sql.NullFloat64
		paymentMethodID                           sql.NullString
	)
	err := row.Scan(&s.ID, &s.Name, &category, &s.Amount, &currency, &cycle, &s.BillingDay,
		&s.BillingMonth, &s.IsActive, &createdAt, &updatedAt, &endedAt, &freeUntil, &startedAt,
		&promoAmount, &promoUntil, &paymentMethodID, &s.ServiceURL, &s.Notes, &s.IsPaid)
	if err != nil {
		return core.Subscription{}, err
	}
	s.Category = core.Category(category)
	s.Currency = core.Currency(currency)
	s.BillingCycle = core.BillingCycle(cycle)

	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Subscription{}, fmt.Errorf("created_at: %w", err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Subscription{}, fmt.Errorf("updated_at: %w", err)
	}
	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{endedAt, &s.EndedAt},
		{freeUntil, &s.FreeUntil},
		{startedAt, &s.StartedAt},
		{promoUntil, &s.PromoUntil},
	} {
		if *f.dst, err = parseNullTime(f.src); err != nil {
			return core.Subscription{}, err
		}
	}
	if promoAmount.Valid {
		v := promoAmount.Float64
		s.PromoAmount = &v
	}
	if paymentMethodID.Valid {
		v := paymentMethodID.String
		s.PaymentMethodID = &v
	}
	return s, nil
}

func (r *SQLiteRepository) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetSubscription(ctx context.Context, id string) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return s, nil
}

func subscriptionArgs(s core.Subscription) []any {
	return []any{
		s.Name, string(s.Category), s.Amount, string(s.Currency), string(s.BillingCycle),
		s.BillingDay, s.BillingMonth, s.IsActive, formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
		nullTime(s.EndedAt), nullTime(s.FreeUntil), nullTime(s.StartedAt),
		nullFloat(s.PromoAmount), nullTime(s.PromoUntil), nullString(s.PaymentMethodID),
		s.ServiceURL, s.Notes, s.IsPaid,
	}
}

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) error {
	args := append([]any{s.ID}, subscriptionArgs(s)...)
	_, err := r.db.ExecContext(ctx, `INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	slog.InfoContext(ctx, "Subscription saved to SQLite",
		"id", s.ID,
		"name", s.Name,
		"amount", s.Amount,
		"currency", s.Currency)
	return nil
}

func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, s core.Subscription) error {
	args := append(subscriptionArgs(s), s.ID)
	res, err := r.db.ExecContext(ctx, `UPDATE subscriptions SET
		name = ?, category = ?, amount = ?, currency = ?, billing_cycle = ?, billing_day = ?,
		billing_month = ?, is_active = ?, created_at = ?, updated_at = ?, ended_at = ?,
		free_until = ?, started_at = ?, promo_amount = ?, promo_until = ?,
		payment_method_id = ?, service_url = ?, notes = ?, is_paid = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update subscription %s: %w", s.ID, err)
	}
	return expectOne(res, "subscription", s.ID)
}

func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription %s: %w", id, err)
	}
	if err := expectOne(res, "subscription", id); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reminders_sent WHERE subscription_id = ?`, id); err != nil {
		slog.WarnContext(ctx, "Failed to purge reminder log", "id", id, "error", err)
	}
	return nil
}

func (r *SQLiteRepository) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, last4, color, created_at FROM payment_methods ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentMethod
	for rows.Next() {
		m, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanPaymentMethod(row rowScanner) (core.PaymentMethod, error) {
	var (
		m         core.PaymentMethod
		typ       string
		createdAt string
	)
	if err := row.Scan(&m.ID, &m.Name, &typ, &m.Last4, &m.Color, &createdAt); err != nil {
		return core.PaymentMethod{}, err
	}
	m.Type = core.PaymentMethodType(typ)
	t, err := parseTime(createdAt)
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("created_at: %w", err)
	}
	m.CreatedAt = t
	return m, nil
}

func (r *SQLiteRepository) GetPaymentMethod(ctx context.Context, id string) (core.PaymentMethod, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, last4, color, created_at FROM payment_methods WHERE id = ?`, id)
	m, err := scanPaymentMethod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentMethod{}, fmt.Errorf("payment method %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("get payment method %s: %w", id, err)
	}
	return m, nil
}

func (r *SQLiteRepository) CreatePaymentMethod(ctx context.Context, m core.PaymentMethod) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_methods (id, name, type, last4, color, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, string(m.Type), m.Last4, m.Color, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdatePaymentMethod(ctx context.Context, m core.PaymentMethod) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_methods SET name = ?, type = ?, last4 = ?, color = ? WHERE id = ?`,
		m.Name, string(m.Type), m.Last4, m.Color, m.ID)
	if err != nil {
		return fmt.Errorf("update payment method %s: %w", m.ID, err)
	}
	return expectOne(res, "payment method", m.ID)
}

func (r *SQLiteRepository) DeletePaymentMethod(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cleared, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET payment_method_id = NULL WHERE payment_method_id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear payment method references: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM payment_methods WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment method %s: %w", id, err)
	}
	if err := expectOne(res, "payment method", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	n, _ := cleared.RowsAffected()
	slog.InfoContext(ctx, "Payment method deleted", "id", id, "subscriptions_cleared", n)
	return nil
}

func (r *SQLiteRepository) LoadSettings(ctx context.Context) (core.Settings, error) {
	var (
		s        core.Settings
		cur      string
		lang     string
		homeMode string
	)
	err := r.db.QueryRowContext(ctx, `SELECT default_currency, horizon_days, first_day_of_week,
		language, home_dashboard_mode FROM settings WHERE id = 1`).
		Scan(&cur, &s.HorizonDays, &s.FirstDayOfWeek, &lang, &homeMode)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	s.DefaultCurrency = core.Currency(cur)
	s.Language = core.Language(lang)
	s.HomeDashboardMode = core.DashboardMode(homeMode)
	return s.Normalize(), nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.Settings) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO settings
		(id, default_currency, horizon_days, first_day_of_week, language, home_dashboard_mode)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			default_currency = excluded.default_currency,
			horizon_days = excluded.horizon_days,
			first_day_of_week = excluded.first_day_of_week,
			language = excluded.language,
			home_dashboard_mode = excluded.home_dashboard_mode`,
		string(s.DefaultCurrency), s.HorizonDays, s.FirstDayOfWeek, string(s.Language), string(s.HomeDashboardMode))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadRates(ctx context.Context) (core.FxRateCache, bool, error) {
	var (
		c           core.FxRateCache
		lastUpdated string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT usd_to_krw, krw_to_usd, last_updated, source FROM fx_rate_cache WHERE id = 1`).
		Scan(&c.UsdToKrw, &c.KrwToUsd, &lastUpdated, &c.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FxRateCache{}, false, nil
	}
	if err != nil {
		return core.FxRateCache{}, false, fmt.Errorf("load fx cache: %w", err)
	}
	if c.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return core.FxRateCache{}, false, fmt.Errorf("fx cache last_updated: %w", err)
	}
	return c, true, nil
}

func (r *SQLiteRepository) SaveRates(ctx context.Context, c core.FxRateCache) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO fx_rate_cache (id, usd_to_krw, krw_to_usd, last_updated, source)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			usd_to_krw = excluded.usd_to_krw,
			krw_to_usd = excluded.krw_to_usd,
			last_updated = excluded.last_updated,
			source = excluded.source`,
		c.UsdToKrw, c.KrwToUsd, formatTime(c.LastUpdated), c.Source)
	if err != nil {
		return fmt.Errorf("save fx cache: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkReminderSent(ctx context.Context, subID string, due time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reminders_sent (subscription_id, due_date, sent_at) VALUES (?, ?, ?)`,
		subID, due.Format(DateLayout), formatTime(time.Now()))
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func expectOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
