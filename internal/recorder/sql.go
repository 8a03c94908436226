package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLRecorder persists lookup history in SQLite or Postgres.
type SQLRecorder struct {
	db     *sql.DB
	driver string
}

// NewSQL opens dsn with driver ("sqlite" or "postgres") and creates the
// lookup_history table when missing.
func NewSQL(ctx context.Context, driver, dsn string) (*SQLRecorder, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported recorder driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// a single writer avoids SQLITE_BUSY and keeps :memory: on one connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	r := &SQLRecorder{db: db, driver: driver}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLRecorder) migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if r.driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lookup_history (
			id                   ` + id + `,
			symbol               TEXT NOT NULL,
			source               TEXT NOT NULL,
			coin_price           DOUBLE PRECISION NOT NULL,
			coin_price_reference DOUBLE PRECISION NOT NULL,
			at                   BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lookup_history_symbol_at ON lookup_history(symbol, at)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLRecorder) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO lookup_history (symbol, source, coin_price, coin_price_reference, at) VALUES (?, ?, ?, ?, ?)`),
		e.Symbol, e.Source, e.CoinPrice, e.CoinPriceReference, e.At.Unix())
	if err != nil {
		return fmt.Errorf("insert lookup_history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for symbol, newest first.
func (r *SQLRecorder) Recent(ctx context.Context, symbol string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		r.rebind(`SELECT symbol, source, coin_price, coin_price_reference, at FROM lookup_history WHERE symbol = ? ORDER BY at DESC, id DESC LIMIT ?`),
		symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query lookup_history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			at int64
		)
		if err := rows.Scan(&e.Symbol, &e.Source, &e.CoinPrice, &e.CoinPriceReference, &at); err != nil {
			return nil, err
		}
		e.At = time.Unix(at, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLRecorder) Close() error { return r.db.Close() }

// rebind turns "?" placeholders into "$n" for postgres.
func (r *SQLRecorder) rebind(q string) string {
	if r.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
