package series

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/efreitasn/replaytrader/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS price_points (
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		session TEXT NOT NULL,
		idx INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		price TEXT NOT NULL,
		open TEXT,
		PRIMARY KEY (symbol, date, session, idx)
	);
`

// SQLiteProvider stores series in a SQLite database, one row per point.
// Prices are stored as decimal text.
type SQLiteProvider struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open series db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping series db: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create price_points: %w", err)
	}
	return &SQLiteProvider{db: db}, nil
}

// Close closes the database.
func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}

// Load implements Provider.
func (p *SQLiteProvider) Load(ctx context.Context, key Key) ([]domain.PricePoint, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT timestamp, price, open FROM price_points
		WHERE symbol = ? AND date = ? AND session = ?
		ORDER BY idx`,
		key.Symbol, key.Date, key.Session,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	defer rows.Close()

	var out []domain.PricePoint
	for rows.Next() {
		var (
			ts    int64
			price string
			open  sql.NullString
		)
		if err := rows.Scan(&ts, &price, &open); err != nil {
			return nil, fmt.Errorf("scan %s: %w", key, err)
		}
		pt := domain.PricePoint{Timestamp: ts}
		if pt.Price, err = parsePrice(price); err != nil {
			return nil, fmt.Errorf("%s point %d: %w", key, len(out), err)
		}
		if open.Valid {
			o, err := parsePrice(open.String)
			if err != nil {
				return nil, fmt.Errorf("%s point %d: open: %w", key, len(out), err)
			}
			pt.Open = &o
		}
		out = append(out, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", key, err)
	}
	if len(out) == 0 {
		return nil, domain.ErrSeriesNotFound
	}
	return out, nil
}

// Import replaces the series stored under key with points, in one
// transaction.
func (p *SQLiteProvider) Import(ctx context.Context, key Key, points []domain.PricePoint) error {
	if err := key.Validate(); err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM price_points WHERE symbol = ? AND date = ? AND session = ?",
		key.Symbol, key.Date, key.Session,
	); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_points (symbol, date, session, idx, timestamp, price, open)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, pt := range points {
		var open sql.NullString
		if pt.Open != nil {
			open = sql.NullString{String: pt.Open.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			key.Symbol, key.Date, key.Session, i, pt.Timestamp, pt.Price.String(), open,
		); err != nil {
			return fmt.Errorf("insert %s point %d: %w", key, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}
