// Package persistence provides SQLite-backed storage for trades and
// per-round inventory snapshots. Writes are append-only; the simulation
// never reads its own history back except for end-of-run analytics.
package persistence

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/caio-almeid4/marketplace-simulation/internal/agents"
	"github.com/caio-almeid4/marketplace-simulation/internal/market"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates the database at path. ":memory:" works for
// tests.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		supplier TEXT NOT NULL,
		buyer TEXT NOT NULL,
		item TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		direction TEXT NOT NULL,
		round INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS inventory_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_name TEXT NOT NULL,
		round_number INTEGER NOT NULL,
		cash TEXT NOT NULL,
		apple INTEGER NOT NULL,
		chip INTEGER NOT NULL,
		gold INTEGER NOT NULL,
		energy INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_round ON trades(round);
	CREATE INDEX IF NOT EXISTS idx_snapshots_agent ON inventory_snapshots(agent_name);
	CREATE INDEX IF NOT EXISTS idx_snapshots_round ON inventory_snapshots(round_number);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RecordTrade appends one settled trade. Prices are stored as decimal
// strings to keep them exact.
func (db *DB) RecordTrade(t market.Trade) error {
	_, err := db.conn.Exec(
		`INSERT INTO trades (supplier, buyer, item, quantity, price, note, direction, round)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Supplier, t.Buyer, t.Item(), t.Quantity, t.Price.String(),
		t.Note, string(t.Direction), t.Round,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// WriteInventorySnapshots stores one row per agent for the round,
// committed together.
func (db *DB) WriteInventorySnapshots(round int, pool []*agents.Agent) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(
		`INSERT INTO inventory_snapshots
		 (agent_name, round_number, cash, apple, chip, gold, energy, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range pool {
		goods := a.Inventory.GoodsMap()
		_, err := stmt.Exec(
			a.Name, round, a.Inventory.Cash.String(),
			goods["apple"], goods["chip"], goods["gold"],
			a.Energy, a.Status.String(),
		)
		if err != nil {
			return fmt.Errorf("insert snapshot for %s: %w", a.Name, err)
		}
	}
	return tx.Commit()
}

// SetMeta stores a run metadata key-value pair.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// GetMeta retrieves a run metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}

// TradeRow is one persisted trade.
type TradeRow struct {
	ID        int64  `db:"id"`
	Supplier  string `db:"supplier"`
	Buyer     string `db:"buyer"`
	Item      string `db:"item"`
	Quantity  int    `db:"quantity"`
	Price     string `db:"price"`
	Note      string `db:"note"`
	Direction string `db:"direction"`
	Round     int    `db:"round"`
}

// UnitPrice returns the per-unit price of the row.
func (r TradeRow) UnitPrice() decimal.Decimal {
	price, err := decimal.NewFromString(r.Price)
	if err != nil || r.Quantity == 0 {
		return decimal.Zero
	}
	return price.Div(decimal.NewFromInt(int64(r.Quantity)))
}

// ListTrades returns every persisted trade in settlement order.
func (db *DB) ListTrades() ([]TradeRow, error) {
	var rows []TradeRow
	err := db.conn.Select(&rows,
		`SELECT id, supplier, buyer, item, quantity, price, note, direction, round
		 FROM trades ORDER BY id`)
	return rows, err
}

// SnapshotRow is one persisted inventory snapshot.
type SnapshotRow struct {
	ID     int64  `db:"id"`
	Agent  string `db:"agent_name"`
	Round  int    `db:"round_number"`
	Cash   string `db:"cash"`
	Apple  int    `db:"apple"`
	Chip   int    `db:"chip"`
	Gold   int    `db:"gold"`
	Energy int    `db:"energy"`
	Status string `db:"status"`
}

// ListSnapshots returns every inventory snapshot ordered by round, then
// agent name.
func (db *DB) ListSnapshots() ([]SnapshotRow, error) {
	var rows []SnapshotRow
	err := db.conn.Select(&rows,
		`SELECT id, agent_name, round_number, cash, apple, chip, gold, energy, status
		 FROM inventory_snapshots ORDER BY round_number, agent_name`)
	return rows, err
}

// RecentTrades returns the most recent N trades, newest first.
func (db *DB) RecentTrades(limit int) ([]TradeRow, error) {
	var rows []TradeRow
	err := db.conn.Select(&rows,
		`SELECT id, supplier, buyer, item, quantity, price, note, direction, round
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	return rows, err
}

// MarkRunFinished records when the run completed.
func (db *DB) MarkRunFinished(rounds int) error {
	if err := db.SetMeta("rounds", fmt.Sprintf("%d", rounds)); err != nil {
		return err
	}
	return db.SetMeta("finished_at", time.Now().UTC().Format(time.RFC3339))
}
