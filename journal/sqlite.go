package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, order_id, symbol, quantity, price, fee, time, status, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.OrderID, t.Symbol, t.Quantity, t.Price, t.Fee, t.Time, t.Status, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquityRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, cash, equity, open_positions)
		VALUES (?, ?, ?, ?)`,
		e.Time, e.Cash, e.Equity, e.OpenPositions,
	)
	return err
}

// ListTrades returns every journaled trade for a symbol, oldest first.
func (j *SQLiteJournal) ListTrades(symbol string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, order_id, symbol, quantity, price, fee, time, status, reason
		FROM trades WHERE symbol = ? ORDER BY time ASC`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.TradeID, &t.OrderID, &t.Symbol, &t.Quantity, &t.Price, &t.Fee, &t.Time, &t.Status, &t.Reason); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// EquityCurve returns the equity series between from and to, oldest first.
func (j *SQLiteJournal) EquityCurve(from, to time.Time) ([]EquityRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, cash, equity, open_positions
		FROM equity WHERE time >= ? AND time < ? ORDER BY time ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRecord
	for rows.Next() {
		var e EquityRecord
		if err := rows.Scan(&e.Time, &e.Cash, &e.Equity, &e.OpenPositions); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
