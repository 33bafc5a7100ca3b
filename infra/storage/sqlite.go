package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/fleettrack/core/fleet"
	"github.com/kilianp07/fleettrack/core/ledger"
	"github.com/kilianp07/fleettrack/core/model"
)

// SQLite persists the fleet directory and the location ledger in one
// database. It implements both fleet.Directory and ledger.Store; the report
// append and the conditional projection update commit in one transaction
// via AppendAndProject, and timestamps are compared as unix nanoseconds so
// the strictly-greater rule matches the in-memory directory exactly.
type SQLite struct {
	db *sql.DB
}

var _ fleet.Directory = (*SQLite)(nil)
var _ ledger.Store = (*SQLite)(nil)

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite does not support concurrent writers on one file.
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS carts (
        id TEXT PRIMARY KEY,
        identifier TEXT NOT NULL UNIQUE,
        model TEXT NOT NULL,
        status TEXT NOT NULL,
        battery REAL NOT NULL,
        latitude REAL,
        longitude REAL,
        last_report_at INTEGER NOT NULL DEFAULT 0,
        last_maintenance INTEGER NOT NULL DEFAULT 0
    );
    CREATE TABLE IF NOT EXISTS location_reports (
        id TEXT PRIMARY KEY,
        cart_id TEXT NOT NULL REFERENCES carts(id),
        latitude REAL NOT NULL,
        longitude REAL NOT NULL,
        battery REAL NOT NULL,
        ts INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_reports_cart_ts ON location_reports(cart_id, ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Create(ctx context.Context, cart model.Cart) error {
	if cart.ID == "" || cart.Identifier == "" {
		return fmt.Errorf("%w: cart id and identifier are required", model.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO carts (id, identifier, model, status, battery, latitude, longitude, last_report_at, last_maintenance)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cart.ID, cart.Identifier, cart.Model, string(cart.Status), cart.Battery,
		nullPos(cart.Position, true), nullPos(cart.Position, false),
		toNanos(cart.LastReportAt), toNanos(cart.LastMaintenance))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("%w: identifier %q already in use", model.ErrInvalidInput, cart.Identifier)
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (model.Cart, error) {
	return s.scanCart(s.db.QueryRowContext(ctx, selectCart+` WHERE id = ?`, id))
}

func (s *SQLite) GetByIdentifier(ctx context.Context, identifier string) (model.Cart, error) {
	return s.scanCart(s.db.QueryRowContext(ctx, selectCart+` WHERE identifier = ?`, identifier))
}

func (s *SQLite) List(ctx context.Context, f fleet.Filter) ([]model.Cart, error) {
	query := selectCart + ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.MinBattery > 0 {
		query += ` AND battery >= ?`
		args = append(args, f.MinBattery)
	}
	query += ` ORDER BY identifier`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.Cart
	for rows.Next() {
		c, err := s.scanCartRow(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *SQLite) ApplyProjection(ctx context.Context, cartID string, p fleet.Projection) (bool, error) {
	return applyProjection(ctx, s.db, cartID, p)
}

func applyProjection(ctx context.Context, q execQuerier, cartID string, p fleet.Projection) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE carts SET latitude = ?, longitude = ?, battery = ?, last_report_at = ?
         WHERE id = ? AND last_report_at < ?`,
		p.Latitude, p.Longitude, p.Battery, p.Timestamp.UnixNano(), cartID, p.Timestamp.UnixNano())
	if err != nil {
		return false, fmt.Errorf("apply projection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// Distinguish "stale report" from "no such cart".
	var one int
	if err := q.QueryRowContext(ctx, `SELECT 1 FROM carts WHERE id = ?`, cartID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, model.ErrCartNotFound
		}
		return false, err
	}
	return false, nil
}

func (s *SQLite) OverwriteProjection(ctx context.Context, cartID string, p *fleet.Projection) error {
	var res sql.Result
	var err error
	if p == nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE carts SET latitude = NULL, longitude = NULL, last_report_at = 0 WHERE id = ?`, cartID)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE carts SET latitude = ?, longitude = ?, battery = ?, last_report_at = ? WHERE id = ?`,
			p.Latitude, p.Longitude, p.Battery, p.Timestamp.UnixNano(), cartID)
	}
	if err != nil {
		return fmt.Errorf("overwrite projection: %w", err)
	}
	return checkFound(res)
}

func (s *SQLite) SetStatus(ctx context.Context, cartID string, status model.CartStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE carts SET status = ? WHERE id = ?`, string(status), cartID)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return checkFound(res)
}

func (s *SQLite) SetBattery(ctx context.Context, cartID string, battery float64) error {
	if !model.ValidBattery(battery) {
		return fmt.Errorf("%w: battery %v out of range", model.ErrInvalidInput, battery)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE carts SET battery = ? WHERE id = ?`, battery, cartID)
	if err != nil {
		return fmt.Errorf("set battery: %w", err)
	}
	return checkFound(res)
}

func (s *SQLite) Append(ctx context.Context, rep model.LocationReport) error {
	return appendReport(ctx, s.db, rep)
}

func appendReport(ctx context.Context, q execQuerier, rep model.LocationReport) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO location_reports (id, cart_id, latitude, longitude, battery, ts)
         VALUES (?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.CartID, rep.Latitude, rep.Longitude, rep.Battery, rep.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// AppendAndProject inserts the report and runs the conditional projection
// update in one transaction, so the ledger row and its projection effect
// are committed or rolled back together.
func (s *SQLite) AppendAndProject(ctx context.Context, rep model.LocationReport, p fleet.Projection) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	if err := appendReport(ctx, tx, rep); err != nil {
		_ = tx.Rollback()
		return false, err
	}
	applied, err := applyProjection(ctx, tx, rep.CartID, p)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return applied, nil
}

func (s *SQLite) History(ctx context.Context, cartID string) ([]model.LocationReport, error) {
	rows, err := s.db.QueryContext(ctx,
		selectReport+` WHERE cart_id = ? ORDER BY ts DESC`, cartID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.LocationReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *SQLite) All(ctx context.Context) ([]model.AnnotatedReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.cart_id, r.latitude, r.longitude, r.battery, r.ts, c.identifier, c.model
         FROM location_reports r JOIN carts c ON c.id = r.cart_id
         ORDER BY r.ts DESC`)
	if err != nil {
		return nil, fmt.Errorf("all reports: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.AnnotatedReport
	for rows.Next() {
		var a model.AnnotatedReport
		var nanos int64
		if err := rows.Scan(&a.ID, &a.CartID, &a.Latitude, &a.Longitude, &a.Battery, &nanos,
			&a.CartIdentifier, &a.CartModel); err != nil {
			return nil, err
		}
		a.Timestamp = fromNanos(nanos)
		res = append(res, a)
	}
	return res, rows.Err()
}

func (s *SQLite) Latest(ctx context.Context, cartID string) (model.LocationReport, bool, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx,
		selectReport+` WHERE cart_id = ? ORDER BY ts DESC LIMIT 1`, cartID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.LocationReport{}, false, nil
	}
	if err != nil {
		return model.LocationReport{}, false, err
	}
	return r, true, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) (model.LocationReport, error) {
	rep, err := scanReport(s.db.QueryRowContext(ctx, selectReport+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.LocationReport{}, model.ErrReportNotFound
	}
	if err != nil {
		return model.LocationReport{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM location_reports WHERE id = ?`, id); err != nil {
		return model.LocationReport{}, fmt.Errorf("delete report: %w", err)
	}
	return rep, nil
}

const selectCart = `SELECT id, identifier, model, status, battery, latitude, longitude, last_report_at, last_maintenance FROM carts`

const selectReport = `SELECT id, cart_id, latitude, longitude, battery, ts FROM location_reports`

type rowScanner interface {
	Scan(dest ...any) error
}

// execQuerier is satisfied by *sql.DB and *sql.Tx, so the report insert and
// projection update can run either standalone or inside a transaction.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) scanCart(row rowScanner) (model.Cart, error) {
	c, err := s.scanCartRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Cart{}, model.ErrCartNotFound
	}
	return c, err
}

func (s *SQLite) scanCartRow(row rowScanner) (model.Cart, error) {
	var c model.Cart
	var status string
	var lat, lon sql.NullFloat64
	var reportNanos, maintNanos int64
	if err := row.Scan(&c.ID, &c.Identifier, &c.Model, &status, &c.Battery,
		&lat, &lon, &reportNanos, &maintNanos); err != nil {
		return model.Cart{}, err
	}
	c.Status = model.CartStatus(status)
	if lat.Valid && lon.Valid {
		c.Position = &model.Position{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	c.LastReportAt = fromNanos(reportNanos)
	c.LastMaintenance = fromNanos(maintNanos)
	return c, nil
}

func scanReport(row rowScanner) (model.LocationReport, error) {
	var r model.LocationReport
	var nanos int64
	if err := row.Scan(&r.ID, &r.CartID, &r.Latitude, &r.Longitude, &r.Battery, &nanos); err != nil {
		return model.LocationReport{}, err
	}
	r.Timestamp = fromNanos(nanos)
	return r, nil
}

func checkFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrCartNotFound
	}
	return nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func nullPos(p *model.Position, lat bool) any {
	if p == nil {
		return nil
	}
	if lat {
		return p.Latitude
	}
	return p.Longitude
}
