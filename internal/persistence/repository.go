// Package persistence stores normalized trade records in DuckDB.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/internal/version"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schemaVersionKey = "schema_version"

var tradeColumns = []string{
	"id", "user_id", "date", "pair", "type", "entry", "exit", "stop_loss", "take_profit",
	"lot_size", "pnl", "status", "notes", "setup", "rr", "outcome", "provenance", "dedup_hash",
}

var selectColumns = []string{
	"id", "user_id", "CAST(date AS VARCHAR) AS date", "pair", "type",
	"CAST(entry AS DOUBLE) AS entry", "CAST(exit AS DOUBLE) AS exit",
	"CAST(stop_loss AS DOUBLE) AS stop_loss", "CAST(take_profit AS DOUBLE) AS take_profit",
	"CAST(lot_size AS DOUBLE) AS lot_size", "CAST(pnl AS DOUBLE) AS pnl",
	"status", "notes", "setup", "rr", "outcome", "provenance", "dedup_hash",
}

// Repository is the persistence collaborator of the import pipeline and the app.
type Repository interface {
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// InsertTrades writes the records in one transaction and returns how many were written.
	InsertTrades(ctx context.Context, records []types.TradeRecord) (int, error)
	// ExistingHashes returns the subset of hashes already stored for the user.
	ExistingHashes(ctx context.Context, userID string, hashes []string) (map[string]struct{}, error)
	CountTrades(ctx context.Context, userID string) (int, error)
	// ListTrades returns the user's records ordered by date, then insertion order.
	ListTrades(ctx context.Context, userID string) ([]types.TradeRecord, error)
	DeleteTrade(ctx context.Context, userID string, id string) error
	DeleteTrades(ctx context.Context, userID string, ids []string) (int, error)
	Close() error
}

// DuckDBRepository implements Repository on a DuckDB database file or in memory.
type DuckDBRepository struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBRepository opens the database at path (MemoryPath when empty) and makes sure
// the schema exists and was written by a compatible version.
func NewDuckDBRepository(path string, log *logger.Logger) (*DuckDBRepository, error) {
	if path == "" {
		path = MemoryPath
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackendUnavailable, "failed to open database", err)
	}

	repo := &DuckDBRepository{
		db:     db,
		logger: log.Named("persistence"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := repo.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return repo, nil
}

//nolint:funcorder // helper method used by NewDuckDBRepository
func (r *DuckDBRepository) initialize() error {
	_, err := r.db.Exec(`CREATE SEQUENCE IF NOT EXISTS trade_seq`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create sequence", err)
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create schema_meta table", err)
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			seq BIGINT DEFAULT nextval('trade_seq'),
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date DATE NOT NULL,
			pair TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('buy', 'sell')),
			entry DECIMAL(18, 8) NOT NULL,
			exit DECIMAL(18, 8),
			stop_loss DECIMAL(18, 8),
			take_profit DECIMAL(18, 8),
			lot_size DECIMAL(18, 8) NOT NULL,
			pnl DECIMAL(18, 2) NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('open', 'closed')),
			notes VARCHAR(500),
			setup VARCHAR(200),
			rr DOUBLE,
			outcome TEXT NOT NULL CHECK (outcome IN ('win', 'loss', 'breakeven')),
			provenance TEXT NOT NULL,
			dedup_hash TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT current_timestamp,
			UNIQUE (user_id, dedup_hash)
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create trades table", err)
	}

	return r.checkSchemaVersion()
}

//nolint:funcorder // helper method used by initialize
func (r *DuckDBRepository) checkSchemaVersion() error {
	query, args, err := r.sq.Select("value").From("schema_meta").Where(squirrel.Eq{"key": schemaVersionKey}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build schema version query: %w", err)
	}

	var stored string

	err = r.db.QueryRow(query, args...).Scan(&stored)
	if err == sql.ErrNoRows {
		_, err = r.sq.Insert("schema_meta").
			Columns("key", "value").
			Values(schemaVersionKey, version.SchemaVersion).
			RunWith(r.db).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to record schema version", err)
		}

		return nil
	}

	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to read schema version", err)
	}

	if err := version.CheckCompatibility(version.SchemaVersion, stored); err != nil {
		return errors.Wrap(errors.ErrCodeSchemaMismatch, "database schema is not compatible", err)
	}

	return nil
}

func (r *DuckDBRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeBackendUnavailable, "database is not reachable", err)
	}

	return nil
}

func (r *DuckDBRepository) InsertTrades(ctx context.Context, records []types.TradeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	insert := r.sq.Insert("trades").Columns(tradeColumns...)
	for _, rec := range records {
		insert = insert.Values(
			rec.ID, rec.UserID, rec.Date, rec.Pair, string(rec.Type), rec.Entry,
			nullable(rec.Exit), nullable(rec.StopLoss), nullable(rec.TakeProfit),
			rec.LotSize, rec.PnL, string(rec.Status), rec.Notes, rec.Setup, nullable(rec.RR),
			string(rec.Outcome), string(rec.Provenance), rec.DedupHash,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build insert", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "failed to begin transaction")
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		tx.Rollback()

		return 0, classify(err, "failed to insert trades")
	}

	if err := tx.Commit(); err != nil {
		return 0, classify(err, "failed to commit trades")
	}

	written, err := res.RowsAffected()
	if err != nil {
		written = int64(len(records))
	}

	r.logger.Debug("Inserted trades", zap.Int("records", len(records)), zap.Int64("written", written))

	return int(written), nil
}

func (r *DuckDBRepository) ExistingHashes(ctx context.Context, userID string, hashes []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(hashes) == 0 {
		return found, nil
	}

	query, args, err := r.sq.Select("dedup_hash").
		From("trades").
		Where(squirrel.Eq{"user_id": userID, "dedup_hash": hashes}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build hash lookup", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "failed to look up existing hashes")
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, classify(err, "failed to scan hash")
		}

		found[hash] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to read existing hashes")
	}

	return found, nil
}

func (r *DuckDBRepository) CountTrades(ctx context.Context, userID string) (int, error) {
	query, args, err := r.sq.Select("COUNT(*)").From("trades").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, classify(err, "failed to count trades")
	}

	return count, nil
}

func (r *DuckDBRepository) ListTrades(ctx context.Context, userID string) ([]types.TradeRecord, error) {
	query, args, err := r.sq.Select(selectColumns...).
		From("trades").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("date", "seq").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build list query", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "failed to list trades")
	}
	defer rows.Close()

	records := []types.TradeRecord{}

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, classify(err, "failed to scan trade")
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to read trades")
	}

	return records, nil
}

func (r *DuckDBRepository) DeleteTrade(ctx context.Context, userID string, id string) error {
	removed, err := r.DeleteTrades(ctx, userID, []string{id})
	if err != nil {
		return err
	}

	if removed == 0 {
		return errors.Newf(errors.ErrCodeTradeNotFound, "trade %s not found", id)
	}

	return nil
}

func (r *DuckDBRepository) DeleteTrades(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := r.sq.Delete("trades").Where(squirrel.Eq{"user_id": userID, "id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build delete", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err, "failed to delete trades")
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err, "failed to read deleted row count")
	}

	return int(removed), nil
}

func (r *DuckDBRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (types.TradeRecord, error) {
	var (
		rec                             types.TradeRecord
		direction, status, outcome, src string
		notes, setup                    sql.NullString
		exit, stop, target, rr          sql.NullFloat64
	)

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Date, &rec.Pair, &direction,
		&rec.Entry, &exit, &stop, &target, &rec.LotSize, &rec.PnL,
		&status, &notes, &setup, &rr, &outcome, &src, &rec.DedupHash,
	)
	if err != nil {
		return rec, err
	}

	rec.Type = types.Direction(direction)
	rec.Status = types.TradeStatus(status)
	rec.Outcome = types.Outcome(outcome)
	rec.Provenance = types.Provenance(src)
	rec.Notes = notes.String
	rec.Setup = setup.String
	rec.Exit = fromNull(exit)
	rec.StopLoss = fromNull(stop)
	rec.TakeProfit = fromNull(target)
	rec.RR = fromNull(rr)

	return rec, nil
}

func nullable(v optional.Option[float64]) any {
	if v.IsNone() {
		return nil
	}

	return v.Unwrap()
}

func fromNull(v sql.NullFloat64) optional.Option[float64] {
	if !v.Valid {
		return optional.None[float64]()
	}

	return optional.Some(v.Float64)
}

// classify maps a backend error onto a persistence error code by its message.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}

	text := strings.ToLower(err.Error())

	var code errors.ErrorCode

	switch {
	case err == sql.ErrConnDone || strings.Contains(text, "database is closed") ||
		strings.Contains(text, "connection"):
		code = errors.ErrCodeBackendUnavailable
	case strings.Contains(text, "check constraint"):
		code = errors.ErrCodeInvalidEnumValue
	case strings.Contains(text, "duplicate key") || strings.Contains(text, "unique constraint") ||
		strings.Contains(text, "primary key"):
		code = errors.ErrCodeUniqueViolation
	case strings.Contains(text, "out of range") || strings.Contains(text, "conversion error") ||
		strings.Contains(text, "could not cast"):
		code = errors.ErrCodeNumericOutOfRange
	default:
		code = errors.ErrCodeQueryFailed
	}

	return errors.Wrap(code, message, err)
}
