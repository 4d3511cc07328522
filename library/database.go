package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // query dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // query dialect
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
)

// sqliteDriver is go-sqlite3 with a Unicode-aware fold() function registered on every connection.
// SQLite's own LOWER() only folds ASCII.
const sqliteDriver = "sqlite3_library"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

const (
	dialectSQLite   = "sqlite3"
	dialectPostgres = "postgres"

	sqlStateUniqueViolation = "23505"

	logMsgOpened           = "database opened"
	logMsgMigrated         = "schema migrated"
	logMsgSQLExecuted      = "executed sql"
	logMsgRollbackFailed   = "rollback failed"
	logMsgStoreFailure     = "store failure"
	logAttrDriver          = "driver"
	logAttrSchemaVersion   = "schema_version"
	logAttrQuery           = "query"
	logAttrError           = "error"
	logAttrOperation       = "operation"
	logAttrMemberID        = "member_id"
	logAttrBookID          = "book_id"
	logAttrTransactionID   = "transaction_id"
	logAttrFineID          = "fine_id"
	logAttrFineAmount      = "fine_amount"
	logAttrDueDate         = "due_date"
	logAttrCount           = "count"
	logAttrCode            = "code"
	logAttrOverdueCount    = "overdue_count"
	logAttrAvailableCopies = "available_copies"
)

// Logger receives store and engine logs. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Database provides high-level helpers around a SQL connection pool.
// SQLite is the default engine; Postgres is reached through lib/pq or pgx.
type Database struct {
	db       *sqlx.DB
	driver   string
	dialect  goqu.DialectWrapper
	lockRows bool
	txOpts   *sql.TxOptions
	logger   Logger
}

// Option configures a Database.
type Option func(*Database) error

// WithLogger sets the logger. SQL statements are logged at debug level.
func WithLogger(logger Logger) Option {
	return func(d *Database) error {
		d.logger = logger
		return nil
	}
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies schema migrations.
func NewDatabase(dbPath string, options ...Option) (*Database, error) {
	return Open(DriverSQLite, dbPath, options...)
}

// Open connects to the store behind driver and applies schema migrations.
// For SQLite dsn is a file path; for Postgres drivers it is a connection string.
func Open(driver, dsn string, options ...Option) (*Database, error) {
	d := &Database{driver: driver}

	for _, option := range options {
		if err := option(d); err != nil {
			return nil, err
		}
	}

	var connStr string
	sqlDriver := driver
	switch driver {
	case DriverSQLite:
		// Ensure directory exists so first-run succeeds.
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		// Immediate transactions take the write lock at BEGIN, which serializes lending operations.
		connStr = fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate&_loc=UTC", dsn)
		d.dialect = goqu.Dialect(dialectSQLite)
		sqlDriver = sqliteDriver
	case DriverPostgres, DriverPGX:
		connStr = dsn
		d.dialect = goqu.Dialect(dialectPostgres)
		d.lockRows = true
		d.txOpts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(sqlDriver, connStr)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	d.db = db

	if err := d.applyMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	d.logInfo(logMsgOpened, logAttrDriver, driver)
	return d, nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the store is reachable.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

// Driver returns the database/sql driver name in use.
func (d *Database) Driver() string { return d.driver }

func (d *Database) now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            membership_number TEXT NOT NULL UNIQUE,
            status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE','SUSPENDED')),
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS books (
            id TEXT PRIMARY KEY,
            isbn TEXT NOT NULL UNIQUE,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            category TEXT NOT NULL,
            total_copies INTEGER NOT NULL CHECK (total_copies >= 1),
            available_copies INTEGER NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies),
            status TEXT NOT NULL DEFAULT 'AVAILABLE' CHECK (status IN ('AVAILABLE','BORROWED','RESERVED','MAINTENANCE')),
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            member_id TEXT NOT NULL REFERENCES members(id),
            book_id TEXT NOT NULL REFERENCES books(id),
            borrowed_at DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            returned_at DATETIME,
            status TEXT NOT NULL CHECK (status IN ('ACTIVE','OVERDUE','RETURNED'))
        );`,
	`CREATE TABLE IF NOT EXISTS fines (
            id TEXT PRIMARY KEY,
            member_id TEXT NOT NULL REFERENCES members(id),
            transaction_id TEXT NOT NULL UNIQUE REFERENCES transactions(id),
            amount TEXT NOT NULL,
            paid_at DATETIME,
            created_at DATETIME NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_member_status ON transactions(member_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status_due ON transactions(status, due_date);`,
	`CREATE INDEX IF NOT EXISTS idx_fines_member_paid ON fines(member_id, paid_at);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            membership_number TEXT NOT NULL UNIQUE,
            status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE','SUSPENDED')),
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS books (
            id UUID PRIMARY KEY,
            isbn TEXT NOT NULL UNIQUE,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            category TEXT NOT NULL,
            total_copies INTEGER NOT NULL CHECK (total_copies >= 1),
            available_copies INTEGER NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies),
            status TEXT NOT NULL DEFAULT 'AVAILABLE' CHECK (status IN ('AVAILABLE','BORROWED','RESERVED','MAINTENANCE')),
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS transactions (
            id UUID PRIMARY KEY,
            member_id UUID NOT NULL REFERENCES members(id),
            book_id UUID NOT NULL REFERENCES books(id),
            borrowed_at TIMESTAMPTZ NOT NULL,
            due_date TIMESTAMPTZ NOT NULL,
            returned_at TIMESTAMPTZ,
            status TEXT NOT NULL CHECK (status IN ('ACTIVE','OVERDUE','RETURNED'))
        );`,
	`CREATE TABLE IF NOT EXISTS fines (
            id UUID PRIMARY KEY,
            member_id UUID NOT NULL REFERENCES members(id),
            transaction_id UUID NOT NULL UNIQUE REFERENCES transactions(id),
            amount NUMERIC(10,2) NOT NULL CHECK (amount >= 0),
            paid_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_member_status ON transactions(member_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status_due ON transactions(status, due_date);`,
	`CREATE INDEX IF NOT EXISTS idx_fines_member_paid ON fines(member_id, paid_at);`,
}

func (d *Database) applyMigrations() error {
	stmts := postgresSchema
	if d.driver == DriverSQLite {
		// WAL improves write concurrency.
		if _, err := d.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enable WAL: %w", err)
		}
		stmts = sqliteSchema
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}

	var current int
	_ = d.db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	upsert := d.db.Rebind(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`)
	if _, err := tx.Exec(upsert, strconv.Itoa(schemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	d.logInfo(logMsgMigrated, logAttrSchemaVersion, schemaVersion)
	return nil
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// InTx runs fn inside one store transaction. Any error from fn rolls back every write fn made;
// a nil return commits. Postgres transactions run SERIALIZABLE and lock the rows they read.
func (d *Database) InTx(ctx context.Context, fn func(tx StoreTx) error) error {
	return d.inTx(ctx, func(tx *Tx) error { return fn(tx) })
}

// View runs fn against the connection pool without opening a transaction. Reads take no write
// lock, so each statement sees the latest committed state on its own. Locking reads are ignored.
func (d *Database) View(ctx context.Context, fn func(tx StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return fn(d.session())
}

func (d *Database) inTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := d.db.BeginTxx(ctx, d.txOpts)
	if err != nil {
		return d.storeError(err)
	}
	defer func() {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			d.logWarn(logMsgRollbackFailed, logAttrError, rbErr.Error())
		}
	}()

	if err := fn(d.bind(sqlTx, d.lockRows)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return d.storeError(err)
	}
	return nil
}

// session binds queries to the pool for reads that need no transaction.
func (d *Database) session() *Tx {
	return d.bind(d.db, false)
}

func (d *Database) bind(ext sqlx.ExtContext, lockRows bool) *Tx {
	return &Tx{ext: ext, dialect: d.dialect, lockRows: lockRows, db: d}
}

// storeError classifies a driver error. Unique violations become ErrDuplicate; everything else
// is a store failure. Domain errors pass through untouched.
func (d *Database) storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := CodeOf(err); ok {
		return err
	}
	if isUniqueViolation(err) {
		return errors.Join(ErrDuplicate, err)
	}
	d.logError(logMsgStoreFailure, logAttrError, err.Error())
	return errors.Join(ErrStoreFailure, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == sqlStateUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateUniqueViolation
	}
	return false
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

func (d *Database) logDebug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *Database) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Database) logWarn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

func (d *Database) logError(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Error(msg, args...)
	}
}
