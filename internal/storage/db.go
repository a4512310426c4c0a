package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour a DB speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// DB wraps a database/sql connection plus the dialect it speaks.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// New opens (or creates) the SQLite file at dbPath and migrates it.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)
	return wrap(conn, DialectSQLite)
}

// Open connects through a registered database/sql driver, pings the server
// and migrates the schema. The caller imports the driver.
func Open(ctx context.Context, driverName, dsn string, dialect Dialect) (*DB, error) {
	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	if dialect == DialectSQLite {
		conn.SetMaxOpenConns(1)
	}
	return wrap(conn, dialect)
}

func wrap(conn *sql.DB, dialect Dialect) (*DB, error) {
	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Dialect reports the SQL flavour.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// rebind rewrites ? placeholders to $1..$n for Postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (db *DB) migrate() error {
	var migrations []string
	switch db.dialect {
	case DialectPostgres:
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS posts (
				id TEXT PRIMARY KEY,
				slug TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL DEFAULT '[]',
				status TEXT NOT NULL DEFAULT 'draft',
				content TEXT NOT NULL DEFAULT 'null',
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug)`,
			`CREATE INDEX IF NOT EXISTS idx_posts_status_created ON posts(status, created_at)`,
			`ALTER TABLE posts ADD COLUMN IF NOT EXISTS subtitle TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE posts ADD COLUMN IF NOT EXISTS pin_position INTEGER`,
			`ALTER TABLE posts ADD COLUMN IF NOT EXISTS publish_at TIMESTAMPTZ`,
		}
	case DialectMySQL:
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS posts (
				id VARCHAR(64) PRIMARY KEY,
				slug VARCHAR(191) NOT NULL,
				title TEXT NOT NULL,
				description TEXT NOT NULL,
				category VARCHAR(191) NOT NULL DEFAULT '',
				tags TEXT NOT NULL,
				status VARCHAR(16) NOT NULL DEFAULT 'draft',
				content LONGTEXT NOT NULL,
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NOT NULL,
				UNIQUE KEY idx_posts_slug (slug),
				KEY idx_posts_status_created (status, created_at)
			) DEFAULT CHARSET=utf8mb4`,
			`ALTER TABLE posts ADD COLUMN subtitle TEXT NULL`,
			`ALTER TABLE posts ADD COLUMN pin_position INT NULL`,
			`ALTER TABLE posts ADD COLUMN publish_at DATETIME(6) NULL`,
		}
	default:
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS posts (
				id TEXT PRIMARY KEY,
				slug TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL DEFAULT '[]',
				status TEXT NOT NULL DEFAULT 'draft',
				content TEXT NOT NULL DEFAULT 'null',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug)`,
			`CREATE INDEX IF NOT EXISTS idx_posts_status_created ON posts(status, created_at)`,
			`ALTER TABLE posts ADD COLUMN subtitle TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE posts ADD COLUMN pin_position INTEGER`,
			`ALTER TABLE posts ADD COLUMN publish_at DATETIME`,
		}
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			// ALTER TABLE fails if the column already exists; safe to ignore
			if strings.Contains(m, "ALTER TABLE") && isDuplicateColumn(err) {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
