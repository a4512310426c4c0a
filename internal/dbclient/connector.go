// Package dbclient opens the configured post store: SQLite by default,
// Postgres and MySQL through the shared SQL store, or MongoDB.
package dbclient

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"folio/internal/domain"
	"folio/internal/secret"
	"folio/internal/storage"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverMongoDB  Driver = "mongodb"
)

// ErrUnsupportedDriver is returned for drivers Open does not know.
var ErrUnsupportedDriver = errors.New("unsupported driver")

// Options describe where the posts live. Path is the SQLite file; the
// network fields serve the other drivers. The password is never part of
// Options: it is read from a secret.Store under PasswordKey.
type Options struct {
	Driver      Driver
	Path        string
	Host        string
	Port        int
	Database    string
	Username    string
	SSLMode     string
	PasswordKey string
}

// Open connects to the backend described by opts. The returned closer
// releases the connection.
func Open(ctx context.Context, opts Options, secrets secret.Store, logger *log.Logger) (domain.PostStore, io.Closer, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("store")

	password, err := lookupPassword(opts, secrets)
	if err != nil {
		return nil, nil, err
	}

	switch opts.Driver {
	case DriverSQLite, "":
		db, err := openSQLite(opts)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("opened sqlite", "path", opts.Path)
		return storage.NewPostStore(db), db, nil
	case DriverPostgres:
		db, err := storage.Open(ctx, "postgres", buildPostgresDSN(opts, password), storage.DialectPostgres)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("connected to postgres", "host", opts.Host, "db", opts.Database)
		return storage.NewPostStore(db), db, nil
	case DriverMySQL:
		db, err := storage.Open(ctx, "mysql", buildMySQLDSN(opts, password), storage.DialectMySQL)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("connected to mysql", "host", opts.Host, "db", opts.Database)
		return storage.NewPostStore(db), db, nil
	case DriverMongoDB:
		ms, err := OpenMongo(ctx, opts, password, logger)
		if err != nil {
			return nil, nil, err
		}
		return ms, ms, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, opts.Driver)
	}
}

func lookupPassword(opts Options, secrets secret.Store) (string, error) {
	if opts.PasswordKey == "" || secrets == nil {
		return "", nil
	}
	pw, err := secrets.Get(opts.PasswordKey)
	if err != nil {
		return "", fmt.Errorf("read password %s: %w", opts.PasswordKey, err)
	}
	return string(pw), nil
}
