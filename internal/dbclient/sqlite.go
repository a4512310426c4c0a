package dbclient

import (
	"fmt"

	"folio/internal/storage"
)

// openSQLite opens the local SQLite file, creating it on first use.
func openSQLite(opts Options) (*storage.DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}
	return storage.New(opts.Path)
}
