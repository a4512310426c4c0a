package dbclient

import (
	"fmt"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string.
func buildPostgresDSN(opts Options, password string) string {
	port := opts.Port
	if port == 0 {
		port = 5432
	}
	sslMode := opts.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		opts.Host, port, opts.Username, password, opts.Database, sslMode,
	)
}
