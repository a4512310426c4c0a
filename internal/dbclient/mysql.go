package dbclient

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// buildMySQLDSN constructs a MySQL DSN. parseTime is required so DATETIME
// columns scan into time.Time.
func buildMySQLDSN(opts Options, password string) string {
	port := opts.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		opts.Username, password, opts.Host, port, opts.Database,
	)
	if opts.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
