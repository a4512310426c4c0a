package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/dbclient"
)

func TestLoad_Defaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "folio")
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.yaml"))
	assert.Equal(t, dbclient.DriverSQLite, cfg.Store.Driver)
	assert.NotEmpty(t, cfg.Store.Path)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "@every 1m", cfg.PublishSchedule)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.ImportDir)
	assert.Empty(t, cfg.AuthToken)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `store:
  driver: postgres
  host: db.internal
  port: 6543
  database: posts
  username: folio
  password_env: PG_PASSWORD
cache:
  redis_url: redis://cache:6379/1
  ttl: 90s
import:
  dir: /srv/import
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("FOLIO_HTTP_ADDR", ":9090")
	t.Setenv("FOLIO_AUTH_TOKEN", "s3cret")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dbclient.DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "/srv/import", cfg.ImportDir)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "s3cret", cfg.AuthToken)

	opts := cfg.DBOptions()
	assert.Equal(t, dbclient.Options{
		Driver:      dbclient.DriverPostgres,
		Path:        cfg.Store.Path,
		Host:        "db.internal",
		Port:        6543,
		Database:    "posts",
		Username:    "folio",
		PasswordKey: "PG_PASSWORD",
	}, opts)
}

func TestLoad_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))
	_, err := Load(dir)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"sqlite ok", Config{Store: Store{Driver: dbclient.DriverSQLite, Path: "x.db"}}, nil},
		{"sqlite without path", Config{Store: Store{Driver: dbclient.DriverSQLite}}, ErrEmptyPath},
		{"mongo ok", Config{Store: Store{Driver: dbclient.DriverMongoDB, Host: "mongodb://h"}}, nil},
		{"mysql without host", Config{Store: Store{Driver: dbclient.DriverMySQL}}, ErrEmptyHost},
		{"unknown driver", Config{Store: Store{Driver: "oracle"}}, ErrUnknownDriver},
		{"negative ttl", Config{Store: Store{Driver: dbclient.DriverSQLite, Path: "x"}, CacheTTL: -time.Second}, ErrBadCacheTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "f.db"), expandHome("~/data/f.db"))
	assert.Equal(t, "/abs/f.db", expandHome("/abs/f.db"))
	assert.Equal(t, "", expandHome(""))
}
