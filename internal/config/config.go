// Package config loads folio's settings from config.yaml and FOLIO_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"folio/internal/dbclient"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "FOLIO"
)

// Config keys.
const (
	KeyStoreDriver      = "store.driver"
	KeyStorePath        = "store.path"
	KeyStoreHost        = "store.host"
	KeyStorePort        = "store.port"
	KeyStoreDatabase    = "store.database"
	KeyStoreUsername    = "store.username"
	KeyStoreSSLMode     = "store.ssl_mode"
	KeyStorePasswordEnv = "store.password_env"
	KeyHTTPAddr         = "http.addr"
	KeyAuthToken        = "auth.token"
	KeyCacheRedisURL    = "cache.redis_url"
	KeyCacheTTL         = "cache.ttl"
	KeyPublishSchedule  = "publish.schedule"
	KeyImportDir        = "import.dir"
	KeyLogLevel         = "log.level"
)

const (
	DefaultDriver          = dbclient.DriverSQLite
	DefaultHTTPAddr        = ":8080"
	DefaultCacheTTL        = 10 * time.Minute
	DefaultPublishSchedule = "@every 1m"
	DefaultLogLevel        = "info"
)

var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrEmptyPath     = errors.New("sqlite store needs a path")
	ErrEmptyHost     = errors.New("store host is required")
	ErrBadCacheTTL   = errors.New("cache ttl must not be negative")
)

// defaultConfigYAML is written on first run.
const defaultConfigYAML = `# folio configuration
# Every key can be overridden with FOLIO_<SECTION>_<KEY>, e.g. FOLIO_STORE_DRIVER.

store:
  driver: sqlite
  # path: ~/.local/share/folio/folio.db
  # host:
  # port:
  # database:
  # username:
  # ssl_mode: disable
  # password_env: FOLIO_DB_PASSWORD

http:
  addr: ":8080"

# auth:
#   token:

cache:
  # redis_url: redis://localhost:6379/0
  ttl: 10m

publish:
  schedule: "@every 1m"

# import:
#   dir:

log:
  level: info
`

// Store is the storage section.
type Store struct {
	Driver      dbclient.Driver
	Path        string
	Host        string
	Port        int
	Database    string
	Username    string
	SSLMode     string
	PasswordEnv string
}

// Config is the resolved configuration.
type Config struct {
	Store           Store
	HTTPAddr        string
	AuthToken       string
	RedisURL        string
	CacheTTL        time.Duration
	PublishSchedule string
	ImportDir       string
	LogLevel        string
}

// DefaultConfigDir returns $HOME/.config/folio.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".folio"
	}
	return filepath.Join(home, ".config", "folio")
}

// DefaultStorePath returns $HOME/.local/share/folio/folio.db.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "folio.db"
	}
	return filepath.Join(home, ".local", "share", "folio", "folio.db")
}

// Load reads config.yaml from configDir, creating the directory and a
// commented default file on first run. A missing file is not an error.
func Load(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := newViper()
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyStoreDriver, string(DefaultDriver))
	v.SetDefault(KeyStorePath, DefaultStorePath())
	v.SetDefault(KeyStoreHost, "")
	v.SetDefault(KeyStorePort, 0)
	v.SetDefault(KeyStoreDatabase, "")
	v.SetDefault(KeyStoreUsername, "")
	v.SetDefault(KeyStoreSSLMode, "")
	v.SetDefault(KeyStorePasswordEnv, "")
	v.SetDefault(KeyHTTPAddr, DefaultHTTPAddr)
	v.SetDefault(KeyAuthToken, "")
	v.SetDefault(KeyCacheRedisURL, "")
	v.SetDefault(KeyCacheTTL, DefaultCacheTTL)
	v.SetDefault(KeyPublishSchedule, DefaultPublishSchedule)
	v.SetDefault(KeyImportDir, "")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Store: Store{
			Driver:      dbclient.Driver(strings.ToLower(v.GetString(KeyStoreDriver))),
			Path:        expandHome(v.GetString(KeyStorePath)),
			Host:        v.GetString(KeyStoreHost),
			Port:        v.GetInt(KeyStorePort),
			Database:    v.GetString(KeyStoreDatabase),
			Username:    v.GetString(KeyStoreUsername),
			SSLMode:     v.GetString(KeyStoreSSLMode),
			PasswordEnv: v.GetString(KeyStorePasswordEnv),
		},
		HTTPAddr:        v.GetString(KeyHTTPAddr),
		AuthToken:       v.GetString(KeyAuthToken),
		RedisURL:        v.GetString(KeyCacheRedisURL),
		CacheTTL:        v.GetDuration(KeyCacheTTL),
		PublishSchedule: v.GetString(KeyPublishSchedule),
		ImportDir:       expandHome(v.GetString(KeyImportDir)),
		LogLevel:        v.GetString(KeyLogLevel),
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case dbclient.DriverSQLite:
		if c.Store.Path == "" {
			return ErrEmptyPath
		}
	case dbclient.DriverPostgres, dbclient.DriverMySQL, dbclient.DriverMongoDB:
		if c.Store.Host == "" {
			return fmt.Errorf("%w for %s", ErrEmptyHost, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}
	if c.CacheTTL < 0 {
		return ErrBadCacheTTL
	}
	return nil
}

// DBOptions converts the storage section for dbclient.Open.
func (c *Config) DBOptions() dbclient.Options {
	return dbclient.Options{
		Driver:      c.Store.Driver,
		Path:        c.Store.Path,
		Host:        c.Store.Host,
		Port:        c.Store.Port,
		Database:    c.Store.Database,
		Username:    c.Store.Username,
		SSLMode:     c.Store.SSLMode,
		PasswordKey: c.Store.PasswordEnv,
	}
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
