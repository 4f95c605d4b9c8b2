package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Matching     MatchingConfig
	Ledger       LedgerConfig
	Idempotency  IdempotencyConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TOMBAMENTO_APP_ENV" required:"true"`
	Port         string `envconfig:"TOMBAMENTO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TOMBAMENTO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOMBAMENTO_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"TOMBAMENTO_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TOMBAMENTO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TOMBAMENTO_DB_DSN"`
	Driver string `envconfig:"TOMBAMENTO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TOMBAMENTO_DB_HOST"`
	LegacyPort     int    `envconfig:"TOMBAMENTO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOMBAMENTO_DB_USER"`
	LegacyPassword string `envconfig:"TOMBAMENTO_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOMBAMENTO_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOMBAMENTO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOMBAMENTO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOMBAMENTO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOMBAMENTO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOMBAMENTO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TOMBAMENTO_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TOMBAMENTO_REDIS_URL"`
	Address      string        `envconfig:"TOMBAMENTO_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"TOMBAMENTO_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOMBAMENTO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOMBAMENTO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOMBAMENTO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOMBAMENTO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOMBAMENTO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOMBAMENTO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TOMBAMENTO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TOMBAMENTO_AUTO_MIGRATE" default:"false"`
}

// MatchingConfig bounds the reconciliation engine per session.
type MatchingConfig struct {
	PatternCapacity int           `envconfig:"TOMBAMENTO_MATCHING_PATTERN_CAPACITY" default:"300"`
	MaxPoolSize     int           `envconfig:"TOMBAMENTO_MATCHING_MAX_POOL_SIZE" default:"5000"`
	SuggestionLimit int           `envconfig:"TOMBAMENTO_MATCHING_SUGGESTION_LIMIT" default:"10"`
	PendingTTL      time.Duration `envconfig:"TOMBAMENTO_MATCHING_PENDING_TTL" default:"12h"`
}

// LedgerConfig locates the ledger snapshot workbook.
type LedgerConfig struct {
	Source          string        `envconfig:"TOMBAMENTO_LEDGER_SOURCE" default:"file"`
	FilePath        string        `envconfig:"TOMBAMENTO_LEDGER_FILE_PATH"`
	Bucket          string        `envconfig:"TOMBAMENTO_LEDGER_GCS_BUCKET"`
	Object          string        `envconfig:"TOMBAMENTO_LEDGER_GCS_OBJECT"`
	Sheet           string        `envconfig:"TOMBAMENTO_LEDGER_SHEET" default:"Sheet1"`
	RefreshInterval time.Duration `envconfig:"TOMBAMENTO_LEDGER_REFRESH_INTERVAL" default:"6h"`
}

type IdempotencyConfig struct {
	TTL      time.Duration `envconfig:"TOMBAMENTO_IDEMPOTENCY_TTL" default:"24h"`
	EventTTL time.Duration `envconfig:"TOMBAMENTO_IDEMPOTENCY_EVENT_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"TOMBAMENTO_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"TOMBAMENTO_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	LedgerSubscription string `envconfig:"TOMBAMENTO_PUBSUB_LEDGER_SUBSCRIPTION" default:"tmb-ledger-snapshots"`
}

func (l LedgerConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(l.Source)) {
	case LedgerSourceFile:
		if l.FilePath == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvLedgerFilePath, EnvLedgerSource, LedgerSourceFile)
		}
	case LedgerSourceGCS:
		if l.Bucket == "" || l.Object == "" {
			return fmt.Errorf("%s and %s are required when %s=%s", EnvLedgerBucket, EnvLedgerObject, EnvLedgerSource, LedgerSourceGCS)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvLedgerSource, l.Source)
	}
	return nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
