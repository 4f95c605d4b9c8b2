package config

// EnvPrefix is handed to envconfig; every field carries its full name.
const EnvPrefix = "TOMBAMENTO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	LedgerSourceFile = "file"
	LedgerSourceGCS  = "gcs"

	DefaultSQLiteDSN = "file:tombamento.db?cache=shared"
)

const (
	EnvAppEnv   = "TOMBAMENTO_APP_ENV"
	EnvPort     = "TOMBAMENTO_APP_PORT"
	EnvLogLevel = "TOMBAMENTO_LOG_LEVEL"

	EnvDBDSN  = "TOMBAMENTO_DB_DSN"
	EnvDBHost = "TOMBAMENTO_DB_HOST"
	EnvDBUser = "TOMBAMENTO_DB_USER"
	EnvDBName = "TOMBAMENTO_DB_NAME"

	EnvRedisURL  = "TOMBAMENTO_REDIS_URL"
	EnvUseSQLite = "TOMBAMENTO_USE_SQLITE"

	EnvMatchingPatternCapacity = "TOMBAMENTO_MATCHING_PATTERN_CAPACITY"
	EnvMatchingPendingTTL      = "TOMBAMENTO_MATCHING_PENDING_TTL"

	EnvLedgerSource   = "TOMBAMENTO_LEDGER_SOURCE"
	EnvLedgerFilePath = "TOMBAMENTO_LEDGER_FILE_PATH"
	EnvLedgerBucket   = "TOMBAMENTO_LEDGER_GCS_BUCKET"
	EnvLedgerObject   = "TOMBAMENTO_LEDGER_GCS_OBJECT"

	EnvGCPProjectID = "TOMBAMENTO_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
