package config

// EnvPrefix is handed to envconfig; every tag already spells the full name.
const EnvPrefix = "MOVIESTORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

const (
	EnvAppEnv         = "MOVIESTORE_APP_ENV"
	EnvPort           = "MOVIESTORE_APP_PORT"
	EnvLogLevel       = "MOVIESTORE_LOG_LEVEL"
	EnvDBDSN          = "MOVIESTORE_DB_DSN"
	EnvDBDriver       = "MOVIESTORE_DB_DRIVER"
	EnvDBHost         = "MOVIESTORE_DB_HOST"
	EnvDBUser         = "MOVIESTORE_DB_USER"
	EnvDBName         = "MOVIESTORE_DB_NAME"
	EnvDBPassword     = "MOVIESTORE_DB_PASSWORD"
	EnvRedisURL       = "MOVIESTORE_REDIS_URL"
	EnvSessionSecret  = "MOVIESTORE_SESSION_SECRET"
	EnvSessionTTL     = "MOVIESTORE_SESSION_TTL"
	EnvSessionBackend = "MOVIESTORE_SESSION_BACKEND"
	EnvGCPProjectID   = "MOVIESTORE_GCP_PROJECT_ID"
	EnvEventsTopic    = "MOVIESTORE_PUBSUB_EVENTS_TOPIC"
	EnvPublishTimeout = "MOVIESTORE_PUBSUB_PUBLISH_TIMEOUT"
	EnvAutoMigrate    = "MOVIESTORE_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
