package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Session       SessionConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Session.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MOVIESTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"MOVIESTORE_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"MOVIESTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOVIESTORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"MOVIESTORE_DB_DSN"`
	Driver string `envconfig:"MOVIESTORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOVIESTORE_DB_HOST"`
	LegacyPort     int    `envconfig:"MOVIESTORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOVIESTORE_DB_USER"`
	LegacyPassword string `envconfig:"MOVIESTORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOVIESTORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOVIESTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOVIESTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOVIESTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOVIESTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOVIESTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MOVIESTORE_REDIS_URL"`
	Address      string        `envconfig:"MOVIESTORE_REDIS_ADDR"`
	Password     string        `envconfig:"MOVIESTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOVIESTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOVIESTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOVIESTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOVIESTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOVIESTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOVIESTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether any redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type SessionConfig struct {
	Secret       string        `envconfig:"MOVIESTORE_SESSION_SECRET" required:"true"`
	Issuer       string        `envconfig:"MOVIESTORE_SESSION_ISSUER" default:"moviestore"`
	TTL          time.Duration `envconfig:"MOVIESTORE_SESSION_TTL" default:"336h"`
	CookieName   string        `envconfig:"MOVIESTORE_SESSION_COOKIE" default:"moviestore_session"`
	CookieSecure bool          `envconfig:"MOVIESTORE_SESSION_COOKIE_SECURE" default:"false"`
	Backend      string        `envconfig:"MOVIESTORE_SESSION_BACKEND" default:"redis"`
}

// UsesRedis reports whether sessions are persisted in redis.
func (s SessionConfig) UsesRedis() bool {
	return !strings.EqualFold(strings.TrimSpace(s.Backend), SessionBackendMemory)
}

func (s SessionConfig) validate() error {
	if s.TTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvSessionTTL)
	}
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case SessionBackendRedis, SessionBackendMemory:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q", EnvSessionBackend, SessionBackendRedis, SessionBackendMemory)
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MOVIESTORE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MOVIESTORE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MOVIESTORE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MOVIESTORE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MOVIESTORE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"MOVIESTORE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"MOVIESTORE_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"MOVIESTORE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow          time.Duration `envconfig:"MOVIESTORE_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupUsernameLimit   int           `envconfig:"MOVIESTORE_AUTH_RATE_LIMIT_SIGNUP_USERNAME_LIMIT" default:"3"`
	SignupIPLimit         int           `envconfig:"MOVIESTORE_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MOVIESTORE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MOVIESTORE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EventsTopic    string        `envconfig:"MOVIESTORE_PUBSUB_EVENTS_TOPIC" default:"moviestore-events"`
	PublishTimeout time.Duration `envconfig:"MOVIESTORE_PUBSUB_PUBLISH_TIMEOUT" default:"15s"`
	// OrderedDelivery keys messages by aggregate so an order's or petition's
	// events arrive in the order they were written.
	OrderedDelivery bool `envconfig:"MOVIESTORE_PUBSUB_ORDERED_DELIVERY" default:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MOVIESTORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MOVIESTORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MOVIESTORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
