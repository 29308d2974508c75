package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Auction       AuctionConfig
	Notification  NotificationConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TEFAMART_APP_ENV" required:"true"`
	Port         string `envconfig:"TEFAMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TEFAMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TEFAMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TEFAMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TEFAMART_DB_DSN"`
	Driver string `envconfig:"TEFAMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TEFAMART_DB_HOST"`
	LegacyPort     int    `envconfig:"TEFAMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TEFAMART_DB_USER"`
	LegacyPassword string `envconfig:"TEFAMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"TEFAMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"TEFAMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TEFAMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TEFAMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TEFAMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TEFAMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TEFAMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TEFAMART_REDIS_ADDR"`
	Password     string        `envconfig:"TEFAMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"TEFAMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TEFAMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TEFAMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TEFAMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TEFAMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TEFAMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TEFAMART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TEFAMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TEFAMART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TEFAMART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TEFAMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TEFAMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TEFAMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TEFAMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TEFAMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TEFAMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TEFAMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TEFAMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TEFAMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TEFAMART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TEFAMART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TEFAMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TEFAMART_AUTO_MIGRATE" default:"false"`
}

// AuctionConfig carries the bid-acceptance policy knobs. MinIncrement is the
// smallest amount a new bid must add on top of the current watermark, in
// currency minor units.
type AuctionConfig struct {
	MinIncrement   decimal.Decimal `envconfig:"TEFAMART_AUCTION_MIN_INCREMENT" default:"10000"`
	BidRetries     int             `envconfig:"TEFAMART_AUCTION_BID_RETRIES" default:"3"`
	BidTimeout     time.Duration   `envconfig:"TEFAMART_AUCTION_BID_TIMEOUT" default:"5s"`
	SweepInterval  time.Duration   `envconfig:"TEFAMART_AUCTION_SWEEP_INTERVAL" default:"1m"`
	ForbidSelfBids bool            `envconfig:"TEFAMART_AUCTION_FORBID_SELF_BIDS" default:"true"`
}

type NotificationConfig struct {
	ReadRetention time.Duration `envconfig:"TEFAMART_NOTIFICATION_READ_RETENTION" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TEFAMART_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"TEFAMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"TEFAMART_PUBSUB_EVENTS_TOPIC" default:"tefamart-domain-events"`
	EventsSubscription string `envconfig:"TEFAMART_PUBSUB_EVENTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TEFAMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TEFAMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TEFAMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
