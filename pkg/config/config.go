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
	DB           DBConfig
	Redis        RedisConfig
	ToolGateway  ToolGatewayConfig
	Agent        AgentConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"CATERING_APP_ENV" required:"true"`
	Port         string `envconfig:"CATERING_APP_PORT" default:"8080"`
	PlatformPort string `envconfig:"PORT"`
	LogLevel     string `envconfig:"CATERING_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CATERING_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CATERING_LOG_WARN_STACK" default:"false"`
}

// ListenAddr prefers the PORT injected by the hosting platform.
func (a AppConfig) ListenAddr() string {
	if port := strings.TrimSpace(a.PlatformPort); port != "" {
		return ":" + port
	}
	return ":" + a.Port
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CATERING_DB_DSN"`
	Driver string `envconfig:"CATERING_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CATERING_DB_HOST"`
	LegacyPort     int    `envconfig:"CATERING_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CATERING_DB_USER"`
	LegacyPassword string `envconfig:"CATERING_DB_PASSWORD"`
	LegacyName     string `envconfig:"CATERING_DB_NAME"`
	LegacySSLMode  string `envconfig:"CATERING_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CATERING_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CATERING_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CATERING_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CATERING_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

// RedisConfig is optional: an empty URL and address disables the idempotency
// cache.
type RedisConfig struct {
	URL            string        `envconfig:"CATERING_REDIS_URL"`
	Address        string        `envconfig:"CATERING_REDIS_ADDR"`
	Password       string        `envconfig:"CATERING_REDIS_PASSWORD"`
	DB             int           `envconfig:"CATERING_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"CATERING_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"CATERING_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"CATERING_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"CATERING_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"CATERING_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"CATERING_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type ToolGatewayConfig struct {
	URL        string        `envconfig:"CATERING_TOOLGATEWAY_URL" default:"http://127.0.0.1:8000/mcp"`
	Timeout    time.Duration `envconfig:"CATERING_TOOLGATEWAY_TIMEOUT" default:"60s"`
	ClientName string        `envconfig:"CATERING_TOOLGATEWAY_CLIENT_NAME" default:"catering-backend"`
}

type AgentConfig struct {
	UploadDir          string `envconfig:"CATERING_AGENT_UPLOAD_DIR" default:"tmp"`
	MaxUploadMB        int    `envconfig:"CATERING_AGENT_MAX_UPLOAD_MB" default:"20"`
	DefaultServiceType string `envconfig:"CATERING_AGENT_DEFAULT_SERVICE_TYPE" default:"standard"`
	SMTPServer         string `envconfig:"CATERING_AGENT_SMTP_SERVER" default:"smtp.gmail.com"`
	SMTPPort           int    `envconfig:"CATERING_AGENT_SMTP_PORT" default:"587"`

	UploadRetention     time.Duration `envconfig:"CATERING_AGENT_UPLOAD_RETENTION" default:"6h"`
	UploadSweepInterval time.Duration `envconfig:"CATERING_AGENT_UPLOAD_SWEEP_INTERVAL" default:"1h"`
}

// MaxUploadBytes returns the multipart upload cap in bytes.
func (a AgentConfig) MaxUploadBytes() int64 {
	if a.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return int64(a.MaxUploadMB) << 20
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CATERING_FEATURE_AUTO_MIGRATE" default:"false"`
	Metrics     bool `envconfig:"CATERING_FEATURE_METRICS" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DriverSQLite)
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
