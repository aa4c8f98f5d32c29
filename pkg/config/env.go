package config

const EnvPrefix = "CATERING"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "CATERING_APP_ENV"
	EnvPort     = "CATERING_APP_PORT"
	EnvLogLevel = "CATERING_LOG_LEVEL"

	EnvDBDSN    = "CATERING_DB_DSN"
	EnvDBDriver = "CATERING_DB_DRIVER"
	EnvDBHost   = "CATERING_DB_HOST"
	EnvDBPort   = "CATERING_DB_PORT"
	EnvDBUser   = "CATERING_DB_USER"
	EnvDBPass   = "CATERING_DB_PASSWORD"
	EnvDBName   = "CATERING_DB_NAME"

	EnvRedisURL = "CATERING_REDIS_URL"

	EnvToolGatewayURL     = "CATERING_TOOLGATEWAY_URL"
	EnvToolGatewayTimeout = "CATERING_TOOLGATEWAY_TIMEOUT"

	EnvAgentUploadDir = "CATERING_AGENT_UPLOAD_DIR"
	EnvAgentSMTPPort  = "CATERING_AGENT_SMTP_PORT"

	EnvAutoMigrate = "CATERING_FEATURE_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
