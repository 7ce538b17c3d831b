package config

const EnvPrefix = "POS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "POS_APP_ENV"
	EnvPort     = "POS_APP_PORT"
	EnvTimeZone = "POS_TIME_ZONE"

	EnvDBDSN    = "POS_DB_DSN"
	EnvDBDriver = "POS_DB_DRIVER"
	EnvDBHost   = "POS_DB_HOST"
	EnvDBUser   = "POS_DB_USER"
	EnvDBName   = "POS_DB_NAME"

	EnvRedisURL               = "POS_REDIS_URL"
	EnvJWTSecret              = "POS_JWT_SECRET"
	EnvJWTIssuer              = "POS_JWT_ISSUER"
	EnvJWTExpMins             = "POS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "POS_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
