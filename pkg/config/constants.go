package config

const (
	EnvPrefix = "TRADELEDGER"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "TRADELEDGER_APP_ENV"
	EnvPort     = "TRADELEDGER_APP_PORT"
	EnvDBDSN    = "TRADELEDGER_DB_DSN"
	EnvDBHost   = "TRADELEDGER_DB_HOST"
	EnvDBUser   = "TRADELEDGER_DB_USER"
	EnvDBName   = "TRADELEDGER_DB_NAME"
	EnvRedisURL = "TRADELEDGER_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
