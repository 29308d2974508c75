package config

// EnvPrefix is the envconfig prefix shared by every setting.
const EnvPrefix = "TEFAMART"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "TEFAMART_APP_ENV"
	EnvDBDSN  = "TEFAMART_DB_DSN"
	EnvDBHost = "TEFAMART_DB_HOST"
	EnvDBUser = "TEFAMART_DB_USER"
	EnvDBName = "TEFAMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
