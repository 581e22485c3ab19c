package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"taskhub/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultMongoURI = "mongodb://localhost:27017"

type Config struct {
	Port              string
	Database          string
	DatabasePassword  string
	DBName            string
	DBTimeout         time.Duration
	MongoTransactions bool
	Store             string

	JWTSecret     string
	JWTIssuer     string
	JWTTTL        time.Duration
	ResetTokenTTL time.Duration
	BcryptCost    int

	// AllowAdminSignup lets callers that are not admins create admin accounts.
	AllowAdminSignup bool

	ReconcileInterval time.Duration

	CORSOrigin    string
	GraphiQL      bool
	RateLimit     string
	AuthRateLimit string
	Development   bool

	SMTPHost      string
	SMTPPort      string
	SMTPFrom      string
	EmailPassword string

	LogLevel string
	LogFile  string
}

// Load reads ENV_FILE (config.env by default) into the environment and then
// builds the configuration from environment variables and defaults.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = "config.env"
	}
	if err := godotenv.Load(envFile); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_SKIPPED, Description: Could not load %s, using process environment: %v", envFile, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:              v.GetString("PORT"),
		Database:          v.GetString("DATABASE"),
		DatabasePassword:  v.GetString("DATABASE_PASSWORD"),
		DBName:            v.GetString("DB_NAME"),
		DBTimeout:         v.GetDuration("DB_TIMEOUT"),
		MongoTransactions: v.GetBool("MONGO_TRANSACTIONS"),
		Store:             strings.ToLower(v.GetString("STORE")),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTIssuer:         v.GetString("JWT_ISSUER"),
		JWTTTL:            v.GetDuration("JWT_TTL"),
		ResetTokenTTL:     v.GetDuration("RESET_TOKEN_TTL"),
		BcryptCost:        v.GetInt("BCRYPT_COST"),
		AllowAdminSignup:  v.GetBool("ALLOW_ADMIN_SIGNUP"),
		ReconcileInterval: v.GetDuration("RECONCILE_INTERVAL"),
		CORSOrigin:        v.GetString("CORS_ORIGIN"),
		GraphiQL:          v.GetBool("GRAPHIQL"),
		RateLimit:         v.GetString("RATE_LIMIT"),
		AuthRateLimit:     v.GetString("AUTH_RATE_LIMIT"),
		Development:       v.GetBool("DEVELOPMENT"),
		SMTPHost:          v.GetString("SMTP_HOST"),
		SMTPPort:          v.GetString("SMTP_PORT"),
		SMTPFrom:          v.GetString("SMTP_FROM"),
		EmailPassword:     v.GetString("EMAIL_PASSWORD"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFile:           v.GetString("LOG_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5005")
	v.SetDefault("DATABASE", defaultMongoURI)
	v.SetDefault("DB_NAME", "taskhub")
	v.SetDefault("DB_TIMEOUT", "10s")
	v.SetDefault("MONGO_TRANSACTIONS", true)
	v.SetDefault("STORE", "mongo")
	v.SetDefault("JWT_ISSUER", "taskhub")
	v.SetDefault("JWT_TTL", "1h")
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("ALLOW_ADMIN_SIGNUP", true)
	v.SetDefault("RECONCILE_INTERVAL", "10m")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("GRAPHIQL", true)
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("AUTH_RATE_LIMIT", "20-M")
	v.SetDefault("DEVELOPMENT", false)
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "logs/taskhub.log")
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.Store != "mongo" && c.Store != "memory" {
		return errors.New("STORE must be mongo or memory")
	}
	if c.DBTimeout <= 0 {
		return errors.New("DB_TIMEOUT must be positive")
	}
	return nil
}

// MongoURI fills the <db_PASSWORD> and <db_NAME> placeholders of DATABASE.
func (c *Config) MongoURI() string {
	uri := c.Database
	if uri == "" {
		uri = defaultMongoURI
	}
	uri = strings.ReplaceAll(uri, "<db_PASSWORD>", c.DatabasePassword)
	return strings.ReplaceAll(uri, "<db_NAME>", c.DBName)
}
