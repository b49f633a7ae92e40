package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	PolicyPermissive = "permissive"
	PolicyStrict     = "strict"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	ServiceName string
	LogLevel    string
	GinMode     string
	Port        string

	DBDriver string
	DBDSN    string

	JWTSecret string

	// Bootstrap admin, created at startup when both are set
	AdminEmail    string
	AdminPassword string

	// Order lifecycle behavior
	TransitionPolicy  string
	DriverExclusive   bool
	RequireRestaurant bool

	WSBuffer int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string

	AMQPURL      string
	AMQPExchange string
}

// Load reads configuration from the environment, optionally seeded by a .env file.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "food-marketplace"))
	cfg.LogLevel = cast.ToString(getOrReturnDefault("LOG_LEVEL", "debug"))
	cfg.GinMode = cast.ToString(getOrReturnDefault("GIN_MODE", "debug"))
	cfg.Port = cast.ToString(getOrReturnDefault("PORT", "8080"))

	cfg.DBDriver = strings.ToLower(cast.ToString(getOrReturnDefault("DB_DRIVER", DriverSQLite)))
	cfg.DBDSN = cast.ToString(getOrReturnDefault("DB_DSN", "food_delivery.db"))

	// JWTSecret used to sign tokens; the fallback is for local development only
	cfg.JWTSecret = cast.ToString(getOrReturnDefault("JWT_SECRET", "food_delivery_super_secret_2024"))

	cfg.AdminEmail = cast.ToString(getOrReturnDefault("ADMIN_EMAIL", ""))
	cfg.AdminPassword = cast.ToString(getOrReturnDefault("ADMIN_PASSWORD", ""))

	cfg.TransitionPolicy = strings.ToLower(cast.ToString(getOrReturnDefault("TRANSITION_POLICY", PolicyPermissive)))
	cfg.DriverExclusive = cast.ToBool(getOrReturnDefault("DRIVER_EXCLUSIVE", false))
	cfg.RequireRestaurant = cast.ToBool(getOrReturnDefault("REQUIRE_RESTAURANT", false))

	cfg.WSBuffer = cast.ToInt(getOrReturnDefault("WS_BUFFER", 32))

	cfg.RedisAddr = cast.ToString(getOrReturnDefault("REDIS_ADDR", ""))
	cfg.RedisPassword = cast.ToString(getOrReturnDefault("REDIS_PASSWORD", ""))
	cfg.RedisDB = cast.ToInt(getOrReturnDefault("REDIS_DB", 0))

	cfg.KafkaBrokers = splitList(cast.ToString(getOrReturnDefault("KAFKA_BROKERS", "")))
	cfg.KafkaTopic = cast.ToString(getOrReturnDefault("KAFKA_TOPIC", "food_orders"))

	cfg.AMQPURL = cast.ToString(getOrReturnDefault("AMQP_URL", ""))
	cfg.AMQPExchange = cast.ToString(getOrReturnDefault("AMQP_EXCHANGE", "food_delivery"))

	return cfg, cfg.Validate()
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	switch c.TransitionPolicy {
	case PolicyPermissive, PolicyStrict:
	default:
		return fmt.Errorf("invalid TRANSITION_POLICY %q: must be %s or %s", c.TransitionPolicy, PolicyPermissive, PolicyStrict)
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: must be %s or %s", c.DBDriver, DriverSQLite, DriverPostgres)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.WSBuffer <= 0 {
		return fmt.Errorf("WS_BUFFER must be positive, got %d", c.WSBuffer)
	}
	return nil
}

// String returns a representation with secrets masked.
func (c Config) String() string {
	return fmt.Sprintf("Config{service: %s, port: %s, db: %s, policy: %s, driver_exclusive: %t, redis: %q, kafka: %v, amqp: %t, admin: %q, jwt: ***}",
		c.ServiceName, c.Port, c.DBDriver, c.TransitionPolicy, c.DriverExclusive, c.RedisAddr, c.KafkaBrokers, c.AMQPURL != "", c.AdminEmail)
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
