package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"` // sqlite | postgres
	DBDSN    string `envconfig:"DB_DSN" default:"storefront.db"`

	// CatalogBackend selects where products and orders live: sql | mongo.
	CatalogBackend string `envconfig:"CATALOG_BACKEND" default:"sql"`
	MongoURI       string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB        string `envconfig:"MONGO_DB" default:"storefront"`

	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"storefront-events"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	MediaDir string `envconfig:"MEDIA_DIR" default:"./web/media"`
	LogFile  string `envconfig:"LOG_FILE"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	SeedDemo     bool `envconfig:"SEED_DEMO" default:"true"`
	CookieSecure bool `envconfig:"COOKIE_SECURE" default:"false"`
	RateLimit    int  `envconfig:"RATE_LIMIT" default:"60"` // requests per minute per IP, 0 disables
	CSRF         bool `envconfig:"CSRF" default:"true"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
