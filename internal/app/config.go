package app

import (
	"os"
	"slices"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/storage"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (SCATCH_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage       string        `default:"postgres" usage:"Storage backend: postgres, mongo or memory"`
	DatabaseURL   string        `usage:"PostgreSQL connection URL (SCATCH_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	MongoURI      string        `usage:"MongoDB connection URI (SCATCH_MONGO_URI or MONGODB_URI)" flag:"mongo-uri"`
	MongoDatabase string        `default:"scatch" usage:"MongoDB database name" flag:"mongo-database"`
	ImageBaseURL  string        `default:"" usage:"Base URL for relative product image paths" flag:"image-base-url"`
	JWTSecret     string        `usage:"HMAC secret signing user tokens (SCATCH_JWT_SECRET)" flag:"jwt-secret"`
	TokenTTL      time.Duration `default:"168h" usage:"User token lifetime" flag:"token-ttl"`
	SecureCookies bool          `default:"false" usage:"Mark the session cookie Secure" flag:"secure-cookies"`
	APIKeyPepper  string        `usage:"HMAC pepper for API key hashing (SCATCH_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Order         order.Config
	Coupon        CouponConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// CouponConfig controls coupon code handling.
type CouponConfig struct {
	UppercaseCodes bool `default:"true" usage:"Normalise coupon codes to upper case" flag:"coupon-uppercase"`
}

// Domain returns the coupon engine configuration.
func (c CouponConfig) Domain() coupon.Config {
	return coupon.Config{UppercaseCodes: c.UppercaseCodes}
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (session cookie, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from flags, environment variables and YAML
// config files, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(false)
}

// LoadEnvConfig is LoadConfig without command-line flags, for tools that
// parse their own.
func LoadEnvConfig() (*Config, error) {
	return loadConfig(true)
}

func loadConfig(skipFlags bool) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SCATCH",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/scatch/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	backends := []string{storage.BackendPostgres, storage.BackendMongo, storage.BackendMemory}
	if !slices.Contains(backends, c.Storage) {
		return errors.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.Storage == storage.BackendPostgres && c.DatabaseURL == "" {
		return errors.New("database URL is required: set SCATCH_DATABASE_URL or DATABASE_URL")
	}
	if c.Storage == storage.BackendMongo && c.MongoURI == "" {
		return errors.New("mongo URI is required: set SCATCH_MONGO_URI or MONGODB_URI")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT secret is required: set SCATCH_JWT_SECRET")
	}
	if c.TokenTTL <= 0 {
		return errors.Errorf("token TTL must be positive, got %s", c.TokenTTL)
	}
	if c.Order.MaxRefAttempts < 1 {
		return errors.Errorf("order ref attempts must be at least 1, got %d", c.Order.MaxRefAttempts)
	}
	if c.Order.PlatformFee < 0 || c.Order.ShippingFee < 0 {
		return errors.New("order fees must not be negative")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) such as DATABASE_URL, MONGODB_URI and PORT onto the
// SCATCH_-prefixed configuration.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
	if c.MongoURI == "" {
		c.MongoURI = getenv("MONGODB_URI")
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
