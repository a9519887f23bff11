package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/storage"
)

func validConfig() Config {
	return Config{
		Addr:        defaultAddr,
		Storage:     storage.BackendPostgres,
		DatabaseURL: "postgres://localhost/scatch",
		JWTSecret:   "secret",
		TokenTTL:    168 * time.Hour,
		Order:       order.Config{PlatformFee: 20, MaxRefAttempts: 3},
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, (&Config{
		Storage: storage.BackendMemory, JWTSecret: "s", TokenTTL: time.Hour,
		Order: order.Config{MaxRefAttempts: 1},
	}).Validate())

	for name, mutate := range map[string]func(*Config){
		"UnknownBackend": func(c *Config) { c.Storage = "redis" },
		"NoDatabaseURL":  func(c *Config) { c.DatabaseURL = "" },
		"NoMongoURI":     func(c *Config) { c.Storage = storage.BackendMongo },
		"NoJWTSecret":    func(c *Config) { c.JWTSecret = "" },
		"ZeroTTL":        func(c *Config) { c.TokenTTL = 0 },
		"NoRefAttempts":  func(c *Config) { c.Order.MaxRefAttempts = 0 },
		"NegativeFee":    func(c *Config) { c.Order.ShippingFee = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			require.NoError(t, cfg.Validate())
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_PlatformDefaults(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL": "postgres://platform/db",
		"MONGODB_URI":  "mongodb://platform",
		"PORT":         "9000",
	}
	getenv := func(k string) string { return env[k] }

	cfg := Config{Addr: defaultAddr}
	cfg.applyPlatformDefaults(getenv)
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "mongodb://platform", cfg.MongoURI)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)

	explicit := Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
	explicit.applyPlatformDefaults(getenv)
	assert.Equal(t, "postgres://explicit/db", explicit.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", explicit.Addr)
}
