package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "hoodskool-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendFirestore, cfg.Cart.Backend)
	assert.Equal(t, 30*24*time.Hour, cfg.Cart.GuestTTL)
	assert.Equal(t, 30*time.Minute, cfg.Cart.SessionIdle)
	assert.Equal(t, "carts", cfg.Firebase.CartsCollection)
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CART_BACKEND", "Postgres")
	t.Setenv("DEV_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CART_GUEST_TTL", "48h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://hoodskool.com, https://www.hoodskool.com")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Cart.Backend)
	assert.Equal(t, 48*time.Hour, cfg.Cart.GuestTTL)
	assert.Equal(t, []string{"https://hoodskool.com", "https://www.hoodskool.com"}, cfg.Security.CORSAllowedOrigins)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Contains(t, cfg.GetDatabaseDSN(), "host=db.internal port=6543")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Environment: "development"},
			Server:   ServerConfig{Port: "8080"},
			Redis:    RedisConfig{Host: "localhost"},
			Firebase: FirebaseConfig{ProjectID: "hoodskool"},
			Cart: CartConfig{
				Backend:       BackendFirestore,
				SessionIdle:   time.Minute,
				SweepInterval: time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Cart.Backend = "mongo" },
			wantErr: "CART_BACKEND",
		},
		{
			name:    "firestore without project",
			mutate:  func(c *Config) { c.Firebase.ProjectID = "" },
			wantErr: "FIREBASE_PROJECT_ID",
		},
		{
			name: "postgres without host",
			mutate: func(c *Config) {
				c.Cart.Backend = BackendPostgres
				c.Postgres = PostgresConfig{Name: "db", User: "u"}
			},
			wantErr: "DB_HOST",
		},
		{
			name: "short dev secret",
			mutate: func(c *Config) {
				c.Firebase.DevJWTSecret = "short"
			},
			wantErr: "at least 32",
		},
		{
			name: "dev secret in production",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Firebase.DevJWTSecret = "0123456789abcdef0123456789abcdef"
			},
			wantErr: "production",
		},
		{
			name:    "no idle timeout",
			mutate:  func(c *Config) { c.Cart.SessionIdle = 0 },
			wantErr: "CART_SESSION_IDLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
