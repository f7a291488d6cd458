package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearTiendaEnv unsets every TIENDA_ variable for the duration of the test
func clearTiendaEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "TIENDA_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults", func(t *testing.T) {
		clearTiendaEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "tienda-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiration)
		assert.Equal(t, []string{"resend", "smtp"}, cfg.Mail.Providers)
		assert.Equal(t, 3, cfg.Mail.Retry.Attempts)
		assert.Equal(t, 5, cfg.Mail.Alert.Threshold)
		assert.Equal(t, "B001", cfg.Company.BoletaSeries)
		assert.Equal(t, "F001", cfg.Company.FacturaSeries)
		assert.True(t, cfg.Orders.CODMaxAmount.Equal(decimal.NewFromInt(1500)))
		assert.Equal(t, 30*time.Second, cfg.Realtime.HeartbeatInterval)
		assert.Equal(t, 24*time.Hour, cfg.Lookup.CacheTTL)
		assert.Equal(t, "memory", cfg.Storage.Provider)
		assert.Equal(t, "http://localhost:3000/restablecer-contrasena", cfg.Supabase.ResetRedirectURL)
		assert.Equal(t, "tienda-backend", cfg.Telemetry.ServiceName)
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		clearTiendaEnv(t)
		t.Setenv("TIENDA_APP_NAME", "test-app")
		t.Setenv("TIENDA_APP_PORT", "9000")
		t.Setenv("TIENDA_DATABASE_DRIVER", "sqlite")
		t.Setenv("TIENDA_DATABASE_SQLITE_PATH", "/tmp/test.db")
		t.Setenv("TIENDA_MAIL_RETRY_ATTEMPTS", "5")
		t.Setenv("TIENDA_ORDERS_COD_MAX_AMOUNT", "800.50")
		t.Setenv("TIENDA_ORDERS_COD_CITIES", "Lima Arequipa")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "/tmp/test.db", cfg.Database.SQLitePath)
		assert.Equal(t, 5, cfg.Mail.Retry.Attempts)
		assert.Equal(t, "800.5", cfg.Orders.CODMaxAmount.String())
		assert.Equal(t, []string{"Lima", "Arequipa"}, cfg.Orders.CODCities)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearTiendaEnv(t)
		t.Setenv("TIENDA_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("TIENDA_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearTiendaEnv(t)
		t.Setenv("TIENDA_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown mail provider", func(t *testing.T) {
		clearTiendaEnv(t)
		t.Setenv("TIENDA_MAIL_PROVIDERS", "sendgrid")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})

	t.Run("rejects malformed amount", func(t *testing.T) {
		clearTiendaEnv(t)
		t.Setenv("TIENDA_ORDERS_SHIPPING_FLAT", "quince")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "orders.shipping_flat")
	})

	t.Run("s3 storage requires a bucket", func(t *testing.T) {
		clearTiendaEnv(t)
		t.Setenv("TIENDA_STORAGE_PROVIDER", "s3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")
	})

	t.Run("stripe requires a secret key when enabled", func(t *testing.T) {
		clearTiendaEnv(t)
		t.Setenv("TIENDA_STRIPE_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.secret_key")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearTiendaEnv(t)
		t.Setenv("TIENDA_APP_ENV", "production")
		t.Setenv("TIENDA_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("TIENDA_DATABASE_PASSWORD", "secure-password")
		t.Setenv("TIENDA_STORAGE_PROVIDER", "s3")
		t.Setenv("TIENDA_STORAGE_BUCKET", "tienda-assets")
		t.Setenv("TIENDA_HTTP_CORS_ALLOW_ORIGINS", "https://tienda.pe")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.App.IsProduction())
	})

	t.Run("requires long jwt secret", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TIENDA_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret must be at least 32 characters")
	})

	t.Run("requires database password", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("TIENDA_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("rejects sqlite", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TIENDA_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be postgres in production")
	})

	t.Run("rejects auto migrate", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TIENDA_DATABASE_AUTO_MIGRATE", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auto_migrate")
	})

	t.Run("rejects in-memory storage", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TIENDA_STORAGE_PROVIDER", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.provider memory")
	})

	t.Run("rejects wildcard CORS", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TIENDA_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})

	t.Run("requires webhook secret when stripe is enabled", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TIENDA_STRIPE_ENABLED", "true")
		t.Setenv("TIENDA_STRIPE_SECRET_KEY", "sk_live_x")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.webhook_secret")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
