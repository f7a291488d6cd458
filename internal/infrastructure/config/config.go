package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Supabase  SupabaseConfig
	Stripe    StripeConfig
	Storage   StorageConfig
	Mail      MailConfig
	WhatsApp  WhatsAppConfig
	Lookup    LookupConfig
	Company   CompanyConfig
	Orders    OrdersConfig
	Realtime  RealtimeConfig
	Printing  PrintingConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name        string
	Env         string
	Port        string
	FrontendURL string // used in email links and password reset redirects
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	SQLitePath      string
	AutoMigrate     bool // create tables from models (sqlite/dev only)
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds settings for locally issued tokens
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	MaxRefreshCount        int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	MaxUploadSize         int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// SupabaseConfig holds the Supabase Auth project settings
type SupabaseConfig struct {
	URL              string
	AnonKey          string
	ServiceRoleKey   string
	ResetRedirectURL string
	Timeout          time.Duration
}

// Enabled reports whether Supabase Auth is configured
func (s SupabaseConfig) Enabled() bool {
	return s.URL != "" && s.AnonKey != ""
}

// StripeConfig holds Stripe API settings
type StripeConfig struct {
	Enabled        bool
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
	Currency       string
}

// StorageConfig holds object storage settings
type StorageConfig struct {
	Provider          string // s3 or memory
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	UsePathStyle      bool
	PublicBaseURL     string // base URL for public objects (CDN or bucket website)
	PresignExpiration time.Duration
}

// MailConfig holds outgoing email settings
type MailConfig struct {
	Providers  []string // ordered: first is primary, rest are fallbacks (resend, smtp)
	From       string
	FromName   string
	AdminEmail string
	SMTP       SMTPConfig
	Resend     ResendConfig
	Retry      RetryConfig
	Alert      AlertConfig
}

// SMTPConfig holds SMTP server settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	SSL      bool
}

// ResendConfig holds Resend API settings
type ResendConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// RetryConfig holds backoff settings per provider
type RetryConfig struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// AlertConfig controls the failed-delivery self alert
type AlertConfig struct {
	Enabled   bool
	Interval  time.Duration
	Window    time.Duration
	Threshold int
	Cooldown  time.Duration
}

// WhatsAppConfig holds WhatsApp Cloud API settings
type WhatsAppConfig struct {
	Enabled       bool
	APIURL        string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// LookupConfig holds SUNAT/RENIEC lookup API settings
type LookupConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// CompanyConfig identifies the issuing company
type CompanyConfig struct {
	RUC            string
	Name           string
	Address        string
	Phone          string
	WhatsAppNumber string
	BoletaSeries   string
	FacturaSeries  string
}

// OrdersConfig holds checkout rules
type OrdersConfig struct {
	CODMaxAmount     decimal.Decimal
	CODCities        []string
	ShippingFlat     decimal.Decimal
	FreeShippingFrom decimal.Decimal
	// PaymentTimeout cancels card orders still unpaid after this long
	PaymentTimeout time.Duration
	// ExpiryCheckInterval is how often unpaid card orders are swept
	ExpiryCheckInterval time.Duration
}

// RealtimeConfig holds SSE settings
type RealtimeConfig struct {
	MaxClients        int
	HeartbeatInterval time.Duration
	BufferSize        int
}

// PrintingConfig holds headless Chrome settings for PDFs
type PrintingConfig struct {
	Enabled   bool
	ChromeURL string // remote debugging URL; empty launches a local browser
	Timeout   time.Duration
	NoSandbox bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with TIENDA_ prefix (e.g., TIENDA_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("TIENDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Env:         v.GetString("app.env"),
			Port:        v.GetString("app.port"),
			FrontendURL: v.GetString("app.frontend_url"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			MaxUploadSize:         v.GetInt64("http.max_upload_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Supabase: SupabaseConfig{
			URL:              v.GetString("supabase.url"),
			AnonKey:          v.GetString("supabase.anon_key"),
			ServiceRoleKey:   v.GetString("supabase.service_role_key"),
			ResetRedirectURL: v.GetString("supabase.reset_redirect_url"),
			Timeout:          v.GetDuration("supabase.timeout"),
		},
		Stripe: StripeConfig{
			Enabled:        v.GetBool("stripe.enabled"),
			SecretKey:      v.GetString("stripe.secret_key"),
			PublishableKey: v.GetString("stripe.publishable_key"),
			WebhookSecret:  v.GetString("stripe.webhook_secret"),
			Currency:       v.GetString("stripe.currency"),
		},
		Storage: StorageConfig{
			Provider:          v.GetString("storage.provider"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKeyID:       v.GetString("storage.access_key_id"),
			SecretAccessKey:   v.GetString("storage.secret_access_key"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PublicBaseURL:     v.GetString("storage.public_base_url"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Mail: MailConfig{
			Providers:  v.GetStringSlice("mail.providers"),
			From:       v.GetString("mail.from"),
			FromName:   v.GetString("mail.from_name"),
			AdminEmail: v.GetString("mail.admin_email"),
			SMTP: SMTPConfig{
				Host:     v.GetString("mail.smtp.host"),
				Port:     v.GetInt("mail.smtp.port"),
				User:     v.GetString("mail.smtp.user"),
				Password: v.GetString("mail.smtp.password"),
				SSL:      v.GetBool("mail.smtp.ssl"),
			},
			Resend: ResendConfig{
				APIKey:  v.GetString("mail.resend.api_key"),
				BaseURL: v.GetString("mail.resend.base_url"),
				Timeout: v.GetDuration("mail.resend.timeout"),
			},
			Retry: RetryConfig{
				Attempts:     v.GetInt("mail.retry.attempts"),
				InitialDelay: v.GetDuration("mail.retry.initial_delay"),
				MaxDelay:     v.GetDuration("mail.retry.max_delay"),
			},
			Alert: AlertConfig{
				Enabled:   v.GetBool("mail.alert.enabled"),
				Interval:  v.GetDuration("mail.alert.interval"),
				Window:    v.GetDuration("mail.alert.window"),
				Threshold: v.GetInt("mail.alert.threshold"),
				Cooldown:  v.GetDuration("mail.alert.cooldown"),
			},
		},
		WhatsApp: WhatsAppConfig{
			Enabled:       v.GetBool("whatsapp.enabled"),
			APIURL:        v.GetString("whatsapp.api_url"),
			PhoneNumberID: v.GetString("whatsapp.phone_number_id"),
			AccessToken:   v.GetString("whatsapp.access_token"),
			Timeout:       v.GetDuration("whatsapp.timeout"),
		},
		Lookup: LookupConfig{
			BaseURL:  v.GetString("lookup.base_url"),
			Token:    v.GetString("lookup.token"),
			Timeout:  v.GetDuration("lookup.timeout"),
			CacheTTL: v.GetDuration("lookup.cache_ttl"),
		},
		Company: CompanyConfig{
			RUC:            v.GetString("company.ruc"),
			Name:           v.GetString("company.name"),
			Address:        v.GetString("company.address"),
			Phone:          v.GetString("company.phone"),
			WhatsAppNumber: v.GetString("company.whatsapp_number"),
			BoletaSeries:   v.GetString("company.boleta_series"),
			FacturaSeries:  v.GetString("company.factura_series"),
		},
		Orders: OrdersConfig{
			CODCities:           v.GetStringSlice("orders.cod_cities"),
			PaymentTimeout:      v.GetDuration("orders.payment_timeout"),
			ExpiryCheckInterval: v.GetDuration("orders.expiry_check_interval"),
		},
		Realtime: RealtimeConfig{
			MaxClients:        v.GetInt("realtime.max_clients"),
			HeartbeatInterval: v.GetDuration("realtime.heartbeat_interval"),
			BufferSize:        v.GetInt("realtime.buffer_size"),
		},
		Printing: PrintingConfig{
			Enabled:   v.GetBool("printing.enabled"),
			ChromeURL: v.GetString("printing.chrome_url"),
			Timeout:   v.GetDuration("printing.timeout"),
			NoSandbox: v.GetBool("printing.no_sandbox"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
	}

	var err error
	if cfg.Orders.CODMaxAmount, err = parseAmount(v.GetString("orders.cod_max_amount")); err != nil {
		return nil, fmt.Errorf("orders.cod_max_amount: %w", err)
	}
	if cfg.Orders.ShippingFlat, err = parseAmount(v.GetString("orders.shipping_flat")); err != nil {
		return nil, fmt.Errorf("orders.shipping_flat: %w", err)
	}
	if cfg.Orders.FreeShippingFrom, err = parseAmount(v.GetString("orders.free_shipping_from")); err != nil {
		return nil, fmt.Errorf("orders.free_shipping_from: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "tienda-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.FrontendURL == "" {
		cfg.App.FrontendURL = "http://localhost:3000"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "tienda.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "tienda"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "tienda-backend"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.MaxUploadSize == 0 {
		cfg.HTTP.MaxUploadSize = 8 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	}
	if cfg.Supabase.Timeout == 0 {
		cfg.Supabase.Timeout = 10 * time.Second
	}
	if cfg.Supabase.ResetRedirectURL == "" {
		cfg.Supabase.ResetRedirectURL = strings.TrimSuffix(cfg.App.FrontendURL, "/") + "/restablecer-contrasena"
	}
	if cfg.Stripe.Currency == "" {
		cfg.Stripe.Currency = "pen"
	}
	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = "memory"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if len(cfg.Mail.Providers) == 0 {
		cfg.Mail.Providers = []string{"resend", "smtp"}
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "no-reply@localhost"
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = cfg.Company.Name
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}
	if cfg.Mail.Resend.BaseURL == "" {
		cfg.Mail.Resend.BaseURL = "https://api.resend.com"
	}
	if cfg.Mail.Resend.Timeout == 0 {
		cfg.Mail.Resend.Timeout = 10 * time.Second
	}
	if cfg.Mail.Retry.Attempts == 0 {
		cfg.Mail.Retry.Attempts = 3
	}
	if cfg.Mail.Retry.InitialDelay == 0 {
		cfg.Mail.Retry.InitialDelay = 500 * time.Millisecond
	}
	if cfg.Mail.Retry.MaxDelay == 0 {
		cfg.Mail.Retry.MaxDelay = 5 * time.Second
	}
	if cfg.Mail.Alert.Interval == 0 {
		cfg.Mail.Alert.Interval = 5 * time.Minute
	}
	if cfg.Mail.Alert.Window == 0 {
		cfg.Mail.Alert.Window = time.Hour
	}
	if cfg.Mail.Alert.Threshold == 0 {
		cfg.Mail.Alert.Threshold = 5
	}
	if cfg.Mail.Alert.Cooldown == 0 {
		cfg.Mail.Alert.Cooldown = time.Hour
	}
	if cfg.WhatsApp.APIURL == "" {
		cfg.WhatsApp.APIURL = "https://graph.facebook.com/v21.0"
	}
	if cfg.WhatsApp.Timeout == 0 {
		cfg.WhatsApp.Timeout = 10 * time.Second
	}
	if cfg.Lookup.BaseURL == "" {
		cfg.Lookup.BaseURL = "https://api.apis.net.pe/v2"
	}
	if cfg.Lookup.Timeout == 0 {
		cfg.Lookup.Timeout = 8 * time.Second
	}
	if cfg.Lookup.CacheTTL == 0 {
		cfg.Lookup.CacheTTL = 24 * time.Hour
	}
	if cfg.Company.BoletaSeries == "" {
		cfg.Company.BoletaSeries = "B001"
	}
	if cfg.Company.FacturaSeries == "" {
		cfg.Company.FacturaSeries = "F001"
	}
	if cfg.Orders.CODMaxAmount.IsZero() {
		cfg.Orders.CODMaxAmount = decimal.NewFromInt(1500)
	}
	if len(cfg.Orders.CODCities) == 0 {
		cfg.Orders.CODCities = []string{"Lima", "Callao"}
	}
	if cfg.Orders.ShippingFlat.IsZero() {
		cfg.Orders.ShippingFlat = decimal.NewFromInt(15)
	}
	if cfg.Orders.FreeShippingFrom.IsZero() {
		cfg.Orders.FreeShippingFrom = decimal.NewFromInt(500)
	}
	if cfg.Orders.PaymentTimeout == 0 {
		cfg.Orders.PaymentTimeout = 2 * time.Hour
	}
	if cfg.Orders.ExpiryCheckInterval == 0 {
		cfg.Orders.ExpiryCheckInterval = 10 * time.Minute
	}
	if cfg.Realtime.MaxClients == 0 {
		cfg.Realtime.MaxClients = 500
	}
	if cfg.Realtime.HeartbeatInterval == 0 {
		cfg.Realtime.HeartbeatInterval = 30 * time.Second
	}
	if cfg.Realtime.BufferSize == 0 {
		cfg.Realtime.BufferSize = 16
	}
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 30 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	for _, p := range c.Mail.Providers {
		if p != "resend" && p != "smtp" {
			return fmt.Errorf("mail.providers: unknown provider %q", p)
		}
	}
	switch c.Storage.Provider {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 provider")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.provider must be s3 or memory, got %q", c.Storage.Provider)
	}
	if c.Stripe.Enabled && c.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe.secret_key is required when stripe is enabled")
	}
	if c.Orders.CODMaxAmount.IsNegative() {
		return fmt.Errorf("orders.cod_max_amount cannot be negative")
	}

	if c.App.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.AutoMigrate {
			return fmt.Errorf("database.auto_migrate must be false in production (use cmd/migrate)")
		}
		if c.Stripe.Enabled && c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe.webhook_secret is required in production")
		}
		if c.Storage.Provider == "memory" {
			return fmt.Errorf("storage.provider memory is not allowed in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the postgres connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
