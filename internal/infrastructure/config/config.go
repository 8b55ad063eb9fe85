package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all gateway configuration
type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	Log          LogConfig
	Odoo         OdooConfig
	Database     DatabaseConfig
	OdooPostgres DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Session      SessionConfig
	APIKey       APIKeyConfig
	Webhook      WebhookConfig
	DBManager    DBManagerConfig
	Storage      StorageConfig
	Kafka        KafkaConfig
	Telemetry    TelemetryConfig
	Metrics      MetricsConfig
	Printing     PrintingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `validate:"required"`
	Env  string `validate:"oneof=development testing staging production"`
	Port string `validate:"required,numeric"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level     string // debug, info, warn, error
	Format    string // json, console
	Output    string // stdout, stderr, or file path
	GormLevel string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
	AuthRateLimit     int // login and key generation attempts per window
	IdempotencyTTL    time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
	DocsEnabled       bool
	DocsAllowedIPs    []string
}

// OdooConfig describes the upstream Odoo server
type OdooConfig struct {
	URL           string `validate:"required,url"`
	DefaultDB     string
	Timeout       time.Duration
	SkipTLSVerify bool
	ListLimit     int
	CommonModels  []string
	NamesOrder    string `validate:"omitempty,oneof=first_last last_first last_first_comma"`
	NamesRequired string `validate:"omitempty,oneof=firstname lastname firstname_lastname"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file path
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

// JWTConfig holds token settings
type JWTConfig struct {
	Secret          string
	Expiration      time.Duration
	Issuer          string
	MaxRefreshCount int
}

// SessionConfig holds the sealed credential store settings
type SessionConfig struct {
	Key string // 32 bytes, hex or raw
	TTL time.Duration
}

// APIKeyConfig controls API key generation
type APIKeyConfig struct {
	HashRounds   int
	DefaultName  string
	DefaultScope string
	AdminGroup   string
}

// WebhookConfig holds outbound webhook settings
type WebhookConfig struct {
	Enabled        bool
	URL            string
	Secret         string
	OrganizationID string
	Timeout        time.Duration
	Workers        int
	QueueSize      int
	RatePerSecond  float64
}

// DBManagerConfig holds database duplication settings
type DBManagerConfig struct {
	Enabled        bool
	MasterPassword string
	MaxAttempts    int
	RetryDelay     time.Duration
	JobTimeout     time.Duration
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// KafkaConfig holds the optional mutation event stream settings
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	ProfilingEnabled  bool
	PyroscopeURL      string
	OTLPLogs          bool // export logs to the collector as well
	OTLPMetrics       bool // push pool gauges to the collector
	MetricsInterval   time.Duration
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// PrintingConfig controls headless Chrome PDF rendering
type PrintingConfig struct {
	Enabled    bool
	ChromePath string
	Timeout    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with GATEWAY_ prefix (e.g., GATEWAY_ODOO_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/odoo-gateway")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetDefault("http.docs_enabled", true)
	v.SetDefault("metrics.enabled", true)

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			RateLimitBurst:    v.GetInt("http.rate_limit_burst"),
			AuthRateLimit:     v.GetInt("http.auth_rate_limit"),
			IdempotencyTTL:    v.GetDuration("http.idempotency_ttl"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			DocsEnabled:       v.GetBool("http.docs_enabled"),
			DocsAllowedIPs:    v.GetStringSlice("http.docs_allowed_ips"),
		},
		Log: LogConfig{
			Level:     v.GetString("log.level"),
			Format:    v.GetString("log.format"),
			Output:    v.GetString("log.output"),
			GormLevel: v.GetString("log.gorm_level"),
		},
		Odoo: OdooConfig{
			URL:           v.GetString("odoo.url"),
			DefaultDB:     v.GetString("odoo.default_db"),
			Timeout:       v.GetDuration("odoo.timeout"),
			SkipTLSVerify: v.GetBool("odoo.skip_tls_verify"),
			ListLimit:     v.GetInt("odoo.list_limit"),
			CommonModels:  v.GetStringSlice("odoo.common_models"),
			NamesOrder:    v.GetString("odoo.partner_names_order"),
			NamesRequired: v.GetString("odoo.partner_names_required_fields"),
		},
		Database:     databaseFromViper(v, "database"),
		OdooPostgres: databaseFromViper(v, "odoo_postgres"),
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			Expiration:      v.GetDuration("jwt.expiration"),
			Issuer:          v.GetString("jwt.issuer"),
			MaxRefreshCount: v.GetInt("jwt.max_refresh_count"),
		},
		Session: SessionConfig{
			Key: v.GetString("session.key"),
			TTL: v.GetDuration("session.ttl"),
		},
		APIKey: APIKeyConfig{
			HashRounds:   v.GetInt("apikey.hash_rounds"),
			DefaultName:  v.GetString("apikey.default_name"),
			DefaultScope: v.GetString("apikey.default_scope"),
			AdminGroup:   v.GetString("apikey.admin_group"),
		},
		Webhook: WebhookConfig{
			Enabled:        v.GetBool("webhook.enabled"),
			URL:            v.GetString("webhook.url"),
			Secret:         v.GetString("webhook.secret"),
			OrganizationID: v.GetString("webhook.organization_id"),
			Timeout:        v.GetDuration("webhook.timeout"),
			Workers:        v.GetInt("webhook.workers"),
			QueueSize:      v.GetInt("webhook.queue_size"),
			RatePerSecond:  v.GetFloat64("webhook.rate_per_second"),
		},
		DBManager: DBManagerConfig{
			Enabled:        v.GetBool("dbmanager.enabled"),
			MasterPassword: v.GetString("dbmanager.master_password"),
			MaxAttempts:    v.GetInt("dbmanager.max_attempts"),
			RetryDelay:     v.GetDuration("dbmanager.retry_delay"),
			JobTimeout:     v.GetDuration("dbmanager.job_timeout"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Kafka: KafkaConfig{
			Enabled:  v.GetBool("kafka.enabled"),
			Brokers:  v.GetStringSlice("kafka.brokers"),
			Topic:    v.GetString("kafka.topic"),
			ClientID: v.GetString("kafka.client_id"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeURL:      v.GetString("telemetry.pyroscope_url"),
			OTLPLogs:          v.GetBool("telemetry.otlp_logs"),
			OTLPMetrics:       v.GetBool("telemetry.otlp_metrics"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
		Printing: PrintingConfig{
			Enabled:    v.GetBool("printing.enabled"),
			ChromePath: v.GetString("printing.chrome_path"),
			Timeout:    v.GetDuration("printing.timeout"),
		},
	}
}

func databaseFromViper(v *viper.Viper, section string) DatabaseConfig {
	key := func(k string) string { return section + "." + k }
	return DatabaseConfig{
		Driver:          v.GetString(key("driver")),
		Host:            v.GetString(key("host")),
		Port:            v.GetInt(key("port")),
		User:            v.GetString(key("user")),
		Password:        v.GetString(key("password")),
		DBName:          v.GetString(key("dbname")),
		SSLMode:         v.GetString(key("sslmode")),
		Path:            v.GetString(key("path")),
		MaxOpenConns:    v.GetInt(key("max_open_conns")),
		MaxIdleConns:    v.GetInt(key("max_idle_conns")),
		ConnMaxLifetime: v.GetInt(key("conn_max_lifetime")),
		ConnMaxIdleTime: v.GetInt(key("conn_max_idle_time")),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "odoo-gateway"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8069"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Duplications run synchronously unless async is requested
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 300
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 50
	}
	if cfg.HTTP.AuthRateLimit == 0 {
		cfg.HTTP.AuthRateLimit = 10
	}
	if cfg.HTTP.IdempotencyTTL == 0 {
		cfg.HTTP.IdempotencyTTL = 24 * time.Hour
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-API-Key", "Idempotency-Key"}
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
	if cfg.Log.GormLevel == "" {
		cfg.Log.GormLevel = "warn"
	}

	if cfg.Odoo.URL == "" {
		cfg.Odoo.URL = "http://localhost:8069"
	}
	if cfg.Odoo.Timeout == 0 {
		cfg.Odoo.Timeout = 60 * time.Second
	}
	if cfg.Odoo.NamesOrder == "" {
		cfg.Odoo.NamesOrder = "first_last"
	}
	if cfg.Odoo.ListLimit == 0 {
		cfg.Odoo.ListLimit = 80
	}
	if len(cfg.Odoo.CommonModels) == 0 {
		cfg.Odoo.CommonModels = []string{
			"res.partner", "res.users", "res.company",
			"sale.order", "sale.order.line",
			"purchase.order",
			"product.product", "product.template",
			"account.move", "account.payment",
			"stock.picking", "stock.quant",
			"crm.lead", "project.project", "project.task",
			"hr.employee", "hr.department", "hr.leave",
		}
	}

	applyDatabaseDefaults(&cfg.Database, "odoo_gateway")
	applyDatabaseDefaults(&cfg.OdooPostgres, "postgres")
	cfg.OdooPostgres.Driver = "postgres"

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.JWT.Expiration == 0 {
		cfg.JWT.Expiration = 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "odoo-gateway"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 30
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 7 * 24 * time.Hour
	}

	if cfg.APIKey.HashRounds == 0 {
		cfg.APIKey.HashRounds = 25000
	}
	if cfg.APIKey.DefaultName == "" {
		cfg.APIKey.DefaultName = "Safee Integration Key"
	}
	if cfg.APIKey.DefaultScope == "" {
		cfg.APIKey.DefaultScope = "rpc"
	}
	if cfg.APIKey.AdminGroup == "" {
		cfg.APIKey.AdminGroup = "base.group_system"
	}

	if cfg.Webhook.Timeout == 0 {
		cfg.Webhook.Timeout = 10 * time.Second
	}
	if cfg.Webhook.Workers == 0 {
		cfg.Webhook.Workers = 4
	}
	if cfg.Webhook.QueueSize == 0 {
		cfg.Webhook.QueueSize = 1000
	}
	if cfg.Webhook.RatePerSecond == 0 {
		cfg.Webhook.RatePerSecond = 50
	}

	if cfg.DBManager.MaxAttempts == 0 {
		cfg.DBManager.MaxAttempts = 3
	}
	if cfg.DBManager.RetryDelay == 0 {
		cfg.DBManager.RetryDelay = 5 * time.Second
	}
	if cfg.DBManager.JobTimeout == 0 {
		cfg.DBManager.JobTimeout = 30 * time.Minute
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "auto"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "odoo.mutations"
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = cfg.App.Name
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
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 15 * time.Second
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig, dbName string) {
	if d.Driver == "" {
		d.Driver = "postgres"
	}
	if d.Host == "" {
		d.Host = "localhost"
	}
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.User == "" {
		d.User = "odoo"
	}
	if d.DBName == "" {
		d.DBName = dbName
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.Path == "" {
		d.Path = "gateway.db"
	}
	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = 10
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = 2
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = 60
	}
	if d.ConnMaxIdleTime == 0 {
		d.ConnMaxIdleTime = 15
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	validate := validator.New()
	if err := validate.Struct(c.App); err != nil {
		return fmt.Errorf("invalid app config: %w", err)
	}
	if err := validate.Struct(c.Odoo); err != nil {
		return fmt.Errorf("invalid odoo config: %w", err)
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.DBManager.Enabled && c.DBManager.MasterPassword == "" {
		return fmt.Errorf("dbmanager.master_password is required when dbmanager is enabled")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Session.Key == "" {
			return fmt.Errorf("session.key is required in production")
		}
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Webhook.Enabled && len(c.Webhook.Secret) < 16 {
			return fmt.Errorf("webhook.secret must be at least 16 characters in production")
		}
	}
	return nil
}

// IsProduction reports whether the gateway runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	return d.DSNFor(d.DBName)
}

// DSNFor returns a connection string for another database on the same server
func (d *DatabaseConfig) DSNFor(dbName string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   dbName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
