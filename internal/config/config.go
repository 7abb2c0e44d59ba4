package config

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	MongoDB  MongoDBConfig
	Auth     AuthConfig
	Sync     SyncConfig
	Logging  LoggingConfig
	Client   ClientConfig
}

type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	GRPCPort        string        `env:"GRPC_PORT" envDefault:"7010"`
	MediaPort       string        `env:"MEDIA_SERVER_PORT" envDefault:"8081"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxUploadMB     int64         `env:"MAX_UPLOAD_MB" envDefault:"100"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
}

type DatabaseConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            string        `env:"MYSQL_PORT" envDefault:"3306"`
	Username        string        `env:"MYSQL_USERNAME" envDefault:"contentflow"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"contentflow123"`
	DatabaseName    string        `env:"MYSQL_DATABASE" envDefault:"contentflow"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
	AutoMigrate     bool          `env:"MYSQL_AUTO_MIGRATE" envDefault:"true"`
}

type MongoDBConfig struct {
	Host     string `env:"MONGO_HOST" envDefault:"localhost"`
	Port     string `env:"MONGO_PORT" envDefault:"27017"`
	Username string `env:"MONGO_USERNAME"`
	Password string `env:"MONGO_PASSWORD"`
	Database string `env:"MONGO_DATABASE" envDefault:"contentflow"`
	Bucket   string `env:"MONGO_MEDIA_BUCKET" envDefault:"media"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	Issuer    string        `env:"JWT_ISSUER" envDefault:"contentflow"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

type SyncConfig struct {
	PollInterval       time.Duration `env:"SYNC_POLL_INTERVAL" envDefault:"3s"`
	BackoffBase        time.Duration `env:"SYNC_BACKOFF_BASE" envDefault:"500ms"`
	BackoffMax         time.Duration `env:"SYNC_BACKOFF_MAX" envDefault:"30s"`
	MaxRetries         int           `env:"SYNC_MAX_RETRIES" envDefault:"0"` // 0 = retry forever
	HubWorkers         int           `env:"SYNC_HUB_WORKERS" envDefault:"5"`
	HubBufferSize      int           `env:"SYNC_HUB_BUFFER" envDefault:"1000"`
	SessionBuffer      int           `env:"SYNC_SESSION_BUFFER" envDefault:"64"`
	PingInterval       time.Duration `env:"SYNC_PING_INTERVAL" envDefault:"30s"`
	TombstoneRetention time.Duration `env:"SYNC_TOMBSTONE_RETENTION" envDefault:"168h"`
	JanitorInterval    time.Duration `env:"SYNC_JANITOR_INTERVAL" envDefault:"1h"`
}

type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"text"`
	Output     string `env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, file, both
	Path       string `env:"LOG_PATH" envDefault:"logs"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// ClientConfig is read by contentctl.
type ClientConfig struct {
	ServerURL string `env:"CONTENTFLOW_URL" envDefault:"http://localhost:8080"`
	GRPCAddr  string `env:"CONTENTFLOW_GRPC_ADDR" envDefault:"localhost:7010"`
	MediaURL  string `env:"CONTENTFLOW_MEDIA_URL" envDefault:"http://localhost:8081"`
	Token     string `env:"CONTENTFLOW_TOKEN"`
	Mode      string `env:"CONTENTFLOW_SYNC_MODE" envDefault:"push"` // push, grpc, poll
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Sync.PollInterval <= 0 {
		return fmt.Errorf("SYNC_POLL_INTERVAL must be positive, got %s", cfg.Sync.PollInterval)
	}
	if cfg.Sync.BackoffBase <= 0 || cfg.Sync.BackoffMax < cfg.Sync.BackoffBase {
		return fmt.Errorf("invalid backoff window %s..%s", cfg.Sync.BackoffBase, cfg.Sync.BackoffMax)
	}
	if cfg.Sync.MaxRetries < 0 {
		return fmt.Errorf("SYNC_MAX_RETRIES must be >= 0")
	}
	if cfg.Sync.HubWorkers <= 0 {
		return fmt.Errorf("SYNC_HUB_WORKERS must be positive")
	}
	switch cfg.Client.Mode {
	case "push", "grpc", "poll":
	default:
		return fmt.Errorf("CONTENTFLOW_SYNC_MODE must be push, grpc or poll, got %q", cfg.Client.Mode)
	}
	return nil
}

func (cfg *Config) DSN() string {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DatabaseName,
	)
}

func (cfg *Config) GetMongoURI() string {
	m := cfg.MongoDB
	if m.Username != "" && m.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin", m.Username, m.Password, m.Host, m.Port, m.Database)
	}
	return fmt.Sprintf("mongodb://%s:%s/%s", m.Host, m.Port, m.Database)
}

func (cfg *Config) HTTPAddr() string {
	return net.JoinHostPort(cfg.Server.Host, cfg.Server.HTTPPort)
}

func (cfg *Config) GRPCAddr() string {
	return net.JoinHostPort(cfg.Server.Host, cfg.Server.GRPCPort)
}

func (cfg *Config) MediaAddr() string {
	return net.JoinHostPort(cfg.Server.Host, cfg.Server.MediaPort)
}
