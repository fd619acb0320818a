package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "transcript-request-service/pkg/errors"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeAuto      = "auto"
	ModeLive      = "live"
	ModeSimulated = "simulated"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Mail      MailConfig      `yaml:"mail"`
	Auth      AuthConfig      `yaml:"auth"`
	Callback  CallbackConfig  `yaml:"callback"`
	Documents DocumentsConfig `yaml:"documents"`
	Workers   WorkersConfig   `yaml:"workers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	ParseTime          bool          `yaml:"parse_time"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
	MigrateOnStart     bool          `yaml:"migrate_on_start"`
}

type RedisConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
	StatusQueue string `yaml:"status_queue"`
	DLQSuffix   string `yaml:"dlq_suffix"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// DeliveryConfig describes the SFTP drop of the transcript delivery network.
type DeliveryConfig struct {
	Mode           string        `yaml:"mode"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	RemoteDir      string        `yaml:"remote_dir"`
	KnownHostsPath string        `yaml:"known_hosts_path"`
	Timeout        time.Duration `yaml:"timeout"`
}

type MailConfig struct {
	Mode        string `yaml:"mode"`
	APIKey      string `yaml:"api_key"`
	From        string `yaml:"from"`
	SandboxFrom string `yaml:"sandbox_from"`
	UseSandbox  bool   `yaml:"use_sandbox"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type CallbackConfig struct {
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

type DocumentsConfig struct {
	BrandName string `yaml:"brand_name"`
}

type WorkersConfig struct {
	Callback CallbackWorkerConfig `yaml:"callback"`
	Report   ReportWorkerConfig   `yaml:"report"`
}

type CallbackWorkerConfig struct {
	Count int `yaml:"count"`
}

type ReportWorkerConfig struct {
	Hour       int           `yaml:"hour"`
	StaleAfter time.Duration `yaml:"stale_after"`
	RunOnStart bool          `yaml:"run_on_start"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env, the optional YAML file at CONFIG_PATH and environment
// overrides, in that order of increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var config Config
	// -1 marks the hour as unset so that 0 (midnight) stays configurable.
	config.Workers.Report.Hour = -1
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	setString(&c.App.Env, "APP_ENV")
	setInt(&c.Server.Port, "PORT")

	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setBool(&c.Database.MigrateOnStart, "DB_MIGRATE_ON_START")

	setString(&c.Redis.Host, "REDIS_HOST")
	setInt(&c.Redis.Port, "REDIS_PORT")
	setString(&c.Redis.Password, "REDIS_PASSWORD")

	setString(&c.Storage.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.Storage.S3.Bucket, "S3_BUCKET")
	setString(&c.Storage.S3.Region, "S3_REGION")

	setString(&c.Delivery.Mode, "DELIVERY_MODE")
	setString(&c.Delivery.Host, "SFTP_HOST")
	setInt(&c.Delivery.Port, "SFTP_PORT")
	setString(&c.Delivery.Username, "SFTP_USERNAME")
	setString(&c.Delivery.Password, "SFTP_PASSWORD")
	setString(&c.Delivery.RemoteDir, "SFTP_PATH")
	setString(&c.Delivery.KnownHostsPath, "SFTP_KNOWN_HOSTS")

	setString(&c.Mail.Mode, "MAIL_MODE")
	setString(&c.Mail.APIKey, "RESEND_API_KEY")
	setString(&c.Mail.From, "MAIL_FROM")
	setBool(&c.Mail.UseSandbox, "USE_SANDBOX_EMAIL")

	setString(&c.Auth.APIKey, "EXTERNAL_API_KEY")
	setString(&c.Callback.APIKey, "CALLBACK_API_KEY")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "transcript-request-service"
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 5 << 20
	}

	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.Loc == "" {
		c.Database.Loc = "UTC"
	}
	c.Database.ParseTime = true
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 25
	}
	if c.Database.MaxIdleConnections == 0 {
		c.Database.MaxIdleConnections = 5
	}
	if c.Database.ConnectionLifetime == 0 {
		c.Database.ConnectionLifetime = 5 * time.Minute
	}

	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.StatusQueue == "" {
		c.Redis.StatusQueue = "transcripts:status-events"
	}
	if c.Redis.DLQSuffix == "" {
		c.Redis.DLQSuffix = ":dlq"
	}

	if c.Storage.S3.Region == "" {
		c.Storage.S3.Region = "us-east-1"
	}

	if c.Delivery.Mode == "" {
		c.Delivery.Mode = ModeAuto
	}
	if c.Delivery.Port == 0 {
		c.Delivery.Port = 22
	}
	if c.Delivery.RemoteDir == "" {
		c.Delivery.RemoteDir = "/incoming"
	}
	if c.Delivery.Timeout == 0 {
		c.Delivery.Timeout = 20 * time.Second
	}

	if c.Mail.Mode == "" {
		c.Mail.Mode = ModeAuto
	}
	if c.Mail.From == "" {
		c.Mail.From = "Transcript Requests <transcripts@example.com>"
	}
	if c.Mail.SandboxFrom == "" {
		c.Mail.SandboxFrom = "onboarding@resend.dev"
	}

	if c.Callback.Timeout == 0 {
		c.Callback.Timeout = 10 * time.Second
	}
	if c.Callback.RetryAttempts == 0 {
		c.Callback.RetryAttempts = 3
	}
	if c.Callback.RetryDelay == 0 {
		c.Callback.RetryDelay = 2 * time.Second
	}

	if c.Documents.BrandName == "" {
		c.Documents.BrandName = "Transcript Request Service"
	}

	if c.Workers.Callback.Count == 0 {
		c.Workers.Callback.Count = 4
	}
	if c.Workers.Report.Hour < 0 {
		c.Workers.Report.Hour = 23
	}
	if c.Workers.Report.StaleAfter == 0 {
		c.Workers.Report.StaleAfter = 24 * time.Hour
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate rejects configurations the services cannot start with. Optional
// integrations are not checked here; they degrade at wiring time.
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("%w: database host and name are required", apperrors.ErrInvalidConfig)
	}

	switch c.Delivery.Mode {
	case ModeAuto, ModeSimulated:
	case ModeLive:
		if !c.Delivery.HasCredentials() {
			return fmt.Errorf("%w: live delivery requires host, username and password", apperrors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown delivery mode %q", apperrors.ErrInvalidConfig, c.Delivery.Mode)
	}

	switch c.Mail.Mode {
	case ModeAuto, ModeSimulated:
	case ModeLive:
		if c.Mail.APIKey == "" {
			return fmt.Errorf("%w: live mail requires an API key", apperrors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mail mode %q", apperrors.ErrInvalidConfig, c.Mail.Mode)
	}

	if c.Workers.Report.Hour < 0 || c.Workers.Report.Hour > 23 {
		return fmt.Errorf("%w: report hour must be between 0 and 23", apperrors.ErrInvalidConfig)
	}
	return nil
}

func (d DeliveryConfig) HasCredentials() bool {
	return d.Host != "" && d.Username != "" && d.Password != ""
}

// ResolvedMode returns live or simulated for the delivery client.
func (d DeliveryConfig) ResolvedMode() string {
	if d.Mode == ModeAuto {
		if d.HasCredentials() {
			return ModeLive
		}
		return ModeSimulated
	}
	return d.Mode
}

// ResolvedMode returns live or simulated for the notification client.
func (m MailConfig) ResolvedMode() string {
	if m.Mode == ModeAuto {
		if m.APIKey != "" {
			return ModeLive
		}
		return ModeSimulated
	}
	return m.Mode
}

func (m MailConfig) Sender() string {
	if m.UseSandbox {
		return m.SandboxFrom
	}
	return m.From
}

func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
func (c *Config) DatabaseDSN() string {
	dsn := mysql.NewConfig()
	dsn.User = c.Database.User
	dsn.Passwd = c.Database.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port))
	dsn.DBName = c.Database.Name
	dsn.ParseTime = c.Database.ParseTime
	if loc, err := time.LoadLocation(c.Database.Loc); err == nil {
		dsn.Loc = loc
	}
	if c.Database.Charset != "" {
		dsn.Params = map[string]string{"charset": c.Database.Charset}
	}
	return dsn.FormatDSN()
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) SFTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Delivery.Host, c.Delivery.Port)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}
