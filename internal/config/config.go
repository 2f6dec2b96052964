package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Mail     MailConfig     `mapstructure:"mail"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify"   validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=44640"`
	BcryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
}

// MailConfig contains the outbound SMTP settings used by the notification
// dispatcher. When Enabled is false, messages are logged instead of sent.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"     validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port"     validate:"gt=0,lt=65536"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"     validate:"required,email"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// StorageConfig contains settings for uploaded task files.
type StorageConfig struct {
	FilesDir string `mapstructure:"files_dir" validate:"required"`
}

// NotifyConfig sizes the background notification queue.
type NotifyConfig struct {
	QueueSize   int `mapstructure:"queue_size"   validate:"gt=0"`
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
}
