package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Export   ExportConfig   `mapstructure:"export"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// PublicBaseURL prefixes polling URLs. When empty the request's scheme and host are used.
	PublicBaseURL      string        `mapstructure:"public_base_url" validate:"omitempty,url"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig selects and configures the record and job storage.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory postgres"`
	URL    string `mapstructure:"url" validate:"required_if=Driver postgres"`
	// AutoMigrate applies pending migrations at startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// QueueConfig selects the job queue backend.
type QueueConfig struct {
	Backend          string `mapstructure:"backend" validate:"required,oneof=local redis"`
	BrokerURL        string `mapstructure:"broker_url" validate:"required_if=Backend redis"`
	ResultBackendURL string `mapstructure:"result_backend_url" validate:"required_if=Backend redis"`
	DefaultQueue     string `mapstructure:"default_queue" validate:"required"`

	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`

	JobTimeout      time.Duration `mapstructure:"job_timeout" validate:"gte=0"`
	StuckJobAge     time.Duration `mapstructure:"stuck_job_age" validate:"gte=0"`
	ResultRetention time.Duration `mapstructure:"result_retention" validate:"gte=0"`
}

// ExportConfig tunes calendar generation.
type ExportConfig struct {
	// GenerationDelay is an artificial latency added before each render.
	GenerationDelay time.Duration `mapstructure:"generation_delay" validate:"gte=0"`
}
