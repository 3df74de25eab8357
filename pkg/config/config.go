package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Audit     AuditConfig
	Logging   LoggingConfig
	Bootstrap BootstrapConfig
}

type ServerConfig struct {
	HTTPPort    int           `mapstructure:"http_port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Password  string   `mapstructure:"password"`
	DB        int      `mapstructure:"db"`
	PoolSize  int      `mapstructure:"pool_size"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type AuditConfig struct {
	Driver    string `mapstructure:"driver"` // memory or redis
	QueueSize int    `mapstructure:"queue_size"`
	RedisKey  string `mapstructure:"redis_key"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// BootstrapConfig optionally seeds the global super admin at startup.
type BootstrapConfig struct {
	SuperAdminEmail    string `mapstructure:"super_admin_email"`
	SuperAdminPassword string `mapstructure:"super_admin_password"`
	SuperAdminName     string `mapstructure:"super_admin_name"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/tenantdesk/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("TENANTDESK")
	viper.AutomaticEnv()

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("redis.pool_size", 100)
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("audit.driver", "memory")
	viper.SetDefault("audit.queue_size", 1024)
	viper.SetDefault("audit.redis_key", "tenantdesk.audit")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("bootstrap.super_admin_name", "Platform Admin")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
