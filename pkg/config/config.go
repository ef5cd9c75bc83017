package config

import "time"

// Realtime definition realtime_service YAML structure
type Realtime struct {
	Port string `mapstructure:"port"`

	Mongo   DatabaseConfig `mapstructure:"mongo"`
	Redis   RedisConfig    `mapstructure:"redis"`
	WebPush WebPushConfig  `mapstructure:"web_push"`

	ProfileCacheTTL time.Duration `mapstructure:"profile_cache_ttl"`
}

// WebPushConfig VAPID key pair and contact for the push provider
type WebPushConfig struct {
	PublicKey  string `mapstructure:"public_key"`
	PrivateKey string `mapstructure:"private_key"`
	Subscriber string `mapstructure:"subscriber"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
