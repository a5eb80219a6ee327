package config

import "time"

// Roster definition roster_service YAML structure
type Roster struct {
	Port string `mapstructure:"port"`

	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	ContactsDB DatabaseConfig `mapstructure:"contacts_pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Feed       FeedConfig     `mapstructure:"feed"`
	Presence   PresenceConfig `mapstructure:"presence"`
}

// FeedConfig definition live change feed setting
type FeedConfig struct {
	// ChannelPrefix prefix of the pub/sub channels carrying row changes,
	// e.g. "roster" -> roster:messages / roster:receipts / roster:presence
	ChannelPrefix string        `mapstructure:"channel_prefix"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}

// PresenceConfig definition own liveness publish setting
type PresenceConfig struct {
	PublishDebounce time.Duration `mapstructure:"publish_debounce"`
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
