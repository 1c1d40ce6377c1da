package config

import (
	"fmt"
	"time"

	errprocess "collab_chat_service/pkg/err"
)

// Chat definition chat_service YAML structure
type Chat struct {
	Port       string           `mapstructure:"port"`
	PostgreSQL DatabaseConfig   `mapstructure:"pg"`
	MongoSQL   DatabaseConfig   `mapstructure:"mongo"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Translator TranslatorConfig `mapstructure:"translator"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
}

// RedisConfig definition redis setting
//
// Addr 有值時使用單節點, 否則走 sentinel (見 GetRedisSetting)
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	Password  string        `mapstructure:"password"`
	AuthorTTL time.Duration `mapstructure:"author_ttl"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	SSLMode       string `mapstructure:"sslmode"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition the CDC topic carrying message inserts
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// TranslatorConfig definition external localization API
type TranslatorConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Insert feed sources
const (
	FeedPostgres = "postgres"
	FeedKafka    = "kafka"
	FeedNone     = "none"
)

// Realtime transports
const (
	TransportRedis = "redis"
	TransportLocal = "local"
)

// RealtimeConfig definition realtime / unread behaviour
type RealtimeConfig struct {
	Transport             string        `mapstructure:"transport"`
	InsertFeed            string        `mapstructure:"insert_feed"`
	UnreadRefreshInterval time.Duration `mapstructure:"unread_refresh_interval"`
	TypingTimeout         time.Duration `mapstructure:"typing_timeout"`
	SendRate              float64       `mapstructure:"send_rate"`
	SendBurst             int           `mapstructure:"send_burst"`
	HistoryLimit          int           `mapstructure:"history_limit"`
	DefaultLanguage       string        `mapstructure:"default_language"`
}

// WithDefaults fill zero values
func (r RealtimeConfig) WithDefaults() RealtimeConfig {
	if r.Transport == "" {
		r.Transport = TransportRedis
	}
	if r.InsertFeed == "" {
		r.InsertFeed = FeedNone
	}
	if r.UnreadRefreshInterval <= 0 {
		r.UnreadRefreshInterval = 30 * time.Second
	}
	if r.TypingTimeout <= 0 {
		r.TypingTimeout = 3 * time.Second
	}
	if r.SendRate <= 0 {
		r.SendRate = 5
	}
	if r.SendBurst <= 0 {
		r.SendBurst = 10
	}
	if r.HistoryLimit <= 0 {
		r.HistoryLimit = 200
	}
	if r.DefaultLanguage == "" {
		r.DefaultLanguage = "EN"
	}
	return r
}

// Validate reject unknown transport / feed values, call after WithDefaults
func (r RealtimeConfig) Validate() error {
	switch r.Transport {
	case TransportRedis, TransportLocal:
	default:
		return errprocess.Set(fmt.Sprintf("realtime.transport %q must be %s or %s", r.Transport, TransportRedis, TransportLocal))
	}
	switch r.InsertFeed {
	case FeedPostgres, FeedKafka, FeedNone:
	default:
		return errprocess.Set(fmt.Sprintf("realtime.insert_feed %q must be %s, %s or %s", r.InsertFeed, FeedPostgres, FeedKafka, FeedNone))
	}
	return nil
}
