// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Quota         QuotaConfig         `mapstructure:"quota"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Social        SocialConfig        `mapstructure:"social"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。认证签发由外部服务完成，这里只负责校验。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// LLMConfig 存储文本生成模型相关的配置。
type LLMConfig struct {
	APIKey         string          `mapstructure:"api_key"`
	BaseURL        string          `mapstructure:"base_url"`
	Models         LLMModelsConfig `mapstructure:"models"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds"`
}

// LLMModelsConfig 按能力档位配置模型名称。
type LLMModelsConfig struct {
	Basic    string `mapstructure:"basic"`
	Standard string `mapstructure:"standard"`
	Advanced string `mapstructure:"advanced"`
}

// QuotaConfig 配置用量计数的存储后端：redis 或 mysql。
type QuotaConfig struct {
	Store string `mapstructure:"store"`
}

// MetricsConfig 配置社交平台指标缓存。
type MetricsConfig struct {
	CacheTTLMinutes     int `mapstructure:"cache_ttl_minutes"`
	StaleRetentionHours int `mapstructure:"stale_retention_hours"`
}

// SocialConfig 存储各社交平台 API 的地址。
type SocialConfig struct {
	TwitterBaseURL        string `mapstructure:"twitter_base_url"`
	InstagramBaseURL      string `mapstructure:"instagram_base_url"`
	LinkedInBaseURL       string `mapstructure:"linkedin_base_url"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
// 环境变量 POSTCRAFT_<SECTION>_<KEY> 可覆盖文件中的值。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("POSTCRAFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}

func setDefaults() {
	viper.SetDefault("server.port", "8081")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("kafka.group_id", "postcraft-go-consumer")
	viper.SetDefault("llm.timeout_seconds", 20)
	viper.SetDefault("quota.store", "redis")
	viper.SetDefault("metrics.cache_ttl_minutes", 30)
	viper.SetDefault("metrics.stale_retention_hours", 168)
	viper.SetDefault("social.twitter_base_url", "https://api.twitter.com")
	viper.SetDefault("social.instagram_base_url", "https://graph.instagram.com")
	viper.SetDefault("social.linkedin_base_url", "https://api.linkedin.com")
	viper.SetDefault("social.request_timeout_seconds", 15)
}
