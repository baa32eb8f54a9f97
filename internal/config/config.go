package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/blues/grants/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Gas      GasConfig      `mapstructure:"gas"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mail     MailConfig     `mapstructure:"mail"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres 或 sqlite
	Path     string `mapstructure:"path"`   // sqlite 文件路径
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 链配置
type ChainConfig struct {
	ChainType     string `mapstructure:"chain_type"`    // 链类型 (ethereum, polygon, etc.)
	ChainId       int64  `mapstructure:"chain_id"`      // 链ID
	RpcUrl        string `mapstructure:"rpc_url"`       // RPC节点URL
	Network       string `mapstructure:"network"`       // 对应 grant.network，如 mainnet
	StartBlock    int64  `mapstructure:"start_block"`   // 同步起始区块
	Confirmations int64  `mapstructure:"confirmations"` // 确认数
	BatchSize     int64  `mapstructure:"batch_size"`    // 单次拉取日志的区块跨度
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GasConfig gas 价格建议配置
type GasConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// StorageConfig logo 等静态资源存储
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Prefix          string `mapstructure:"prefix"`
}

// MailConfig SendGrid 邮件配置
type MailConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	FromEmail  string        `mapstructure:"from_email"`
	FromName   string        `mapstructure:"from_name"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// AuthConfig 会话令牌配置
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// NotifyConfig 通知发件箱配置
type NotifyConfig struct {
	BatchSize   int `mapstructure:"batch_size"`
	MaxAttempts int `mapstructure:"max_attempts"`
	Workers     int `mapstructure:"workers"`
}

type TaskConfig struct {
	Interval             int `mapstructure:"interval"`              // 通知投递间隔（秒）
	ContributionInterval int `mapstructure:"contribution_interval"` // 链上贡献同步间隔（秒）
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.Config 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.Config 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.Config 接口
func (l LogConfig) GetFile() string {
	return l.File
}

// DSN 拼接 postgres 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/grants")

	setDefaults(v)

	// 自动读取环境变量，例如 GRANTS_DATABASE_HOST
	v.SetEnvPrefix("grants")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.path", "grants.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "grants")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("chain.chain_type", "ethereum")
	v.SetDefault("chain.chain_id", 1)
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.network", "mainnet")
	v.SetDefault("chain.start_block", 0)
	v.SetDefault("chain.confirmations", 12)
	v.SetDefault("chain.batch_size", 500)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("gas.cache_ttl", "60s")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "grants/logos")
	v.SetDefault("mail.base_url", "https://api.sendgrid.com")
	v.SetDefault("mail.from_email", "grants@localhost")
	v.SetDefault("mail.from_name", "Grants")
	v.SetDefault("mail.timeout", "30s")
	v.SetDefault("mail.max_retries", 4)
	v.SetDefault("auth.issuer", "grants")
	v.SetDefault("notify.batch_size", 50)
	v.SetDefault("notify.max_attempts", 5)
	v.SetDefault("notify.workers", 8)
	v.SetDefault("task.interval", 30)
	v.SetDefault("task.contribution_interval", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
}
