package config

import (
	"fmt"

	"github.com/spf13/viper"
)

var GlobalConfig *Config

// Config 全局配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Gitlab   GitlabConfig   `mapstructure:"gitlab"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	DB       interface{}    // 数据库连接,运行时注入
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	LogLevel        string `mapstructure:"log_level"`         // SQL日志级别: silent/error/warn/info
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // json, console
	Output   string `mapstructure:"output"` // stdout, file
	FilePath string `mapstructure:"file_path"`
}

// EngineConfig 迁移引擎配置
type EngineConfig struct {
	WorkDir              string `mapstructure:"work_dir"`              // 各迁移工作目录的根路径
	SvnBin               string `mapstructure:"svn_bin"`               // svn 可执行文件
	GitBin               string `mapstructure:"git_bin"`               // git 可执行文件
	MigrationConcurrency int    `mapstructure:"migration_concurrency"` // 迁移队列并发数 (1-10)
	SyncConcurrency      int    `mapstructure:"sync_concurrency"`      // 同步队列并发数 (1-10)
	KillGracePeriod      string `mapstructure:"kill_grace_period"`     // 终止进程的宽限期
	ProgressInterval     string `mapstructure:"progress_interval"`     // 进度事件节流间隔
	AutoSyncCron         string `mapstructure:"auto_sync_cron"`        // 定时同步的cron表达式, 空则禁用
	EventBuffer          int    `mapstructure:"event_buffer"`          // 每个订阅者的事件缓冲
}

// GitlabConfig 目标托管平台配置
type GitlabConfig struct {
	BaseURL          string `mapstructure:"base_url"`          // 平台地址
	Token            string `mapstructure:"token"`             // 访问令牌
	DefaultNamespace int64  `mapstructure:"default_namespace"` // 新建项目的命名空间ID, 0表示当前用户
	Timeout          string `mapstructure:"timeout"`           // 单次调用超时
}

// CryptoConfig 加密配置
type CryptoConfig struct {
	AESKey string `mapstructure:"aes_key"` // 32字节, 用于恢复凭据提示的落盘加密
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// 读取环境变量
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 设置全局配置
	GlobalConfig = config

	return config, nil
}

// GetDSN 获取数据库DSN
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}
