package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 保存服务运行所需的全部配置项。
type Config struct {
	BotToken       string        // Discord Bot Token（必填）
	ForumChannelID string        // 目标论坛频道 ID（必填）
	APIAddr        string        // HTTP 服务监听地址
	ProxyURL       string        // 可选代理（http/https/socks5）
	DBPath         string        // 映射数据库文件路径
	ReadyTimeout   time.Duration // 等待 Bot 就绪的最长时间
	PublishTimeout time.Duration // 单个发布请求的总超时
	AuditAtStartup bool          // 启动时立即执行一次映射巡检
}

// LoadConfig 从多个源加载配置：.env 文件、config.yaml、以及环境变量。
// 配置加载顺序:
// 1. .env 文件 (用于环境变量)
// 2. config.yaml (基础配置)
// 环境变量会覆盖配置文件中的同名设置。
func LoadConfig() (*Config, error) {
	// 1. 从 .env 文件加载环境变量，如果文件不存在则忽略。
	if err := godotenv.Load(); err != nil {
		log.Printf("未找到 .env 文件，将跳过加载。")
	}

	// 2. 设置并读取基础配置文件 (config.yaml)。
	viper.SetConfigName("config")                          // 配置文件名 (无扩展名)
	viper.SetConfigType("yaml")                            // 配置文件类型
	viper.AddConfigPath(".")                               // 在当前工作目录中查找
	viper.AutomaticEnv()                                   // 自动读取匹配的环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将配置键中的'.'替换为'_'以匹配环境变量

	setDefaults()

	// 读取基础配置。
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// 配置文件未找到是正常情况，可以继续。
			log.Printf("未找到基础配置文件 (config.yaml)，将仅使用环境变量和默认值。")
		} else {
			// 如果找到配置文件但解析出错，则终止程序。
			return nil, fmt.Errorf("解析基础配置文件时发生致命错误: %w", err)
		}
	}

	cfg := &Config{
		BotToken:       viper.GetString("BOT_TOKEN"),
		ForumChannelID: viper.GetString("FORUM_CHANNEL_ID"),
		APIAddr:        viper.GetString("API_ADDR"),
		ProxyURL:       viper.GetString("PROXY_URL"),
		DBPath:         viper.GetString("DB_PATH"),
		ReadyTimeout:   viper.GetDuration("READY_TIMEOUT"),
		PublishTimeout: viper.GetDuration("PUBLISH_TIMEOUT"),
		AuditAtStartup: viper.GetBool("AUDIT_AT_STARTUP"),
	}

	// 3. 最终校验。
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("未配置 BOT_TOKEN。请在 .env、config.yaml 或环境变量中设置")
	}
	if cfg.ForumChannelID == "" {
		return nil, fmt.Errorf("未配置 FORUM_CHANNEL_ID")
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("API_ADDR", ":8000")
	viper.SetDefault("DB_PATH", "data/mappings.db")
	viper.SetDefault("READY_TIMEOUT", time.Minute)
	viper.SetDefault("PUBLISH_TIMEOUT", 2*time.Minute)
}
