package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Vote     VoteConfig     `yaml:"vote"`
	Debate   DebateConfig   `yaml:"debate"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql
	DSN  string `yaml:"dsn"`
}

// VoteConfig 投票裁决参数
// 阈值与最低参与权重均为配置项，不在代码中写死
type VoteConfig struct {
	AcceptThreshold float64       `yaml:"accept_threshold"` // 赞成比例达到该值则通过
	RejectThreshold float64       `yaml:"reject_threshold"` // 反对比例达到该值则否决
	QuorumWeight    int           `yaml:"quorum_weight"`    // 最低参与权重
	VotingWindow    time.Duration `yaml:"voting_window"`    // 投票窗口时长
}

// DebateConfig 讨论期参数
type DebateConfig struct {
	Extension   time.Duration `yaml:"extension"`    // 新评论对截止时间的延长量
	MaxLifetime time.Duration `yaml:"max_lifetime"` // 讨论自开启起的最长存续期
}

type SweepConfig struct {
	Interval time.Duration `yaml:"interval"` // 后台巡检周期
	Workers  int           `yaml:"workers"`  // 巡检结算工作池大小
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

func loadConfig() *Config {
	config := &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/app.db",
		},
		Vote: VoteConfig{
			AcceptThreshold: 0.66,
			RejectThreshold: 0.5,
			QuorumWeight:    10,
			VotingWindow:    24 * time.Hour,
		},
		Debate: DebateConfig{
			Extension:   24 * time.Hour,
			MaxLifetime: 7 * 24 * time.Hour,
		},
		Sweep: SweepConfig{
			Interval: time.Minute,
			Workers:  2,
		},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		yaml.Unmarshal(data, config)
	}

	// 环境变量优先级高于配置文件
	if port := os.Getenv("SERVER_PORT"); port != "" {
		config.Server.Port = port
	}
	if dbType := os.Getenv("DATABASE_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	return config
}
