package config

import (
	"time"

	"github.com/go-ini/ini"
)

const (
	// ModeSingle 单机启动模式，内存在线表
	ModeSingle = 1
	// ModeCluster 多进程部署模式，此模式下在线表镜像到 redis，
	// 供其它服务查询
	ModeCluster = 2
)

const (
	defaultListen  = "0.0.0.0:8380"
	defaultOrigin  = "*"
	defaultDriver  = "sqlite3"
	defaultSource  = "./data/chat.db"
	defaultRedis   = "127.0.0.1:6379"

	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	defaultPingPeriod = 48 * time.Second

	// Maximum message size allowed from peer.
	defaultMaxMessageSize = 4096
)

// ServerConfig ServerConfig
type ServerConfig struct {
	Listen string
	Origin string
	Mode   int
}

// DatabaseConfig DatabaseConfig
type DatabaseConfig struct {
	Driver string
	Source string
}

// RedisConfig redis config
type RedisConfig struct {
	Addr     string
	Password string
	Db       int
}

// PeerConfig PeerConfig
type PeerConfig struct {
	MaxMessageSize int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

// Config 系统配置信息
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Peer     PeerConfig
}

// LoadConfig load config from an ini file, missing file or missing
// keys fall back to defaults
func LoadConfig(file string) (*Config, error) {
	cfg, err := ini.LooseLoad(file)
	if err != nil {
		return nil, err
	}

	config := defaultConfig()

	if err := cfg.Section("server").MapTo(&config.Server); err != nil {
		return nil, err
	}
	if err := cfg.Section("database").MapTo(&config.Database); err != nil {
		return nil, err
	}
	if err := cfg.Section("redis").MapTo(&config.Redis); err != nil {
		return nil, err
	}
	if err := cfg.Section("peer").MapTo(&config.Peer); err != nil {
		return nil, err
	}

	if config.Server.Mode != ModeCluster {
		config.Server.Mode = ModeSingle
	}
	if config.Peer.PingPeriod >= config.Peer.PongWait {
		config.Peer.PingPeriod = (config.Peer.PongWait * 8) / 10
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: defaultListen,
			Origin: defaultOrigin,
			Mode:   ModeSingle,
		},
		Database: DatabaseConfig{
			Driver: defaultDriver,
			Source: defaultSource,
		},
		Redis: RedisConfig{
			Addr: defaultRedis,
		},
		Peer: PeerConfig{
			MaxMessageSize: defaultMaxMessageSize,
			WriteWait:      defaultWriteWait,
			PongWait:       defaultPongWait,
			PingPeriod:     defaultPingPeriod,
		},
	}
}
