package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Retry struct {
	MaxAttempts int
	Delay       time.Duration
}

type Config struct {
	Server struct {
		Port string
	}
	Node struct {
		ID string
	}
	Database struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Store struct {
		Backend string // redis | postgres | memory
	}
	Retry Retry
	JWT   struct {
		Secret string
	}
	Stream struct {
		Heartbeat  time.Duration
		SendBuffer int
	}
	Table struct {
		SmallBlind int64
		BigBlind   int64
		MaxPlayers int
		MinPlayers int
		Stack      int64
	}
	Log struct {
		Level string
	}
}

var C Config

const envPrefix = "HOLDEM"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("store.backend", "redis")
	v.SetDefault("retry.maxattempts", 10)
	v.SetDefault("retry.delay", 5*time.Second)
	v.SetDefault("stream.heartbeat", 30*time.Second)
	v.SetDefault("stream.sendbuffer", 32)
	v.SetDefault("table.smallblind", 10)
	v.SetDefault("table.bigblind", 20)
	v.SetDefault("table.maxplayers", 9)
	v.SetDefault("table.minplayers", 2)
	v.SetDefault("table.stack", 1000)
	v.SetDefault("log.level", "info")
	// 以下键只来自环境变量时也要能被 Unmarshal 识别
	v.SetDefault("node.id", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("jwt.secret", "")
}

// Load 读取配置文件（可选）和 HOLDEM_ 前缀的环境变量，结果写入 C
func Load(path string) error {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 配置文件不存在时只使用默认值和环境变量
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if c.Node.ID == "" {
		c.Node.ID = uuid.NewString()
	}
	if err := c.validate(); err != nil {
		return err
	}
	C = c
	return nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "redis", "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("store.backend postgres requires database.dsn")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Table.SmallBlind <= 0 || c.Table.BigBlind < c.Table.SmallBlind {
		return fmt.Errorf("invalid blinds %d/%d", c.Table.SmallBlind, c.Table.BigBlind)
	}
	return nil
}
