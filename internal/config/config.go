package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version"`

	Sqlite struct {
		Dsn    string `yaml:"dsn"`
		Prefix string `yaml:"prefix"`
	} `yaml:"sqlite"`

	Log struct {
		Level      string   `yaml:"level"`
		Writer     []string `yaml:"writer"`
		File       string   `yaml:"file"`
		MaxSizeMB  int      `yaml:"maxSizeMB"`
		MaxBackups int      `yaml:"maxBackups"`
		MaxAgeDays int      `yaml:"maxAgeDays"`
	} `yaml:"log"`

	Store struct {
		TimeoutMS int `yaml:"timeoutMS"`
		QueueSize int `yaml:"queueSize"` // 持久化积压告警阈值，0 表示默认值
	} `yaml:"store"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	c := &Config{Version: "1.0.0"}

	c.Sqlite.Dsn = "db.sqlite3"
	c.Sqlite.Prefix = "urlmapper_"

	c.Log.Level = "info"
	c.Log.Writer = []string{"console"}
	c.Log.File = "urlmapper.log"
	c.Log.MaxSizeMB = 10
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28

	c.Store.TimeoutMS = 3000
	c.Store.QueueSize = 256
	return c
}

// Load 读取yaml配置文件并覆盖默认值，path为空时返回默认配置
func Load(path string) (*Config, error) {
	c := NewConfig()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	if c.Sqlite.Dsn == "" {
		errs = append(errs, errors.New("sqlite.dsn is required"))
	}
	if c.Store.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("store.timeoutMS must not be negative, got %d", c.Store.TimeoutMS))
	}
	if c.Store.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("store.queueSize must not be negative, got %d", c.Store.QueueSize))
	}
	for _, w := range c.Log.Writer {
		if w != "console" && w != "file" {
			errs = append(errs, fmt.Errorf("log.writer: unknown writer %q", w))
		}
	}
	return errors.Join(errs...)
}
