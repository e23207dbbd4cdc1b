// Package config 读取调试器的yaml配置
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fansqz/js-debugger/transport"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	uberconfig "go.uber.org/config"
	"go.uber.org/multierr"
)

// 默认配置，配置文件中的值会覆盖这些值
var defaults = map[string]interface{}{
	"server": map[string]interface{}{
		"port": 8889,
	},
	"extension": map[string]interface{}{
		"url":     "ws://127.0.0.1:9223/relay",
		"timeout": "30s",
		"breaker": map[string]interface{}{
			"maxRequests":         1,
			"interval":            "0s",
			"timeout":             "10s",
			"consecutiveFailures": 5,
		},
	},
	"debugger": map[string]interface{}{
		"baseUri": "http://localhost:8080/",
	},
	"logging": map[string]interface{}{
		"level": "info",
	},
	"workspace": map[string]interface{}{
		"watch": true,
	},
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Extension ExtensionConfig `yaml:"extension"`
	Debugger  DebuggerConfig  `yaml:"debugger"`
	Logging   LoggingConfig   `yaml:"logging"`
	Workspace WorkspaceConfig `yaml:"workspace"`
}

// ServerConfig dap服务
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ExtensionConfig 调试扩展的中继
type ExtensionConfig struct {
	Url         string        `yaml:"url"`
	DownloadUrl string        `yaml:"downloadUrl"`
	Timeout     time.Duration `yaml:"timeout"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig 连续失败ConsecutiveFailures次之后熔断，Timeout之后尝试恢复
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"maxRequests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutiveFailures"`
}

// DebuggerConfig 本地文件映射到baseUri下的同名资源
type DebuggerConfig struct {
	BaseUri string `yaml:"baseUri"`
}

// LoggingConfig path为空时输出到标准错误
type LoggingConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// WorkspaceConfig 本地源文件所在的目录
type WorkspaceConfig struct {
	Root  string `yaml:"root"`
	Watch bool   `yaml:"watch"`
}

// Load 读取配置文件，path为空时只使用默认配置，文件中可以使用${ENV:default}引用环境变量
func Load(path string) (*Config, error) {
	options := []uberconfig.YAMLOption{
		uberconfig.Static(defaults),
		uberconfig.Expand(os.LookupEnv),
	}
	if path != "" {
		options = append(options, uberconfig.File(path))
	}
	provider, err := uberconfig.NewYAML(options...)
	if err != nil {
		logrus.Errorf("[Load] read config %s fail, err = %v", path, err)
		return nil, err
	}
	return New(provider)
}

// New 从provider中读取配置并校验
func New(provider uberconfig.Provider) (*Config, error) {
	c := &Config{}
	if err := provider.Get(uberconfig.Root).Populate(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate 返回所有不合法的配置项
func (c *Config) Validate() error {
	var err error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Extension.Url == "" {
		err = multierr.Append(err, fmt.Errorf("extension.url is required"))
	}
	if c.Extension.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("extension.timeout must be positive"))
	}
	if c.Debugger.BaseUri == "" {
		err = multierr.Append(err, fmt.Errorf("debugger.baseUri is required"))
	}
	if _, levelErr := logrus.ParseLevel(c.Logging.Level); levelErr != nil {
		err = multierr.Append(err, levelErr)
	}
	return err
}

// TransportOptions 调试扩展连接参数
func (c *Config) TransportOptions() transport.Options {
	breaker := c.Extension.Breaker
	return transport.Options{
		Url:          c.Extension.Url,
		ExtensionUrl: c.Extension.DownloadUrl,
		Timeout:      c.Extension.Timeout,
		Breaker: gobreaker.Settings{
			Name:        "chrome-api",
			MaxRequests: breaker.MaxRequests,
			Interval:    breaker.Interval,
			Timeout:     breaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return breaker.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= breaker.ConsecutiveFailures
			},
		},
	}
}
