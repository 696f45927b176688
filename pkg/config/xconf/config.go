package xconf

import (
	"fmt"
	"time"
)

// Config 遥测组件的完整配置。
type Config struct {
	Service ServiceConfig `koanf:"service"`
	Trace   TraceConfig   `koanf:"trace"`
	Metrics MetricsConfig `koanf:"metrics"`
	Kafka   KafkaConfig   `koanf:"kafka"`
	Jobs    JobsConfig    `koanf:"jobs"`
	Log     LogConfig     `koanf:"log"`
}

// ServiceConfig 服务标识。
type ServiceConfig struct {
	Name string `koanf:"name"`
}

// TraceConfig 追踪导出配置。
//
// Endpoint 为空时由 xtelemetry 回退到 JAEGER_HOST / JAEGER_PORT 环境变量。
type TraceConfig struct {
	Endpoint     string        `koanf:"endpoint"`
	SamplerRatio float64       `koanf:"sampler_ratio"`
	BatchTimeout time.Duration `koanf:"batch_timeout"`
}

// MetricsConfig 指标拉取端点配置。
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// KafkaConfig 生产者配置。
type KafkaConfig struct {
	BootstrapServers string        `koanf:"bootstrap_servers"`
	MaxRetries       uint          `koanf:"max_retries"`
	RetryDelay       time.Duration `koanf:"retry_delay"`
	FlushTimeout     time.Duration `koanf:"flush_timeout"`
}

// JobsConfig 任务观测配置。
type JobsConfig struct {
	CacheSize         int           `koanf:"cache_size"`
	IdempotencyTTL    time.Duration `koanf:"idempotency_ttl"`
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text / json
}

// Default 返回全默认配置。
func Default() *Config {
	return &Config{
		Service: ServiceConfig{Name: "telekit"},
		Trace: TraceConfig{
			SamplerRatio: 1.0,
			BatchTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{Addr: ":9464"},
		Kafka: KafkaConfig{
			BootstrapServers: "localhost:9092",
			MaxRetries:       3,
			RetryDelay:       100 * time.Millisecond,
			FlushTimeout:     10 * time.Second,
		},
		Jobs: JobsConfig{
			CacheSize:         1024,
			IdempotencyTTL:    24 * time.Hour,
			HeartbeatInterval: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate 校验配置。
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("%w: service.name is required", ErrInvalidConfig)
	}
	if c.Trace.SamplerRatio < 0 || c.Trace.SamplerRatio > 1 {
		return fmt.Errorf("%w: trace.sampler_ratio must be in [0, 1]", ErrInvalidConfig)
	}
	if c.Jobs.CacheSize < 0 {
		return fmt.Errorf("%w: jobs.cache_size must be >= 0", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json", ErrInvalidConfig)
	}
	return nil
}
